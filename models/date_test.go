package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	for in, want := range map[string]string{
		"2025-03-01":                "2025-03-01",
		" 2025-03-01 ":              "2025-03-01",
		"2025-03-01T23:30:00+03:00": "2025-03-01",
	} {
		d, err := ParseDate(in)
		if err != nil || d.String() != want {
			t.Errorf("ParseDate(%q) = %s, %v", in, d, err)
		}
	}
	if _, err := ParseDate("01.03.2025"); err == nil {
		t.Error("expected error for dotted date")
	}
}

func TestDateJSON(t *testing.T) {
	var p struct {
		Date *Date `json:"date"`
		Plan Date  `json:"plan"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2025-01-31","plan":""}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Date == nil || p.Date.String() != "2025-01-31" || !p.Plan.IsZero() {
		t.Fatalf("decoded = %+v", p)
	}
	out, _ := json.Marshal(p)
	if string(out) != `{"date":"2025-01-31","plan":null}` {
		t.Fatalf("encoded = %s", out)
	}
}

func TestDateScanValue(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2025, 5, 6, 0, 0, 0, 0, time.FixedZone("MSK", 3*3600))); err != nil || d.String() != "2025-05-06" {
		t.Fatalf("scan time = %s, %v", d, err)
	}
	if err := d.Scan([]byte("2025-07-08")); err != nil || d.String() != "2025-07-08" {
		t.Fatalf("scan bytes = %s, %v", d, err)
	}
	v, _ := d.Value()
	if v != "2025-07-08" {
		t.Fatalf("value = %v", v)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Fatalf("scan nil = %s, %v", d, err)
	}
	if v, _ := d.Value(); v != nil {
		t.Fatalf("zero value = %v", v)
	}
	if err := d.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := Today(now).String(); got != "2025-12-31" {
		t.Fatalf("Today = %s", got)
	}
}
