package bitrix

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"
)

type route func(q url.Values) (int, string)

// portal is a fake Bitrix24 REST endpoint that counts calls per method.
type portal struct {
	mu      sync.Mutex
	calls   map[string]int
	queries map[string][]url.Values
	routes  map[string]route
	srv     *httptest.Server
}

func newPortal(t *testing.T, routes map[string]route) *portal {
	t.Helper()
	p := &portal{
		calls:   map[string]int{},
		queries: map[string][]url.Values{},
		routes:  routes,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimSuffix(path.Base(r.URL.Path), ".json")
		q := r.URL.Query()
		p.mu.Lock()
		p.calls[method]++
		p.queries[method] = append(p.queries[method], q)
		h, ok := p.routes[method]
		p.mu.Unlock()

		status, body := http.StatusBadRequest, `{"error":"ERROR_METHOD_NOT_FOUND","error_description":"Method not found!"}`
		if ok {
			status, body = h(q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *portal) client() *Client {
	return NewClient(p.srv.URL+"/rest/1/secret", WithTimeout(5*time.Second))
}

func (p *portal) count(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *portal) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *portal) lastQuery(method string) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	qs := p.queries[method]
	if len(qs) == 0 {
		return nil
	}
	return qs[len(qs)-1]
}

func ok(result string) route {
	return func(url.Values) (int, string) { return http.StatusOK, `{"result":` + result + `}` }
}

func fail(status int, body string) route {
	return func(url.Values) (int, string) { return status, body }
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
