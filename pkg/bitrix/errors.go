package bitrix

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by every call when no webhook base URL is set.
var ErrNotConfigured = errors.New("bitrix24 webhook url is not set")

// CrmError is a failed remote call: a non-2xx status or an `error` field in the body.
type CrmError struct {
	Method      string
	Status      int
	Code        string
	Description string
}

func (e *CrmError) Error() string {
	return fmt.Sprintf("bitrix24 %s failed: %s", e.Method, e.Detail())
}

// Detail picks the most descriptive part of the failure:
// error_description, then error, then the HTTP status.
func (e *CrmError) Detail() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("HTTP %d", e.Status)
	}
}

// IsCrmError reports whether err is (or wraps) a *CrmError.
func IsCrmError(err error) bool {
	var ce *CrmError
	return errors.As(err, &ce)
}
