package bitrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ledger/pkg/logger"

	"github.com/spf13/cast"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single REST call.
const DefaultTimeout = 15 * time.Second

// Params are the query parameters of a REST call. Nil and empty values are
// dropped; everything else is stringified.
type Params map[string]any

// Caller is the part of the client the resolvers depend on.
type Caller interface {
	SafeCall(ctx context.Context, method string, params Params) Optional[json.RawMessage]
}

// Client talks to a Bitrix24 inbound webhook
// (https://<portal>/rest/<user>/<token>/). It is safe for concurrent use.
type Client struct {
	base    string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient swaps the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the webhook base URL. An empty URL yields a
// client that is not Ready and fails every call with ErrNotConfigured.
func NewClient(webhookURL string, opts ...Option) *Client {
	base := strings.TrimSpace(webhookURL)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c := &Client{
		base:    base,
		http:    &fasthttp.Client{Name: "ledger-bitrix"},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether a webhook URL is configured.
func (c *Client) Ready() bool {
	return c != nil && c.base != ""
}

type envelope struct {
	Result           json.RawMessage `json:"result"`
	Error            any             `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// Call performs method and returns the `result` payload. A non-2xx status or
// an `error` field in the body yields a *CrmError. There are no retries.
func (c *Client) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	if !c.Ready() {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint(method, params))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.do(ctx, req, resp); err != nil {
		return nil, &CrmError{Method: method, Description: err.Error()}
	}

	status := resp.StatusCode()
	var env envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)
	code, failed := errorCode(env.Error)
	if status < 200 || status > 299 || failed {
		return nil, &CrmError{Method: method, Status: status, Code: code, Description: env.ErrorDescription}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("bitrix24 %s: decode response: %w", method, decodeErr)
	}
	return env.Result, nil
}

// errorCode reports whether the `error` field of a response is set and
// renders it. Objects and arrays are kept as their JSON text.
func errorCode(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case bool:
		return cast.ToString(e), e
	case string:
		return e, e != ""
	case map[string]any, []any:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprint(e), true
		}
		return string(b), true
	default:
		return cast.ToString(e), true
	}
}

// SafeCall is Call for optional lookups: any failure becomes None.
func (c *Client) SafeCall(ctx context.Context, method string, params Params) Optional[json.RawMessage] {
	res, err := c.Call(ctx, method, params)
	if err != nil {
		logger.FromContext(ctx).Debug("bitrix best-effort call failed",
			zap.String("method", method), zap.Error(err))
		return None[json.RawMessage]()
	}
	return Some(res)
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if c.timeout <= 0 {
		if d, ok := ctx.Deadline(); ok {
			return c.http.DoDeadline(req, resp, d)
		}
		return c.http.Do(req, resp)
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.http.DoDeadline(req, resp, deadline)
}

func (c *Client) endpoint(method string, params Params) string {
	q := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		s := cast.ToString(v)
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	u := c.base + method + ".json"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}
