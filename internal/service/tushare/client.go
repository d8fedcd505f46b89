package tushare

import (
	"context"
	"fmt"
	"strconv"
	"time"

	drepo "stockprob/internal/domain/repository"
	xhttp "stockprob/pkg/http"
	"stockprob/pkg/metrics"

	"golang.org/x/time/rate"
)

const DefaultURL = "http://api.tushare.pro"

// Querier runs one provider API call.
type Querier interface {
	Query(ctx context.Context, api string, params map[string]string, fields string) (*Frame, error)
}

// Client is a minimal Tushare Pro HTTP client.
type Client struct {
	http    *xhttp.Client
	url     string
	token   string
	limiter *rate.Limiter
	timeout time.Duration
	metrics drepo.Metrics
}

// Option configures Client.
type Option func(*Client)

// WithURL overrides the API endpoint.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps the request rate across every API. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCallTimeout bounds each call once every rate limiter has granted it,
// so queueing behind a limiter never eats into the deadline. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMetrics records call counts and latency.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		token:   token,
		http:    xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *Frame `json:"data"`
}

// Frame is the column/row payload every API returns.
type Frame struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// Query calls api and returns its data frame. A non-zero provider code is an
// error; an empty frame is not.
func (c *Client) Query(ctx context.Context, api string, params map[string]string, fields string) (*Frame, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate wait: %w", api, err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if params == nil {
		params = map[string]string{}
	}

	start := time.Now()
	var resp response
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url,
		Body:   request{APIName: api, Token: c.token, Params: params, Fields: fields},
	}, &resp)

	result := "ok"
	switch {
	case err != nil:
		result = "transport_error"
		err = fmt.Errorf("%s: %w", api, err)
	case resp.Code != 0:
		result = "api_error"
		err = fmt.Errorf("%s: code %d: %s", api, resp.Code, resp.Msg)
	}
	c.metrics.RecordProviderCall(api, result, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return &Frame{}, nil
	}
	return resp.Data, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Items)
}

// Rows returns the frame as name-addressable rows.
func (f *Frame) Rows() []Row {
	if f.Len() == 0 {
		return nil
	}
	idx := make(map[string]int, len(f.Fields))
	for i, name := range f.Fields {
		idx[name] = i
	}
	rows := make([]Row, 0, len(f.Items))
	for _, item := range f.Items {
		rows = append(rows, Row{idx: idx, values: item})
	}
	return rows
}

// Row is one item of a Frame.
type Row struct {
	idx    map[string]int
	values []interface{}
}

func (r Row) get(name string) (interface{}, bool) {
	i, ok := r.idx[name]
	if !ok || i >= len(r.values) || r.values[i] == nil {
		return nil, false
	}
	return r.values[i], true
}

// String returns the column as text, "" when absent.
func (r Row) String(name string) string {
	v, ok := r.get(name)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// FloatOK returns the column as a number. ok is false for null or
// non-numeric values.
func (r Row) FloatOK(name string) (float64, bool) {
	v, ok := r.get(name)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Float returns the column as a number, 0 when missing.
func (r Row) Float(name string) float64 {
	f, _ := r.FloatOK(name)
	return f
}

// FloatPtr returns the column as a number, nil when missing.
func (r Row) FloatPtr(name string) *float64 {
	f, ok := r.FloatOK(name)
	if !ok {
		return nil
	}
	return &f
}
