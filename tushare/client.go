// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tushare

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default endpoint of the service. It may be overwritten in tests
// before creating a new client.
var URL = "http://api.tushare.pro"

// Response codes of the service.
const (
	CodeOK           = 0
	CodeNoPermission = 2002
)

// Request to a single API. Params and Fields are sent as is, with Fields as a
// JSON list of column names.
type Request struct {
	API    string            `json:"api_name"`
	Params map[string]string `json:"params"`
	Fields []string          `json:"fields"`
}

// requestBody is the wire format of the Request.
type requestBody struct {
	API    string            `json:"api_name"`
	Token  string            `json:"token"`
	Params map[string]string `json:"params"`
	Fields []string          `json:"fields"`
}

// Table is the column-oriented payload of a response.
type Table struct {
	Fields  []string `json:"fields"`
	Items   [][]Cell `json:"items"`
	HasMore bool     `json:"has_more"`
}

// Response envelope of the service. Code other than CodeOK means the data is
// unavailable, and Message explains why.
type Response struct {
	RequestID string `json:"request_id,omitempty"`
	Code      int    `json:"code"`
	Message   string `json:"msg"`
	Data      *Table `json:"data"`
}

type options struct {
	baseURL    string
	timeout    time.Duration
	retries    int
	cacheTTL   time.Duration
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*options)

// WithURL sets the endpoint of the service instead of URL.
func WithURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTimeout sets the timeout of a single HTTP request, including retries.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets the number of retries on network and server errors.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithCache enables the in-memory response cache with the given expiration.
func WithCache(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Client for the Tushare Pro API. It is safe for concurrent use.
type Client struct {
	token string
	http  *resty.Client
	cache *cache.Cache // nil when caching is disabled
}

// NewClient creates a new client with the given API token.
func NewClient(token string, opts ...Option) *Client {
	o := options{baseURL: URL, timeout: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(o.baseURL).
		SetTimeout(o.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if o.retries > 0 {
		rc.SetRetryCount(o.retries).
			SetRetryWaitTime(time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
	c := &Client{token: token, http: rc}
	if o.cacheTTL > 0 {
		c.cache = cache.New(o.cacheTTL, 2*o.cacheTTL)
	}
	return c
}

// UseClient injects the client into the context.
func UseClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, c)
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// Do sends the request and decodes the response envelope. The response code is
// not interpreted; see Materialize.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.token == "" {
		return nil, errors.Reason("API token is not set")
	}
	if req == nil || req.API == "" {
		return nil, errors.Reason("API name is required")
	}
	params := req.Params
	if params == nil {
		params = map[string]string{}
	}
	fields := req.Fields
	if fields == nil {
		fields = []string{}
	}
	key, err := json.Marshal(&Request{API: req.API, Params: params, Fields: fields})
	if err != nil {
		return nil, errors.Annotate(err, "failed to serialize request")
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(string(key)); ok {
			logging.Debugf(ctx, "tushare: cache hit for %s", key)
			return v.(*Response), nil
		}
	}
	body := requestBody{API: req.API, Token: c.token, Params: params, Fields: fields}
	r, err := c.http.R().SetContext(ctx).SetBody(&body).Post("/")
	if err != nil {
		return nil, errors.Annotate(err, "failed to call API %s", req.API)
	}
	if !r.IsSuccess() {
		return nil, errors.Reason("API %s: HTTP status %s", req.API, r.Status())
	}
	var resp Response
	if err := json.Unmarshal(r.Body(), &resp); err != nil {
		return nil, errors.Annotate(err, "failed to decode response of API %s", req.API)
	}
	rows := 0
	if resp.Data != nil {
		rows = len(resp.Data.Items)
	}
	logging.Debugf(ctx, "tushare: %s returned code %d with %d rows in %s",
		key, resp.Code, rows, r.Time())
	if c.cache != nil && resp.Code == CodeOK {
		c.cache.SetDefault(string(key), &resp)
	}
	return &resp, nil
}
