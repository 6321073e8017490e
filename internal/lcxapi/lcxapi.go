// Package lcxapi is a client for the dashboard's proxy REST endpoints.
// lcxterm only reads the proxy list and issues start/stop commands;
// adding and editing proxies is left to the dashboard itself.
package lcxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ncerr "lcxterm/internal/errors"
	"lcxterm/internal/transport"
	"lcxterm/util"
)

// Endpoint paths.
const (
	PathProxyList = "/lcx/proxylist"
	PathProxy     = "/lcx/proxy"
)

// Status is a proxy's run state as reported by the dashboard.
type Status int

const (
	StatusDisabled Status = iota
	StatusStopped
	StatusStarted
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusStopped:
		return "stopped"
	case StatusStarted:
		return "started"
	case StatusConnected:
		return "connected"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Proxy is one forwarded tunnel.
type Proxy struct {
	Id         int    `json:"Id"`
	Desc       string `json:"Desc"`
	LocalIp    string `json:"LocalIp"`
	LocalPort  int    `json:"LocalPort"`
	RemoteIp   string `json:"RemoteIp"`
	RemotePort int    `json:"RemotePort"`
	Status     Status `json:"Status"`
	Instances  int    `json:"Instances"`
}

// OpResult is the dashboard's answer to a start or stop command.
// Result is zero on success.
type OpResult struct {
	Id     int    `json:"Id"`
	Result int    `json:"Result"`
	Status Status `json:"Status"`
	ErrMsg string `json:"ErrMsg"`
}

// Client talks to one dashboard.
type Client struct {
	base   string
	http   *http.Client
	logger *util.Logger
}

// NewClient returns a client for the dashboard at baseURL
// ("http://host:port").  Requests go through dialer when it is
// non-nil, so they share the terminal's SSH gateway.
func NewClient(baseURL string, dialer transport.Dialer, timeout time.Duration, logger *util.Logger) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if dialer != nil {
		tr.Proxy = nil
		tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(ctx, network, addr)
		}
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Transport: tr, Timeout: timeout},
		logger: logger,
	}
}

// List returns every proxy the dashboard knows.
func (c *Client) List(ctx context.Context) ([]Proxy, error) {
	var out []Proxy
	if err := c.get(ctx, PathProxyList, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the proxy with the given id, or nil if there is none.
func (c *Client) Find(ctx context.Context, id int) (*Proxy, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Id == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

// Start asks the dashboard to start proxy id.  A command the dashboard
// rejects is returned as *errors.ProxyOpError alongside the result.
func (c *Client) Start(ctx context.Context, id int) (*OpResult, error) {
	return c.op(ctx, id, "start")
}

// Stop asks the dashboard to stop proxy id.
func (c *Client) Stop(ctx context.Context, id int) (*OpResult, error) {
	return c.op(ctx, id, "stop")
}

func (c *Client) op(ctx context.Context, id int, op string) (*OpResult, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("op", op)

	var res OpResult
	if err := c.get(ctx, PathProxy, q, &res); err != nil {
		return nil, err
	}
	c.logger.Debug("lcxapi: %s %d -> result=%d status=%s", op, id, res.Result, res.Status)
	if res.Result != 0 {
		return &res, &ncerr.ProxyOpError{ID: id, Op: op, Result: res.Result, Message: res.ErrMsg}
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("lcxapi: GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return ncerr.Wrap("request", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ncerr.Wrap("request", u,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ncerr.Wrap("request", u, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
