package splunk

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"ThreatIngest/internal/ports"
)

// ErrNotConnected is returned by sink calls issued before Connect succeeded.
var ErrNotConnected = errors.New("splunk client is not connected")

// Options locate the Splunk management port and credentials.
type Options struct {
	Scheme             string
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
	ConnectRetries     uint64
	RetryDelay         time.Duration
}

// BaseURL renders scheme://host:port, defaulting to https.
func (o Options) BaseURL() string {
	scheme := o.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + o.Host + ":" + strconv.Itoa(o.Port)
}

// Client talks to the Splunk REST API and implements ports.Sink with indexes
// as targets and sourcetypes as categories.
type Client struct {
	rest   *resty.Client
	opts   Options
	logger *slog.Logger

	mu         sync.RWMutex
	sessionKey string
	version    string
}

var _ ports.Sink = (*Client)(nil)

// NewClient prepares a REST client. Nothing is sent until Connect.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	rest := resty.New().
		SetBaseURL(opts.BaseURL()).
		SetTimeout(opts.Timeout).
		SetQueryParam("output_mode", "json")
	if opts.InsecureSkipVerify {
		// Splunk ships with a self-signed certificate on the management port.
		rest.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{rest: rest, opts: opts, logger: logger}
}

// Connect logs in and reads the server version. Transport failures and 5xx
// answers are retried; rejected credentials are not.
func (c *Client) Connect(ctx context.Context) error {
	backoff := retry.WithMaxRetries(c.opts.ConnectRetries, retry.NewExponential(c.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.login(ctx)
	})
	if err != nil {
		return fmt.Errorf("connect to splunk at %s: %w", c.opts.BaseURL(), err)
	}

	version, err := c.serverVersion(ctx)
	if err != nil {
		return fmt.Errorf("connect to splunk at %s: %w", c.opts.BaseURL(), err)
	}

	c.mu.Lock()
	c.version = version
	c.mu.Unlock()

	c.debug("connected", "url", c.opts.BaseURL(), "version", version)
	return nil
}

// Version returns the server version seen by Connect.
func (c *Client) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// EnsureTarget creates the index when the server does not know it.
func (c *Client) EnsureTarget(ctx context.Context, name string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetPathParam("name", name).Get("/services/data/indexes/{name}")
	if err != nil {
		return fmt.Errorf("lookup index %s: %w", name, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("lookup index %s: %s", name, resp.Status())
	}

	req, err = c.request(ctx)
	if err != nil {
		return err
	}
	resp, err = req.SetFormData(map[string]string{"name": name}).Post("/services/data/indexes")
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	// 409 means somebody created it in the meantime.
	if resp.IsError() && resp.StatusCode() != http.StatusConflict {
		return fmt.Errorf("create index %s: %s", name, resp.Status())
	}

	c.debug("index created", "index", name)
	return nil
}

// Submit sends one event through the simple receiver. An expired session is
// renewed once.
func (c *Client) Submit(ctx context.Context, target string, payload []byte, category string) error {
	resp, err := c.submit(ctx, target, payload, category)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		if err := c.login(ctx); err != nil {
			return fmt.Errorf("renew session: %w", err)
		}
		if resp, err = c.submit(ctx, target, payload, category); err != nil {
			return err
		}
	}

	if resp.IsError() {
		return fmt.Errorf("submit to index %s: %s", target, resp.Status())
	}
	return nil
}

func (c *Client) submit(ctx context.Context, target string, payload []byte, category string) (*resty.Response, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetQueryParams(map[string]string{"index": target, "sourcetype": category}).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/services/receivers/simple")
	if err != nil {
		return nil, fmt.Errorf("submit to index %s: %w", target, err)
	}
	return resp, nil
}

func (c *Client) login(ctx context.Context) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.opts.Username,
			"password": c.opts.Password,
		}).
		Post("/services/auth/login")
	if err != nil {
		return retry.RetryableError(fmt.Errorf("login: %w", err))
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return retry.RetryableError(fmt.Errorf("login: %s", resp.Status()))
	}
	if resp.IsError() {
		return fmt.Errorf("login rejected for %s: %s", c.opts.Username, resp.Status())
	}

	key := gjson.GetBytes(resp.Body(), "sessionKey").String()
	if key == "" {
		return fmt.Errorf("login: response carries no session key")
	}

	c.mu.Lock()
	c.sessionKey = key
	c.mu.Unlock()
	return nil
}

func (c *Client) serverVersion(ctx context.Context) (string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.Get("/services/server/info")
	if err != nil {
		return "", fmt.Errorf("server info: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("server info: %s", resp.Status())
	}
	return gjson.GetBytes(resp.Body(), "entry.0.content.version").String(), nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	c.mu.RLock()
	key := c.sessionKey
	c.mu.RUnlock()

	if key == "" {
		return nil, ErrNotConnected
	}
	return c.rest.R().SetContext(ctx).SetHeader("Authorization", "Splunk "+key), nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
