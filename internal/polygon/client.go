package polygon

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"polymigrate/pkg/utils/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	nonceLength   = 6
	nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	statusOK     = "OK"
	statusFailed = "FAILED"

	maxErrorBodySnippet = 256
)

type responseMode int

const (
	modeJSON responseMode = iota
	modePlain
	modeBinary
)

// envelope is the JSON wrapper returned by every JSON method.
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// Client calls the Polygon API with signed requests.
type Client struct {
	cfg     Config
	http    *http.Client
	clock   clockwork.Clock
	limiter *rate.Limiter
	nonce   func() (string, error)
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock sets the clock used for the signed time parameter.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithNonce overrides the random signature prefix source.
func WithNonce(fn func() (string, error)) Option {
	return func(c *Client) {
		c.nonce = fn
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("polygon apiKey and apiSecret are required")
	}
	ApplyDefaults(&cfg)
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		clock:   clockwork.NewRealClock(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		nonce:   randomNonce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Sign adds apiKey and time to a copy of params and returns the apiSig value
// together with the time used.
func (c *Client) Sign(method string, params url.Values) (string, int64, error) {
	nonce, err := c.nonce()
	if err != nil {
		return "", 0, fmt.Errorf("generate nonce failed: %w", err)
	}
	ts := c.clock.Now().Unix()
	signed := cloneValues(params)
	signed.Set("apiKey", c.cfg.APIKey)
	signed.Set("time", strconv.FormatInt(ts, 10))
	return Signature(nonce, method, c.cfg.APISecret, signed), ts, nil
}

// Signature builds nonce + hex(sha512(nonce/method?sortedParams#secret)).
// params must already contain apiKey and time.
func Signature(nonce, method, secret string, params url.Values) string {
	// Encode sorts by key and escapes spaces as '+'.
	payload := nonce + "/" + method + "?" + params.Encode() + "#" + secret
	sum := sha512.Sum512([]byte(payload))
	return nonce + hex.EncodeToString(sum[:])
}

func (c *Client) callJSON(ctx context.Context, method string, params url.Values, out interface{}) error {
	body, err := c.call(ctx, method, params, modeJSON)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func (c *Client) callPlain(ctx context.Context, method string, params url.Values) (string, error) {
	body, err := c.call(ctx, method, params, modePlain)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) callBinary(ctx context.Context, method string, params url.Values) ([]byte, error) {
	return c.call(ctx, method, params, modeBinary)
}

// call posts a signed form. In JSON mode it returns the raw result field.
func (c *Client) call(ctx context.Context, method string, params url.Values, mode responseMode) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	sig, ts, err := c.Sign(method, params)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	form := cloneValues(params)
	form.Set("apiKey", c.cfg.APIKey)
	form.Set("time", strconv.FormatInt(ts, 10))
	form.Set("apiSig", sig)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+method, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	limit := int64(-1)
	if mode == modeBinary {
		limit = c.cfg.MaxPackageBytes + 1
	}
	body, err := readBody(resp.Body, limit)
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("read body: %w", err)}
	}
	logger.Debug(ctx, "polygon call finished",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: errors.New(errorSnippet(body))}
	}
	if mode == modeBinary && limit > 0 && int64(len(body)) >= limit {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("response exceeds %d bytes", c.cfg.MaxPackageBytes)}
	}
	if mode != modeJSON {
		return body, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Status == statusFailed {
		return nil, &RemoteAPIError{Method: method, Comment: env.Comment}
	}
	if env.Status != statusOK {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("unexpected status %q", env.Status)}
	}
	return env.Result, nil
}

func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// errorSnippet extracts a remote comment from an error body, or its first bytes.
func errorSnippet(body []byte) string {
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Comment != "" {
		return env.Comment
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodySnippet {
		s = s[:maxErrorBodySnippet]
	}
	return s
}

func randomNonce() (string, error) {
	size := big.NewInt(int64(len(nonceAlphabet)))
	out := make([]byte, nonceLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = nonceAlphabet[n.Int64()]
	}
	return string(out), nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+3)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
