// Package archive retrieves catalog chunks from the remote Gaia archive.
package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultIndexURL is the Gaia DR3 gaia_source directory listing.
	DefaultIndexURL = "https://cdn.gea.esac.esa.int/Gaia/gdr3/gaia_source/"

	// DefaultTimeout bounds each request, including reading the body.
	DefaultTimeout = 10 * time.Minute

	// RateLimit is the default number of requests per second.
	RateLimit = 2.0

	// userAgent identifies the client to the archive.
	userAgent = "gaiaoffline"
)

// gzipMagic is the two-byte gzip header.
var gzipMagic = []byte{0x1f, 0x8b}

// Client is a rate-limited HTTP client for the archive.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit sets the maximum requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new archive client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get issues a GET bound by the client timeout. The returned cancel func
// must be called once the response body is no longer needed.
func (c *Client) get(ctx context.Context, url string) (*http.Response, context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, nil, classify(reqCtx, err)
	}

	c.logger.Debug("archive response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, nil, nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	return resp, reqCtx, cancel, nil
}

// classify maps transport failures onto ErrTimeout or ErrNetwork.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Fetch opens a remote chunk. The body is transparently decompressed when
// it is gzip encoded. Reading is bound by the client timeout; the caller
// must Close the returned reader.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, reqCtx, cancel, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	b := &body{ctx: reqCtx, closers: []func() error{
		resp.Body.Close,
		func() error { cancel(); return nil },
	}}

	br := bufio.NewReader(resp.Body)
	magic, _ := br.Peek(len(gzipMagic))
	if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("%w: gzip header: %v", ErrInvalidChunk, err)
		}
		b.r = zr
		b.closers = append([]func() error{zr.Close}, b.closers...)
	} else {
		b.r = br
	}

	return b, nil
}

// body is a response body that reports timeouts as ErrTimeout and releases
// the request context on Close.
type body struct {
	r       io.Reader
	ctx     context.Context
	closers []func() error
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	switch {
	case err == nil || err == io.EOF:
	case errors.Is(err, gzip.ErrChecksum), errors.Is(err, gzip.ErrHeader), errors.Is(err, io.ErrUnexpectedEOF):
		err = fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	default:
		err = classify(b.ctx, err)
	}
	return n, err
}

func (b *body) Close() error {
	var first error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
