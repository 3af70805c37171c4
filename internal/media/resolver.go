// Package media turns media references from the top_posts table into either
// an embeddable image or a hyperlink fallback.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/image/webp"
)

// Image types understood by the PDF writer.
const (
	TypeJPG = "JPG"
	TypePNG = "PNG"
)

// Image is a decoded media reference ready for embedding.
type Image struct {
	Data   []byte
	Type   string
	Width  int
	Height int
}

// Failure records why a reference could not be resolved. It is carried inside
// a fallback Resolution and never returned as an error.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) String() string {
	if f.Err != nil {
		return f.Reason + ": " + f.Err.Error()
	}
	return f.Reason
}

// Resolution is the outcome of resolving one media reference: exactly one of
// Image (resolved) or Failure (fallback to a hyperlink on Ref) is set.
type Resolution struct {
	Ref     string
	Image   *Image
	Failure *Failure
}

// Resolved builds a successful resolution.
func Resolved(ref string, img *Image) Resolution {
	return Resolution{Ref: ref, Image: img}
}

// Fallback builds a resolution that renders ref as a link.
func Fallback(ref, reason string, err error) Resolution {
	return Resolution{Ref: ref, Failure: &Failure{Reason: reason, Err: err}}
}

// IsResolved reports whether the reference resolved to an image.
func (r Resolution) IsResolved() bool {
	return r.Image != nil
}

// Resolver resolves media references.
type Resolver interface {
	Resolve(ctx context.Context, ref string) Resolution
}

// ResolverOptions configures an HTTPResolver
type ResolverOptions struct {
	Timeout   time.Duration
	MaxBytes  int64
	MaxPixels int64
	UserAgent string
}

// DefaultResolverOptions returns default resolver options
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		Timeout:   10 * time.Second,
		MaxBytes:  10 << 20,
		MaxPixels: 40_000_000,
		UserAgent: "top-posts-report/1.0",
	}
}

// HTTPResolver fetches http(s) references and decodes them as images.
type HTTPResolver struct {
	client  *http.Client
	options ResolverOptions
	logger  *zap.Logger
}

// NewHTTPResolver creates a new HTTP resolver
func NewHTTPResolver(client *http.Client, options ResolverOptions, logger *zap.Logger) *HTTPResolver {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPResolver{
		client:  client,
		options: options,
		logger:  logger,
	}
}

var errTooLarge = errors.New("media exceeds size limit")

// ErrTooManyPixels is returned by Decode for images whose declared
// dimensions exceed the pixel limit.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Resolve makes one bounded-time attempt to fetch and decode ref. Every
// failure, including a timeout, yields a fallback resolution.
func (r *HTTPResolver) Resolve(ctx context.Context, ref string) Resolution {
	res := r.resolve(ctx, ref)
	if !res.IsResolved() {
		r.logger.Debug("Media reference not embeddable",
			zap.String("media_url", ref),
			zap.Stringer("reason", res.Failure))
	}
	return res
}

func (r *HTTPResolver) resolve(ctx context.Context, ref string) Resolution {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return Fallback(ref, "empty reference", nil)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Fallback(ref, "invalid reference", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Fallback(ref, "unsupported scheme", nil)
	}

	if r.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.options.Timeout)
		defer cancel()
	}

	data, err := r.fetch(ctx, u.String())
	if err != nil {
		return Fallback(ref, "fetch failed", err)
	}

	img, err := Decode(data, r.options.MaxPixels)
	if errors.Is(err, ErrTooManyPixels) {
		return Fallback(ref, "image too large", err)
	}
	if err != nil {
		return Fallback(ref, "decode failed", err)
	}
	return Resolved(ref, img)
}

func (r *HTTPResolver) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.options.UserAgent != "" {
		req.Header.Set("User-Agent", r.options.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if r.options.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, r.options.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if r.options.MaxBytes > 0 && int64(len(data)) > r.options.MaxBytes {
		return nil, errTooLarge
	}
	return data, nil
}

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	"image/jpeg": {jpeg.Decode, jpeg.DecodeConfig},
	"image/png":  {png.Decode, png.DecodeConfig},
	"image/gif":  {gif.Decode, gif.DecodeConfig},
	"image/webp": {webp.Decode, webp.DecodeConfig},
}

// Decode sniffs and fully decodes data. JPEG passes through unchanged; PNG,
// GIF and WEBP are re-encoded as plain PNG so the PDF writer always accepts
// them. Images declaring more than maxPixels pixels are rejected from their
// header alone; maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int64) (*Image, error) {
	mtype := mimetype.Detect(data)

	var (
		c     codec
		known bool
	)
	for name, candidate := range codecs {
		if mtype.Is(name) {
			c, known = candidate, true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unsupported media type %s", mtype.String())
	}

	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", mtype.String(), err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}

	decoded, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", mtype.String(), err)
	}
	b := decoded.Bounds()
	if mtype.Is("image/jpeg") {
		return &Image{Data: data, Type: TypeJPG, Width: b.Dx(), Height: b.Dy()}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("failed to re-encode image: %w", err)
	}
	return &Image{Data: buf.Bytes(), Type: TypePNG, Width: b.Dx(), Height: b.Dy()}, nil
}
