package resolve

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/adamwoolhether/bookfetch/client"
)

// Option configures the resolvers of this package.
type Option func(*options) error

type options struct {
	ext string
}

// WithExt makes every resolved filename end with ext, ".pdf" for
// textbooks.
func WithExt(ext string) Option {
	return func(o *options) error {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
		o.ext = ext
		return nil
	}
}

func applyOptions(optFns []Option) (options, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, fmt.Errorf("applying resolve option: %w", err)
		}
	}
	return opts, nil
}

// Direct resolves sources that already are file URLs. Size, checksum and
// filename come from the headers of a HEAD request.
type Direct struct {
	client *client.Client
	opts   options
}

// NewDirect builds a Direct resolver issuing its HEAD requests through c.
func NewDirect(c *client.Client, optFns ...Option) (*Direct, error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}

	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	return &Direct{client: c, opts: opts}, nil
}

// Resolve returns ErrNotFound for sources that are not plain http(s) URLs,
// including platform page URLs carrying a content id.
func (d *Direct) Resolve(ctx context.Context, source string) (Descriptor, error) {
	if _, ok := ContentID(source); ok {
		return Descriptor{}, ErrNotFound
	}

	u, ok := httpURL(source)
	if !ok {
		return Descriptor{}, ErrNotFound
	}

	return d.describe(ctx, u, "")
}

// describe issues a HEAD request for u. fallback names the file when
// neither the response nor the URL path does.
func (d *Direct) describe(ctx context.Context, u *url.URL, fallback string) (Descriptor, error) {
	desc := Descriptor{URL: u.String()}

	req, err := d.client.Request(ctx, u, http.MethodHead)
	if err != nil {
		return Descriptor{}, fmt.Errorf("building head request: %w", err)
	}

	var disposition string
	err = d.client.Do(req, http.StatusOK, client.WithInspect(func(resp *http.Response) error {
		if resp.ContentLength > 0 {
			desc.Size = resp.ContentLength
		}
		desc.Checksum = contentMD5(resp.Header.Get("Content-MD5"))
		disposition = resp.Header.Get("Content-Disposition")
		// Redirects are followed, the final URL is the one to download.
		if resp.Request != nil && resp.Request.URL != nil {
			desc.URL = resp.Request.URL.String()
		}
		return nil
	}))
	if err != nil {
		statusErr, ok := errors.AsType[*client.UnexpectedStatusError](err)
		if !ok || (statusErr.StatusCode != http.StatusMethodNotAllowed && statusErr.StatusCode != http.StatusNotImplemented) {
			return Descriptor{}, fmt.Errorf("head %s: %w", u.Redacted(), err)
		}
		// HEAD unsupported: download blind.
	}

	if desc.Checksum != "" {
		desc.Algorithm = "md5"
	}

	name := dispositionFilename(disposition)
	if name == "" {
		name = filenameFromURL(u)
	}
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = u.Host
	}
	desc.Filename = EnsureExt(SanitizeFilename(name), d.opts.ext)

	return desc, nil
}

// contentMD5 converts a Content-MD5 header, base64 per RFC 1864 or bare
// hex as some servers send it, to lower-case hex.
func contentMD5(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}

	if len(v) == 32 {
		if _, err := hex.DecodeString(v); err == nil {
			return strings.ToLower(v)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(raw) != 16 {
		return ""
	}

	return hex.EncodeToString(raw)
}

func dispositionFilename(v string) string {
	if v == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}

	return params["filename"]
}
