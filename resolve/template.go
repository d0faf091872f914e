package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// IDPlaceholder is replaced by the content id in a Template URL.
const IDPlaceholder = "{id}"

// Template resolves content ids by substituting them into a file URL
// template, then describing that URL like [Direct] does.
type Template struct {
	tmpl   string
	direct *Direct
}

// NewTemplate builds a Template resolver. tmpl must be an absolute http(s)
// URL containing {id}.
func NewTemplate(tmpl string, direct *Direct) (*Template, error) {
	if direct == nil {
		return nil, errors.New("direct resolver must not be nil")
	}
	if !strings.Contains(tmpl, IDPlaceholder) {
		return nil, fmt.Errorf("template %q has no %s placeholder", tmpl, IDPlaceholder)
	}
	if _, ok := httpURL(strings.ReplaceAll(tmpl, IDPlaceholder, "x")); !ok {
		return nil, fmt.Errorf("template %q is not an http(s) URL", tmpl)
	}

	return &Template{tmpl: tmpl, direct: direct}, nil
}

// Resolve returns ErrNotFound for sources without a content id.
func (t *Template) Resolve(ctx context.Context, source string) (Descriptor, error) {
	id, ok := ContentID(source)
	if !ok {
		return Descriptor{}, ErrNotFound
	}

	u, err := url.Parse(strings.ReplaceAll(t.tmpl, IDPlaceholder, url.PathEscape(id)))
	if err != nil {
		return Descriptor{}, fmt.Errorf("expanding template: %w", err)
	}

	return t.direct.describe(ctx, u, id)
}
