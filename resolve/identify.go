package resolve

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ContentIDParam is the query parameter platform page URLs carry the
// content id in.
const ContentIDParam = "contentId"

// ContentID extracts a content id from source: either source itself in
// canonical UUID form, or the contentId query parameter of a URL.
func ContentID(source string) (string, bool) {
	source = strings.TrimSpace(source)

	if id, ok := canonicalUUID(source); ok {
		return id, true
	}

	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return "", false
	}

	return canonicalUUID(u.Query().Get(ContentIDParam))
}

// Identify derives the stable task id of source. Content ids win; any
// other http(s) URL is identified by its normalised form.
func Identify(source string) (string, error) {
	if id, ok := ContentID(source); ok {
		return id, nil
	}

	u, ok := httpURL(source)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnidentifiable, source)
	}

	return u.String(), nil
}

func canonicalUUID(s string) (string, bool) {
	if len(s) != 36 {
		return "", false
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}

	return id.String(), true
}

// httpURL parses source as an absolute http(s) URL, normalising the
// scheme and host case and dropping any fragment.
func httpURL(source string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil || u.Host == "" {
		return nil, false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return u, true
}

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename replaces characters that are unsafe in file names on
// common filesystems with an underscore and drops control characters.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)

	name = strings.TrimSpace(unsafeChars.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "_"
	}

	return name
}

// EnsureExt appends ext to name unless it already ends with it, ignoring
// case. An empty ext leaves name untouched.
func EnsureExt(name, ext string) string {
	if ext == "" || strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}

// filenameFromURL returns the last path element of u, unescaped.
func filenameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
