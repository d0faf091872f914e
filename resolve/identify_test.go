package resolve

import (
	"errors"
	"testing"
)

const bookID = "6a3ac03a-1b2c-4d5e-8f90-123456789abc"

func TestIdentify(t *testing.T) {
	testCases := map[string]struct {
		source string
		exp    string
		expErr error
	}{
		"uuid":            {source: bookID, exp: bookID},
		"uuid upper case": {source: "6A3AC03A-1B2C-4D5E-8F90-123456789ABC", exp: bookID},
		"uuid padded":     {source: "  " + bookID + "\t", exp: bookID},
		"page url":        {source: "https://basic.example.com/tchMaterial/detail?contentType=assets&contentId=" + bookID, exp: bookID},
		"page url bad id": {source: "https://basic.example.com/detail?contentId=nope", exp: "https://basic.example.com/detail?contentId=nope"},
		"file url":        {source: "HTTPS://CDN.Example.com/Books/a.pdf#page=2", exp: "https://cdn.example.com/Books/a.pdf"},
		"ftp url":         {source: "ftp://example.com/a.pdf", expErr: ErrUnidentifiable},
		"garbage":         {source: "not a book", expErr: ErrUnidentifiable},
		"braced uuid":     {source: "{" + bookID + "}", expErr: ErrUnidentifiable},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := Identify(tc.source)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("expected err %v, got %v", tc.expErr, err)
			}
			if got != tc.exp {
				t.Errorf("Identify(%q) = %q, want %q", tc.source, got, tc.exp)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	testCases := map[string]string{
		"plain.pdf":           "plain.pdf",
		`a<b>c:d"e/f\g|h?i*j`: "a_b_c_d_e_f_g_h_i_j",
		"tab\there.pdf":       "tabhere.pdf",
		"  spaced.pdf  ":      "spaced.pdf",
		"":                    "_",
		"..":                  "_",
		"语文 七年级 上册.pdf":       "语文 七年级 上册.pdf",
	}

	for in, exp := range testCases {
		if got := SanitizeFilename(in); got != exp {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, exp)
		}
	}
}

func TestEnsureExt(t *testing.T) {
	testCases := []struct {
		name, ext, exp string
	}{
		{name: "book", ext: ".pdf", exp: "book.pdf"},
		{name: "book.PDF", ext: ".pdf", exp: "book.PDF"},
		{name: "book.pdf", ext: ".pdf", exp: "book.pdf"},
		{name: "book", ext: "", exp: "book"},
	}

	for _, tc := range testCases {
		if got := EnsureExt(tc.name, tc.ext); got != tc.exp {
			t.Errorf("EnsureExt(%q, %q) = %q, want %q", tc.name, tc.ext, got, tc.exp)
		}
	}
}

func TestContentMD5(t *testing.T) {
	testCases := map[string]string{
		"":                                 "",
		"XrY7u+Ae7tCTyyK7j1rNww==":         "5eb63bbbe01eeed093cb22bb8f5acdc3",
		"5EB63BBBE01EEED093CB22BB8F5ACDC3": "5eb63bbbe01eeed093cb22bb8f5acdc3",
		"not-base64!":                      "",
		"c2hvcnQ=":                         "",
	}

	for in, exp := range testCases {
		if got := contentMD5(in); got != exp {
			t.Errorf("contentMD5(%q) = %q, want %q", in, got, exp)
		}
	}
}
