package download

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}

	return path
}

func TestVerify(t *testing.T) {
	data := []byte("a textbook worth of bytes")
	sha := sha256.Sum256(data)

	testCases := []struct {
		name string
		exp  Expected
		want bool
	}{
		{name: "nothing expected", exp: Expected{}, want: true},
		{name: "size match", exp: Expected{Size: int64(len(data))}, want: true},
		{name: "size mismatch", exp: Expected{Size: 1}, want: false},
		{name: "md5 match", exp: Expected{Checksum: md5Hex(data)}, want: true},
		{name: "md5 match upper case", exp: Expected{Checksum: " " + upper(md5Hex(data)) + "\n"}, want: true},
		{name: "md5 mismatch", exp: Expected{Checksum: md5Hex([]byte("other"))}, want: false},
		{name: "size ok checksum bad", exp: Expected{Size: int64(len(data)), Checksum: "00"}, want: false},
		{name: "size bad checksum ok", exp: Expected{Size: 3, Checksum: md5Hex(data)}, want: false},
		{name: "sha256 match", exp: Expected{Checksum: hex.EncodeToString(sha[:]), Algorithm: AlgorithmSHA256}, want: true},
	}

	path := writeFile(t, "book.pdf", data)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Verify(path, tc.exp)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Verify() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerify_MissingFile(t *testing.T) {
	ok, err := Verify(filepath.Join(t.TempDir(), "absent.pdf"), Expected{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected missing file not to verify")
	}
}

func TestVerify_Directory(t *testing.T) {
	ok, err := Verify(t.TempDir(), Expected{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a directory not to verify")
	}
}

func TestVerify_UnsupportedAlgorithm(t *testing.T) {
	path := writeFile(t, "book.pdf", []byte("x"))

	_, err := Verify(path, Expected{Checksum: "ab", Algorithm: "crc32"})
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got: %v", err)
	}
}

func TestExpected_Match(t *testing.T) {
	exp := Expected{Size: 10, Checksum: "ABCDEF"}

	if err := exp.MatchSize(10); err != nil {
		t.Errorf("MatchSize(10): %v", err)
	}
	if err := exp.MatchSize(9); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("MatchSize(9): expected ErrSizeMismatch, got %v", err)
	}
	if err := exp.MatchChecksum("abcdef"); err != nil {
		t.Errorf("MatchChecksum: %v", err)
	}
	if err := exp.MatchChecksum("abcdee"); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("MatchChecksum: expected ErrChecksumMismatch, got %v", err)
	}

	var unknown Expected
	if err := unknown.MatchSize(123); err != nil {
		t.Errorf("unknown size should match, got %v", err)
	}
	if err := unknown.MatchChecksum("whatever"); err != nil {
		t.Errorf("unknown checksum should match, got %v", err)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
