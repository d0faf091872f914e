package download

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"
)

// verifyBufSize bounds memory used while hashing a file, regardless of its size.
const verifyBufSize = 32 << 10

// Checksum algorithms understood by [Expected].
const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
)

// Expected describes what a finished file should look like. A Size <= 0
// or an empty Checksum means that value is unknown and is not compared.
// Algorithm defaults to md5, the digest the platform publishes.
type Expected struct {
	Size      int64
	Checksum  string
	Algorithm string
}

// HasSize reports whether an expected size is known.
func (e Expected) HasSize() bool { return e.Size > 0 }

// HasChecksum reports whether an expected checksum is known.
func (e Expected) HasChecksum() bool { return strings.TrimSpace(e.Checksum) != "" }

// IsZero reports whether there is nothing to compare against.
func (e Expected) IsZero() bool { return !e.HasSize() && !e.HasChecksum() }

// NewHash returns a fresh hash for the configured algorithm.
func (e Expected) NewHash() (hash.Hash, error) {
	switch strings.ToLower(e.Algorithm) {
	case "", AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, e.Algorithm)
	}
}

// MatchSize compares n with the expected size. Unknown sizes always match.
func (e Expected) MatchSize(n int64) error {
	if !e.HasSize() || n == e.Size {
		return nil
	}

	return &Error{
		Err:    ErrSizeMismatch,
		Detail: fmt.Sprintf("expected %d bytes, got %d", e.Size, n),
	}
}

// MatchChecksum compares a hex digest with the expected checksum,
// ignoring case and surrounding whitespace. Unknown checksums always match.
func (e Expected) MatchChecksum(actual string) error {
	if !e.HasChecksum() {
		return nil
	}

	expected := strings.ToLower(strings.TrimSpace(e.Checksum))
	if strings.ToLower(actual) == expected {
		return nil
	}

	return &Error{
		Err:    ErrChecksumMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", expected, actual),
	}
}

// Verify reports whether the file at path matches exp. With nothing
// expected the file is accepted as is. The size is compared first since
// it only needs a stat; the checksum, when known, is authoritative and
// is computed by streaming the file through a fixed-size buffer.
//
// A missing file is reported as (false, nil).
func Verify(path string, exp Expected) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fsError("stat", err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	if exp.IsZero() {
		return true, nil
	}

	if exp.MatchSize(info.Size()) != nil {
		return false, nil
	}

	if !exp.HasChecksum() {
		return true, nil
	}

	sum, err := FileChecksum(path, exp)
	if err != nil {
		return false, err
	}

	return exp.MatchChecksum(sum) == nil, nil
}

// FileChecksum returns the hex digest of the file at path using exp's algorithm.
func FileChecksum(path string, exp Expected) (string, error) {
	h, err := exp.NewHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fsError("open", err)
	}
	defer f.Close()

	// Hide os.File's WriterTo so the buffer below is the one used.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, make([]byte, verifyBufSize)); err != nil {
		return "", fsError("read", err)
	}

	return hexSum(h), nil
}
