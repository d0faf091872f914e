package download

import (
	"encoding/hex"
	"hash"
)

// checksumVerifier hashes the body as it streams to disk, so the
// finished file never has to be read back.
type checksumVerifier struct {
	hash     hash.Hash
	expected Expected
}

func newChecksumVerifier(exp Expected) (*checksumVerifier, error) {
	if !exp.HasChecksum() {
		return nil, nil
	}

	h, err := exp.NewHash()
	if err != nil {
		return nil, err
	}

	return &checksumVerifier{hash: h, expected: exp}, nil
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	return v.expected.MatchChecksum(hexSum(v.hash))
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
