// Package credential supplies the bearer token requests are
// authenticated with.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFile is the token file read from the working directory.
const DefaultFile = ".access_token"

var (
	// ErrNoToken means a provider has no token to offer.
	ErrNoToken = errors.New("no token available")
	// ErrEmptyToken rejects saving a blank token.
	ErrEmptyToken = errors.New("token must not be empty")
)

// Provider hands out the current token. Token is cheap and never blocks;
// Refresh may do I/O to obtain a newer one.
type Provider interface {
	Token() (string, bool)
	Refresh(ctx context.Context) (string, error)
}

// Static is a token given up front, through a flag or the environment.
type Static string

func (s Static) Token() (string, bool) {
	tok := strings.TrimSpace(string(s))
	return tok, tok != ""
}

// Refresh cannot obtain anything new and returns the same token.
func (s Static) Refresh(context.Context) (string, error) {
	if tok, ok := s.Token(); ok {
		return tok, nil
	}
	return "", ErrNoToken
}

// File reads the token from a plain text file holding nothing but the
// token. The file is read on first use and again on Refresh.
type File struct {
	path string

	mu     sync.Mutex
	loaded bool
	token  string
}

// NewFile returns a File provider for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the token file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Token() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		f.token, _ = f.read()
		f.loaded = true
	}

	return f.token, f.token != ""
}

func (f *File) Refresh(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tok, err := f.read()
	if err != nil {
		return "", err
	}

	f.token, f.loaded = tok, true
	return tok, nil
}

func (f *File) read() (string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoToken, f.path)
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, f.path)
	}

	return tok, nil
}

// Save persists token, readable by the owner only. The file is replaced
// atomically so a concurrent reader never sees half a token.
func (f *File) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".token-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting token file: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}

	f.mu.Lock()
	f.token, f.loaded = token, true
	f.mu.Unlock()

	return nil
}

// Chain offers the token of the first provider that has one.
type Chain []Provider

func (c Chain) Token() (string, bool) {
	for _, p := range c {
		if tok, ok := p.Token(); ok {
			return tok, true
		}
	}
	return "", false
}

// Refresh returns the first successful refresh. All errors are reported
// when none succeeds.
func (c Chain) Refresh(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		tok, err := p.Refresh(ctx)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(errs...)
}
