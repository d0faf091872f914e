// Package resolve turns user input (a content identifier or a URL) into
// a Descriptor naming the file to download and what it should look like.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamwoolhether/bookfetch/validate"
)

var (
	// ErrNotFound means a resolver does not know the source. [Chain] moves
	// on to the next resolver.
	ErrNotFound = errors.New("source not found")
	// ErrUnidentifiable means a source is neither a content id nor a URL.
	ErrUnidentifiable = errors.New("source is neither a content id nor a URL")
)

// Descriptor is the resolved metadata of one downloadable file. Size is
// zero and Checksum empty when unknown.
type Descriptor struct {
	URL       string `yaml:"url" json:"url" validate:"required,http_url"`
	Size      int64  `yaml:"size,omitempty" json:"size,omitempty" validate:"gte=0"`
	Checksum  string `yaml:"checksum,omitempty" json:"checksum,omitempty" validate:"omitempty,hexadecimal"`
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty" validate:"omitempty,oneof=md5 sha256"`
	Filename  string `yaml:"filename" json:"filename" validate:"required,excludesall=/\\,ne=.,ne=.."`
}

// Validate checks the descriptor is usable for a download.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	return nil
}

// Resolver maps a source to a Descriptor.
type Resolver interface {
	Resolve(ctx context.Context, source string) (Descriptor, error)
}

// Func adapts a function to a Resolver.
type Func func(ctx context.Context, source string) (Descriptor, error)

func (f Func) Resolve(ctx context.Context, source string) (Descriptor, error) {
	return f(ctx, source)
}

// Chain asks each resolver in turn and returns the first answer that is
// not ErrNotFound.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, source string) (Descriptor, error) {
	for _, r := range c {
		d, err := r.Resolve(ctx, source)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return d, err
	}

	return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, source)
}
