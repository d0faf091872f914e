package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Manifest resolves sources from a list of known files, typically
// exported from the platform ahead of time.
//
//	books:
//	  - id: 6a3ac03a-1b2c-4d5e-8f90-123456789abc
//	    url: https://cdn.example.com/books/math-7a.pdf
//	    size: 48213377
//	    checksum: 9e107d9d372bb6826bd81d3542a419d6
//	    filename: Math 7A.pdf
type Manifest struct {
	entries map[string]Descriptor
	ids     []string
	opts    options
}

type manifestFile struct {
	Books []manifestEntry `yaml:"books"`
}

type manifestEntry struct {
	ID         string `yaml:"id"`
	Descriptor `yaml:",inline"`
}

// LoadManifest reads a manifest from a YAML file.
func LoadManifest(path string, optFns ...Option) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	return ParseManifest(f, optFns...)
}

// ParseManifest reads a manifest from r. Entry ids go through [Identify],
// so an entry may be keyed by a content id or by a URL. Every entry must
// form a valid descriptor.
func ParseManifest(r io.Reader, optFns ...Option) (*Manifest, error) {
	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	var mf manifestFile
	if err := yaml.NewDecoder(r).Decode(&mf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	m := Manifest{
		entries: make(map[string]Descriptor, len(mf.Books)),
		opts:    opts,
	}

	for i, e := range mf.Books {
		id, err := Identify(e.ID)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}

		d := e.Descriptor
		if d.Filename == "" {
			d.Filename = id
		}
		d.Filename = EnsureExt(SanitizeFilename(d.Filename), opts.ext)
		if d.Checksum != "" && d.Algorithm == "" {
			d.Algorithm = "md5"
		}

		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("manifest entry %d (%s): %w", i, e.ID, err)
		}

		if _, dup := m.entries[id]; !dup {
			m.ids = append(m.ids, id)
		}
		m.entries[id] = d
	}

	return &m, nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// IDs returns the entry ids in file order. A later entry with the same
// id replaces the earlier one but keeps its position.
func (m *Manifest) IDs() []string {
	return slices.Clone(m.ids)
}

func (m *Manifest) Resolve(_ context.Context, source string) (Descriptor, error) {
	id, err := Identify(source)
	if err != nil {
		return Descriptor{}, ErrNotFound
	}

	d, ok := m.entries[id]
	if !ok {
		return Descriptor{}, ErrNotFound
	}

	return d, nil
}
