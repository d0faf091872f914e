package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputIsFile rejects a batch whose output names an existing file.
var ErrOutputIsFile = errors.New("output must be a directory when fetching several books")

// Sources collects the inputs of every kind in the order URLs, content
// ids, input file lines.
func (c Config) Sources() ([]string, error) {
	sources := make([]string, 0, len(c.URLs)+len(c.ContentIDs))
	sources = append(sources, c.URLs...)
	sources = append(sources, c.ContentIDs...)

	if c.InputFile != "" {
		f, err := os.Open(c.InputFile)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()

		lines, err := ReadSources(f)
		if err != nil {
			return nil, fmt.Errorf("reading input file %s: %w", c.InputFile, err)
		}
		sources = append(sources, lines...)
	}

	return sources, nil
}

// Batch reports whether a run over n sources counts as a batch. Reading
// an input file always does.
func (c Config) Batch(n int) bool {
	return n > 1 || c.InputFile != ""
}

// ReadSources reads one source per line. Lines are trimmed; blank lines
// and lines starting with # are skipped.
func ReadSources(r io.Reader) ([]string, error) {
	var sources []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return sources, nil
}

// Destination splits the output setting into the directory books are
// written to and, for a single book, an optional file name overriding
// the resolved one.
//
// An output ending in a separator, an existing directory, or a path
// without an extension that does not exist yet is a directory. For a
// single book anything else names the file. A batch may not point at an
// existing file.
func (c Config) Destination(batch bool) (dir, filename string, err error) {
	out := c.Output
	if out == "" {
		out = "."
	}

	info, statErr := os.Stat(out)
	exists := statErr == nil

	if batch {
		if exists && !info.IsDir() {
			return "", "", fmt.Errorf("%w: %s", ErrOutputIsFile, out)
		}
		return out, "", nil
	}

	switch {
	case strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(filepath.Separator)):
		return out, "", nil
	case exists && info.IsDir():
		return out, "", nil
	case !exists && filepath.Ext(out) == "":
		return out, "", nil
	}

	return filepath.Dir(out), filepath.Base(out), nil
}
