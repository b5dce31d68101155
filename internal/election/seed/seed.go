// Package seed reads candidate lists used to populate a new election.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	platformstrings "ballotledger/pkg/platform/strings"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the on-disk seed format.
type File struct {
	Candidates []Entry `yaml:"candidates"`
}

type Entry struct {
	Name string `yaml:"name"`
}

// Names returns the trimmed candidate names in file order. A name listed
// twice is kept once.
func (f File) Names() []string {
	names := make([]string, 0, len(f.Candidates))
	for _, c := range f.Candidates {
		names = append(names, c.Name)
	}
	return platformstrings.CompactTrimmed(names)
}

// Parse decodes a seed document. Unknown keys and blank names are errors so
// a typo does not silently register nothing.
func Parse(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, c := range f.Candidates {
		if strings.TrimSpace(c.Name) == "" {
			return File{}, fmt.Errorf("seed candidate %d has an empty name", i+1)
		}
	}
	return f, nil
}

// Load reads and parses the seed file at path.
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Default returns the built-in deployment seed.
func Default() File {
	f, err := Parse(bytes.NewReader(defaultSeed))
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return f
}
