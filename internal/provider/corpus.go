package provider

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/enhance_sentences.yaml
var defaultCorpusYAML []byte

// Entry is one known input and its candidate enhancements.
type Entry struct {
	Input   string   `yaml:"input"`
	Outputs []string `yaml:"outputs"`
}

// Corpus is an in-memory dataset of entries indexed by normalized input.
type Corpus struct {
	entries []Entry
	index   map[string]int
}

// corpusFile is the on-disk layout of a corpus dataset.
type corpusFile struct {
	Sessions []Entry `yaml:"sessions"`
}

// NewCorpus builds a Corpus from entries. Entries whose input normalizes to
// an empty key are rejected. When two entries share a key the first one wins.
func NewCorpus(entries []Entry) (*Corpus, error) {
	c := &Corpus{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		key := Normalize(e.Input)
		if key == "" {
			return nil, fmt.Errorf("corpus entry %d: input is empty", i)
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = len(c.entries)
		c.entries = append(c.entries, Entry{
			Input:   e.Input,
			Outputs: append([]string(nil), e.Outputs...),
		})
	}
	return c, nil
}

// LoadCorpus parses a YAML corpus with a top-level "sessions" list.
func LoadCorpus(r io.Reader) (*Corpus, error) {
	var f corpusFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return NewCorpus(nil)
		}
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	return NewCorpus(f.Sessions)
}

// LoadCorpusFile loads a YAML corpus from path.
func LoadCorpusFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	c, err := LoadCorpus(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// DefaultCorpus returns the dataset bundled with the binary.
func DefaultCorpus() (*Corpus, error) {
	return LoadCorpus(bytes.NewReader(defaultCorpusYAML))
}

// Len returns the number of distinct inputs.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the corpus entries in load order.
func (c *Corpus) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{Input: e.Input, Outputs: append([]string(nil), e.Outputs...)}
	}
	return out
}

// Candidates implements CandidateSource.
func (c *Corpus) Candidates(_ context.Context, key string) ([]string, bool, error) {
	i, ok := c.index[key]
	if !ok {
		return nil, false, nil
	}
	return c.entries[i].Outputs, true, nil
}
