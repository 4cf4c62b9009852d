// Package seed loads phrase files and carries the default phrase pool.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/japaniel/tossa/pkg/phrase"
)

//go:embed phrases.yaml
var defaultPool []byte

// File is the on-disk phrase file layout. A bare list of phrases is accepted too.
type File struct {
	Phrases []Entry `yaml:"phrases"`
}

// Entry is one phrase as written in a file. jp/en are accepted as aliases of
// native/target.
type Entry struct {
	ID           string                 `yaml:"id"`
	Native       string                 `yaml:"native,omitempty"`
	Target       string                 `yaml:"target,omitempty"`
	JP           string                 `yaml:"jp,omitempty"`
	EN           string                 `yaml:"en,omitempty"`
	Tags         []string               `yaml:"tags,omitempty"`
	Class        *phrase.Classification `yaml:"class,omitempty"`
	MeaningGroup string                 `yaml:"meaning_group,omitempty"`
	Reading      string                 `yaml:"reading,omitempty"`
}

func (e Entry) toPhrase() phrase.Phrase {
	p := phrase.Phrase{
		ID:           strings.TrimSpace(e.ID),
		Native:       e.Native,
		Target:       e.Target,
		Class:        e.Class,
		MeaningGroup: e.MeaningGroup,
		Reading:      e.Reading,
	}
	if p.Native == "" {
		p.Native = e.JP
	}
	if p.Target == "" {
		p.Target = e.EN
	}
	for _, t := range e.Tags {
		if t = strings.TrimSpace(t); t != "" {
			p.Tags = append(p.Tags, t)
		}
	}
	return p
}

func fromPhrase(p phrase.Phrase) Entry {
	return Entry{
		ID:           p.ID,
		Native:       p.Native,
		Target:       p.Target,
		Tags:         p.Tags,
		Class:        p.Class,
		MeaningGroup: p.MeaningGroup,
		Reading:      p.Reading,
	}
}

// Default returns the embedded phrase pool.
func Default() ([]phrase.Phrase, error) {
	return Parse(defaultPool)
}

// Load reads a YAML or JSON phrase file.
func Load(path string) ([]phrase.Phrase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrase file: %w", err)
	}
	phrases, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return phrases, nil
}

// Parse decodes a phrase document. JSON input is parsed as YAML.
func Parse(data []byte) ([]phrase.Phrase, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse phrases: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var entries []Entry
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse phrases: %w", err)
		}
	case yaml.MappingNode:
		var f File
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse phrases: %w", err)
		}
		entries = f.Phrases
	default:
		return nil, fmt.Errorf("parse phrases: expected a list or a phrases: key")
	}

	out := make([]phrase.Phrase, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.toPhrase())
	}
	return out, nil
}

// Write encodes phrases as a YAML phrase file.
func Write(w io.Writer, phrases []phrase.Phrase) error {
	f := File{Phrases: make([]Entry, 0, len(phrases))}
	for _, p := range phrases {
		f.Phrases = append(f.Phrases, fromPhrase(p))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode phrases: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
