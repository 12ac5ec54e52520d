// Package config reads and writes arkki profile files.
//
// A profile file is a flat, section-delimited text document:
//
//	[options]
//	compress=bzip2
//	root=/home/user
//
//	[exclude]
//	pattern=*.tmp
//
// Parsing is forgiving: unknown sections and stray lines are ignored, and a
// line without "=" is read as a key with an empty value.
package config

import (
	"strings"

	"github.com/fgeck/arkki/internal/models"
)

// Section names.
const (
	SectionOptions = "options"
	SectionExclude = "exclude"

	patternKey = "pattern"
)

// entry is one key/value line together with the section it appeared in.
type entry struct {
	section string
	key     string
	value   string
}

// Parse reads a profile document into a configuration.
func Parse(text string) *models.Configuration {
	return fold(tokenize(text))
}

// tokenize splits text into (section, key, value) entries. Header lines only
// change the current section and produce no entry.
func tokenize(text string) []entry {
	var entries []entry
	section := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") && len(line) >= 2 {
			section = line[1 : len(line)-1]
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		entries = append(entries, entry{section: section, key: key, value: value})
	}

	return entries
}

// fold applies entries in order, so the last duplicate option wins.
func fold(entries []entry) *models.Configuration {
	cfg := models.NewConfiguration()

	for _, e := range entries {
		switch e.section {
		case SectionOptions:
			if e.key == "" {
				continue
			}
			cfg.Options[e.key] = e.value
		case SectionExclude:
			if e.key != patternKey || e.value == "" {
				continue
			}
			cfg.AddPattern(e.value)
		}
	}

	return cfg
}

// Serialize renders cfg with options and patterns in lexicographic order.
// Both sections are always present.
func Serialize(cfg *models.Configuration) string {
	var b strings.Builder

	b.WriteString("[" + SectionOptions + "]\n")
	for _, name := range cfg.OptionNames() {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(cfg.Options[name])
		b.WriteByte('\n')
	}

	b.WriteString("\n[" + SectionExclude + "]\n")
	for _, p := range cfg.Patterns() {
		b.WriteString(patternKey)
		b.WriteByte('=')
		b.WriteString(p)
		b.WriteByte('\n')
	}

	return b.String()
}
