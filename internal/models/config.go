// Package models contains the data structures used throughout arkki.
package models

import "sort"

// Recognized option names.
const (
	OptionVersion  = "version"
	OptionRoot     = "root"
	OptionOutput   = "output"
	OptionEncrypt  = "encrypt"
	OptionCompress = "compress"
)

// Compression choices for OptionCompress. Any other value disables compression.
const (
	CompressBzip2 = "bzip2"
	CompressGzip  = "gzip"
)

// Configuration is the persisted state of one profile.
type Configuration struct {
	Options  map[string]string
	Excludes map[string]struct{}
}

// NewConfiguration returns an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{
		Options:  make(map[string]string),
		Excludes: make(map[string]struct{}),
	}
}

// Get returns the value of option name, or def when the option is missing or
// empty. A nil configuration yields def.
func (c *Configuration) Get(name, def string) string {
	if c == nil || name == "" {
		return def
	}
	if v, ok := c.Options[name]; ok && v != "" {
		return v
	}
	return def
}

// Set updates an option. An empty value removes it.
func (c *Configuration) Set(name, value string) {
	if value == "" {
		delete(c.Options, name)
		return
	}
	c.Options[name] = value
}

// AddPattern inserts an exclude pattern and reports whether it was new.
func (c *Configuration) AddPattern(pattern string) bool {
	if _, ok := c.Excludes[pattern]; ok {
		return false
	}
	c.Excludes[pattern] = struct{}{}
	return true
}

// RemovePattern deletes an exclude pattern and reports whether it was present.
func (c *Configuration) RemovePattern(pattern string) bool {
	if _, ok := c.Excludes[pattern]; !ok {
		return false
	}
	delete(c.Excludes, pattern)
	return true
}

// Patterns returns the exclude patterns in lexicographic order.
func (c *Configuration) Patterns() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Excludes))
	for p := range c.Excludes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// OptionNames returns the option names in lexicographic order.
func (c *Configuration) OptionNames() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Options))
	for k := range c.Options {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults describes the values written by a freshly created configuration.
type Defaults struct {
	Version  string
	Home     string
	Compress string
	Excludes []string
}
