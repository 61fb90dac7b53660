package internal

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Parser reads an opportunity export into raw rows keyed by column name.
// Parsers validate the header and return a SchemaError when a required
// column is missing.
type Parser interface {
	Parse(path string) ([]RawRecord, error)
}

// ParserFunc is a function that implements Parser
type ParserFunc func(path string) ([]RawRecord, error)

func (f ParserFunc) Parse(path string) ([]RawRecord, error) {
	return f(path)
}

// parsers is the registry of available parsers
var parsers = map[string]Parser{}

// extensions maps file extensions to the parser used when no source is given
var extensions = map[string]string{}

// RegisterParser registers a parser with the given name and default extensions
func RegisterParser(name string, p Parser, exts ...string) {
	parsers[name] = p
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = name
	}
}

// GetParser returns the parser for the given source type
func GetParser(source string) (Parser, error) {
	p, ok := parsers[source]
	if !ok {
		return nil, errors.Newf("unknown source type: %s (available: %v)", source, AvailableSources())
	}
	return p, nil
}

// AvailableSources returns the registered source types, sorted
func AvailableSources() []string {
	var sources []string
	for name := range parsers {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// IsKnownParser returns true if the name is a registered parser
func IsKnownParser(name string) bool {
	_, ok := parsers[name]
	return ok
}

// DetectSource picks a parser from the file extension.
func DetectSource(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if name, ok := extensions[ext]; ok {
		return name, nil
	}
	return "", errors.WithHint(
		errors.Newf("cannot detect source type of %s", path),
		"pass --source or prefix the file with a format, e.g. opportunities-csv:"+path)
}

// ParseFileArg parses a file argument that may have a format prefix.
// Returns (format, path). If no valid prefix, format is empty.
// Example: "opportunities-csv:export.txt" → ("opportunities-csv", "export.txt")
// Example: "export.csv" → ("", "export.csv")
// Example: "C:\path\file.xlsx" → ("", "C:\path\file.xlsx") // Windows path
func ParseFileArg(arg string) (format, path string) {
	idx := strings.Index(arg, ":")
	if idx == -1 {
		return "", arg
	}
	prefix := arg[:idx]
	if IsKnownParser(prefix) {
		return prefix, arg[idx+1:]
	}
	return "", arg // Not a known parser, treat whole thing as path
}

// ReadEvents parses a file with the named source (detected when empty) and
// converts its rows into events.
func ReadEvents(source, path string, cfg *Config) ([]Event, error) {
	if source == "" {
		detected, err := DetectSource(path)
		if err != nil {
			return nil, err
		}
		source = detected
	}
	p, err := GetParser(source)
	if err != nil {
		return nil, err
	}
	rows, err := p.Parse(path)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return BuildEvents(rows, cfg), nil
}
