// Package abcplay compiles ABC tunes and plays or renders them.
package abcplay

import (
	"github.com/cbegin/abcplay-go/internal/abc"
	"github.com/cbegin/abcplay-go/internal/source"
)

// Compile parses an ABC tune with the default parser settings.
func Compile(abcText string) (*abc.Song, error) {
	return abc.NewParser(abc.DefaultParserConfig()).Parse(abcText)
}

// CompileFile loads, decodes and compiles the tune at path.
func CompileFile(path string) (*abc.Song, error) {
	text, err := source.Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(text)
}
