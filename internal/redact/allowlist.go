package redact

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ErrInvalidAllowlist indicates an unparseable allowlist file or pattern.
var ErrInvalidAllowlist = errors.New("invalid allowlist")

// Allowlist holds content patterns that must never be treated as secrets.
// Typical entries are test fixtures and documented example tokens.
type Allowlist struct {
	Regexes   []string
	StopWords []string
}

// LoadAllowlist reads a TOML allowlist file. An empty path or a missing file
// yields a nil allowlist; an existing but invalid file is an error.
//
// Expected shape:
//
//	[allowlist]
//	regexes   = ["EXAMPLE_TOKEN_[A-Z]+"]
//	stopwords = ["sandbox"]
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var file struct {
		Allowlist struct {
			Regexes   []string `toml:"regexes"`
			Stopwords []string `toml:"stopwords"`
		} `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAllowlist, path, err)
	}

	// Fail fast on bad patterns so applyAllowlist can assume they compile.
	for _, pattern := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: pattern %q in %s: %v", ErrInvalidAllowlist, pattern, path, err)
		}
	}

	return &Allowlist{
		Regexes:   file.Allowlist.Regexes,
		StopWords: file.Allowlist.Stopwords,
	}, nil
}
