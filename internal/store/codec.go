// Package store loads and persists the digest collection.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

// Format names a serialization of a collection.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var errMissingNews = errors.New("document has no news list")

// FormatFor picks the format from a path or object key extension. JSON is the default.
func FormatFor(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode renders c as indented, human-readable text.
func Encode(c domain.Collection, format Format) ([]byte, error) {
	if c.News == nil {
		c.News = []domain.Article{}
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("encode yaml collection: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml collection: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json collection: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported collection format %q", format)
	}
}

// document mirrors Collection but keeps News as a pointer so a missing list is detectable.
type document struct {
	LastUpdated string            `json:"last_updated" yaml:"last_updated"`
	News        *[]domain.Article `json:"news" yaml:"news"`
}

// Decode parses data into a collection. A document without a news list is an error.
func Decode(data []byte, format Format) (domain.Collection, error) {
	var doc document

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return domain.Collection{}, fmt.Errorf("decode yaml collection: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.Collection{}, fmt.Errorf("decode json collection: %w", err)
		}
	default:
		return domain.Collection{}, fmt.Errorf("unsupported collection format %q", format)
	}

	if doc.News == nil {
		return domain.Collection{}, errMissingNews
	}

	return domain.Collection{LastUpdated: doc.LastUpdated, News: *doc.News}, nil
}
