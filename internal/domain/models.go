package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DateLayout is the canonical calendar-date form used for record dates and markers.
const DateLayout = "2006-01-02"

// Article is a single news item. Title is the dedup key.
type Article struct {
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
	Date    string `json:"date" yaml:"date"`
	Source  string `json:"source" yaml:"source"`
	URL     string `json:"url" yaml:"url"`
}

// Collection is the persisted digest: a last-updated marker plus ordered articles.
type Collection struct {
	LastUpdated string    `json:"last_updated" yaml:"last_updated"`
	News        []Article `json:"news" yaml:"news"`
}

// UnmarshalJSON coerces every field value to text. Scalars keep their literal
// form, nested objects and arrays become compact JSON, and null or missing
// fields become empty strings. A record that is not an object decodes to an
// empty Article so validation drops it without failing its neighbours.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields, _ := raw.(map[string]any)

	out := Article{}
	for key, dst := range out.fields() {
		*dst = coerceText(fields[key])
	}
	*a = out
	return nil
}

// UnmarshalYAML applies the same coercion as UnmarshalJSON to YAML records.
func (a *Article) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	out := Article{}
	if node.Kind == yaml.MappingNode {
		dsts := out.fields()
		for i := 0; i+1 < len(node.Content); i += 2 {
			dst, ok := dsts[node.Content[i].Value]
			if !ok {
				continue
			}
			v, err := yamlText(node.Content[i+1])
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	*a = out
	return nil
}

func (a *Article) fields() map[string]*string {
	return map[string]*string{
		"title":   &a.Title,
		"summary": &a.Summary,
		"date":    &a.Date,
		"source":  &a.Source,
		"url":     &a.URL,
	}
}

func coerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func yamlText(node *yaml.Node) (string, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			return "", nil
		}
		return node.Value, nil
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return "", fmt.Errorf("decode nested value: %w", err)
	}
	return coerceText(v), nil
}
