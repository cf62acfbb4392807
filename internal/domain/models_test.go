package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

func TestArticleUnmarshalCoercesScalars(t *testing.T) {
	var a domain.Article
	err := json.Unmarshal([]byte(`{"title":42,"summary":true,"date":"2024-05-01","source":null}`), &a)
	require.NoError(t, err)

	assert.Equal(t, domain.Article{Title: "42", Summary: "true", Date: "2024-05-01"}, a)
}

func TestArticleUnmarshalFlattensNestedValues(t *testing.T) {
	var a domain.Article
	err := json.Unmarshal([]byte(`{"title":{"zh":"B"},"summary":["x",1],"date":"2024-05-01"}`), &a)
	require.NoError(t, err)

	assert.Equal(t, `{"zh":"B"}`, a.Title)
	assert.Equal(t, `["x",1]`, a.Summary)
	assert.Equal(t, "2024-05-01", a.Date)
}

func TestArticleUnmarshalNonObjectIsEmpty(t *testing.T) {
	var list []domain.Article
	err := json.Unmarshal([]byte(`["oops",{"title":"A"}]`), &list)
	require.NoError(t, err)

	assert.Equal(t, []domain.Article{{}, {Title: "A"}}, list)
}

func TestArticleUnmarshalYAMLCoerces(t *testing.T) {
	var list []domain.Article
	err := yaml.Unmarshal([]byte(`
- title: 42
  summary: {zh: B}
  date: "2024-05-01"
  source: ~
- plain
`), &list)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, domain.Article{Title: "42", Summary: `{"zh":"B"}`, Date: "2024-05-01"}, list[0])
	assert.Equal(t, domain.Article{}, list[1])
}

func TestCollectionMarshalFieldOrder(t *testing.T) {
	c := domain.Collection{
		LastUpdated: "2024-05-01",
		News:        []domain.Article{{Title: "B", Summary: "s2", Date: "2024-05-01", Source: "Y", URL: "u2"}},
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	assert.Equal(t,
		`{"last_updated":"2024-05-01","news":[{"title":"B","summary":"s2","date":"2024-05-01","source":"Y","url":"u2"}]}`,
		string(data))
}
