package factdex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type article struct {
	Title string `json:"title"`
	Meta  struct {
		Published time.Time `json:"published"`
		Source    string    `json:"source,omitempty"`
	} `json:"meta"`
	Internal string `json:"-"`
	hidden   string
}

func TestSourceFields(t *testing.T) {
	fields, err := sourceFields[article]()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "meta.published", "meta.source"}, fields)

	_, err = sourceFields[string]()
	assert.Error(t, err)

	_, err = sourceFields[struct{ x int }]()
	assert.Error(t, err)
}

func TestNewIndex_NoDatasets(t *testing.T) {
	_, err := NewIndex[article](&Client{})
	assert.ErrorIs(t, err, ErrNoDatasets)
}

func TestTypedSearch(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := newTestClient(t, srv)

	idx, err := NewIndex[article](c, Dataset{Index: "news"})
	require.NoError(t, err)

	hits, err := idx.Search().Match("title", "election").Limit(5).Do(context.Background())
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Item.Title)
	assert.Equal(t, "2", hits[1].ID)
	assert.Equal(t, "news", hits[1].Index)

	body := fb.body("news")
	assert.EqualValues(t, 5, body["size"])
	assert.Equal(t, []any{"title", "meta.published", "meta.source"}, body["_source"])
}
