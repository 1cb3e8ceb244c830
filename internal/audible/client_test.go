package audible

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audtag/internal/shared"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Martian cd1", "The Martian"},
		{"The Martian - CD 2", "The Martian"},
		{"Project Hail Mary (Unabridged)", "Project Hail Mary"},
		{"Narrated By: Ray Porter Something", "Ray Porter Something"},
		{"  lots   of\tspace  ", "lots of space"},
		{"Plain Title", "Plain Title"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeQuery(tt.input), "input %q", tt.input)
	}
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "Andy Weir The Martian", BuildQuery("Andy Weir", "The Martian cd1"))
	assert.Equal(t, "The Martian", BuildQuery("", "The Martian"))
}

func TestUpgradeCoverURL(t *testing.T) {
	assert.Equal(t,
		"https://m.media-amazon.com/images/I/x._SL5000_.jpg",
		UpgradeCoverURL("https://m.media-amazon.com/images/I/x._SL500_.jpg"))
	assert.Equal(t,
		"https://m.media-amazon.com/images/I/x._SL5000_.jpg",
		UpgradeCoverURL("https://m.media-amazon.com/images/I/x._SX500_.jpg"))

	// no size token passes through unmodified
	plain := "https://m.media-amazon.com/images/I/x.jpg"
	assert.Equal(t, plain, UpgradeCoverURL(plain))
	assert.Equal(t, "", UpgradeCoverURL(""))
}

const searchBody = `{
	"total_results": 2,
	"products": [
		{
			"asin": "B082BHJMFF",
			"title": "Project Hail Mary",
			"authors": [{"name": "Andy Weir"}],
			"narrators": [{"name": "Ray Porter"}],
			"release_date": "2021-05-04",
			"language": "english",
			"runtime_length_min": 664
		},
		{
			"asin": "B00B5HZGUG",
			"title": "The Martian",
			"authors": [{"name": "Andy Weir"}],
			"release_date": "2013-03-22",
			"runtime_length_min": 60
		}
	]
}`

const detailBody = `{
	"product": {
		"asin": "B082BHJMFF",
		"title": "Project Hail Mary",
		"subtitle": "A Novel",
		"authors": [{"name": "Andy Weir"}],
		"narrators": [{"name": "Ray Porter"}],
		"publisher_name": "Audible Studios",
		"release_date": "2021-05-04",
		"publisher_summary": "<p>Ryland Grace is the sole survivor.</p>",
		"product_images": {"500": "https://m.media-amazon.com/images/I/phm._SL500_.jpg"},
		"series": [{"title": "Lightbringer", "sequence": "2"}],
		"rating": {"overall_distribution": {"display_average_rating": 4.9}},
		"category_ladders": [
			{"ladder": [{"name": "Science Fiction & Fantasy"}, {"name": "Science Fiction"}]},
			{"ladder": [{"name": "Literature & Fiction"}]}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.Client(), WithMaxRetries(1))
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.0/catalog/products", r.URL.Path)
		assert.Equal(t, "andy weir", r.URL.Query().Get("keywords"))
		w.Write([]byte(searchBody))
	})

	candidates, err := client.Search(context.Background(), "andy weir", 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "B082BHJMFF", first.Ref)
	assert.Equal(t, "Project Hail Mary", first.Title)
	assert.Equal(t, "Andy Weir", first.Author)
	assert.Equal(t, "Ray Porter", first.Narrator)
	assert.Equal(t, "2021", first.Year)
	assert.Equal(t, "11 hrs and 4 mins", first.Duration)
	assert.Equal(t, "1 hrs", candidates[1].Duration)
}

func TestSearchEmptyIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_results": 0, "products": []}`))
	})

	candidates, err := client.Search(context.Background(), "nothing matches this", 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "query", 10)
	var unavailable *shared.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "query", unavailable.Query)
}

func TestFetchDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.0/catalog/products/B082BHJMFF", r.URL.Path)
		w.Write([]byte(detailBody))
	})

	book, err := client.FetchDetail(context.Background(), "B082BHJMFF")
	require.NoError(t, err)

	assert.Equal(t, "Project Hail Mary", book.Title)
	assert.Equal(t, "A Novel", book.Subtitle)
	assert.Equal(t, "Project Hail Mary: A Novel", book.FullTitle())
	assert.Equal(t, []string{"Andy Weir"}, book.Authors)
	assert.Equal(t, []string{"Ray Porter"}, book.Narrators)
	assert.Equal(t, "Lightbringer", book.Series)
	assert.Equal(t, "2", book.SeriesPosition)
	assert.Equal(t, "Lightbringer 2 - Project Hail Mary", book.AlbumSort())
	assert.Equal(t, "4.9", book.Rating)
	assert.Equal(t, "Ryland Grace is the sole survivor.", book.Description)
	assert.Equal(t, "2021", book.Year)
	assert.Equal(t, []string{"Science Fiction & Fantasy", "Literature & Fiction"}, book.Genres)
	assert.Equal(t, "https://m.media-amazon.com/images/I/phm._SL5000_.jpg", book.CoverURL)
	assert.Equal(t, "https://www.audible.com/pd/B082BHJMFF", book.SourceURL)
}

func TestFetchDetailIncomplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"product": {"asin": "B000", "title": "No Author Here"}}`))
	})

	_, err := client.FetchDetail(context.Background(), "B000")
	var incomplete *shared.ParseIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "author", incomplete.Field)
}

func TestFetchDetailRatingFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"product": {"asin": "B001", "title": "T", "authors": [{"name": "A"}]}}`))
	})

	book, err := client.FetchDetail(context.Background(), "B001")
	require.NoError(t, err)
	assert.Equal(t, "0.1", book.Rating)
}
