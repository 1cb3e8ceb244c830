package audible

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"audtag/internal/shared"
)

const (
	searchResponseGroups = "contributors,product_attrs,media,series"
	detailResponseGroups = "contributors,product_attrs,product_desc,product_extended_attrs,media,series,rating,category_ladders"
)

// catalogProduct mirrors the subset of the catalog product record we use.
type catalogProduct struct {
	ASIN             string              `json:"asin"`
	Title            string              `json:"title"`
	Subtitle         string              `json:"subtitle"`
	Authors          []catalogPerson     `json:"authors"`
	Narrators        []catalogPerson     `json:"narrators"`
	PublisherName    string              `json:"publisher_name"`
	ReleaseDate      string              `json:"release_date"`
	Language         string              `json:"language"`
	RuntimeLengthMin int                 `json:"runtime_length_min"`
	MerchandisingSum string              `json:"merchandising_summary"`
	PublisherSummary string              `json:"publisher_summary"`
	Copyright        string              `json:"copyright"`
	ProductImages    map[string]string   `json:"product_images"`
	Series           []catalogSeries     `json:"series"`
	Rating           *catalogRating      `json:"rating"`
	CategoryLadders  []catalogLadderRoot `json:"category_ladders"`
}

type catalogPerson struct {
	Name string `json:"name"`
}

type catalogSeries struct {
	Title    string `json:"title"`
	Sequence string `json:"sequence"`
}

type catalogRating struct {
	OverallDistribution struct {
		DisplayAverageRating json.Number `json:"display_average_rating"`
	} `json:"overall_distribution"`
}

type catalogLadderRoot struct {
	Ladder []catalogPerson `json:"ladder"`
}

type searchResponse struct {
	Products     []catalogProduct `json:"products"`
	TotalResults int              `json:"total_results"`
}

type detailResponse struct {
	Product catalogProduct `json:"product"`
}

// Search queries the catalog and returns up to limit ranked candidates.
// An empty result set is not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]shared.SearchCandidate, error) {
	if limit <= 0 || limit > shared.MaxSearchResults {
		limit = shared.MaxSearchResults
	}
	perPage := limit
	if perPage > 50 {
		perPage = 50
	}

	resp, err := c.request(ctx, "1.0/catalog/products", []QueryParam{
		{Name: "keywords", Value: query},
		{Name: "num_results", Value: strconv.Itoa(perPage)},
		{Name: "products_sort_by", Value: "Relevance"},
		{Name: "response_groups", Value: searchResponseGroups},
	})
	if err != nil {
		return nil, &shared.SourceUnavailableError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &shared.SourceUnavailableError{Query: query, Err: fmt.Errorf("failed to decode search response: %w", err)}
	}

	candidates := make([]shared.SearchCandidate, 0, len(result.Products))
	for _, p := range result.Products {
		if p.ASIN == "" || p.Title == "" {
			continue
		}
		candidates = append(candidates, shared.SearchCandidate{
			Ref:      p.ASIN,
			Title:    p.Title,
			Subtitle: p.Subtitle,
			Author:   joinNames(p.Authors),
			Narrator: joinNames(p.Narrators),
			Year:     yearOf(p.ReleaseDate),
			Language: p.Language,
			Duration: formatRuntime(p.RuntimeLengthMin),
		})
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

// FetchDetail retrieves the full record for one candidate.
func (c *Client) FetchDetail(ctx context.Context, ref string) (*shared.BookMetadata, error) {
	resp, err := c.request(ctx, "1.0/catalog/products/"+ref, []QueryParam{
		{Name: "response_groups", Value: detailResponseGroups},
	})
	if err != nil {
		return nil, &shared.SourceUnavailableError{Query: ref, Err: err}
	}
	defer resp.Body.Close()

	var result detailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &shared.SourceUnavailableError{Query: ref, Err: fmt.Errorf("failed to decode detail response: %w", err)}
	}

	p := result.Product
	if p.Title == "" {
		return nil, &shared.ParseIncompleteError{Ref: ref, Field: "title"}
	}
	if len(p.Authors) == 0 {
		return nil, &shared.ParseIncompleteError{Ref: ref, Field: "author"}
	}

	book := &shared.BookMetadata{
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Authors:     nameList(p.Authors),
		Narrators:   nameList(p.Narrators),
		Genres:      genresFrom(p.CategoryLadders),
		Rating:      c.ratingFallback,
		Description: description(p),
		Publisher:   p.PublisherName,
		Copyright:   p.Copyright,
		Year:        yearOf(p.ReleaseDate),
		CoverURL:    UpgradeCoverURL(bestImage(p.ProductImages)),
		SourceURL:   "https://www.audible.com/pd/" + p.ASIN,
		ASIN:        p.ASIN,
	}
	if len(p.Series) > 0 {
		book.Series = p.Series[0].Title
		book.SeriesPosition = p.Series[0].Sequence
	}
	if p.Rating != nil {
		if r := p.Rating.OverallDistribution.DisplayAverageRating.String(); r != "" && r != "0" {
			book.Rating = r
		}
	}
	return book, nil
}

func joinNames(people []catalogPerson) string {
	return strings.Join(nameList(people), ", ")
}

func nameList(people []catalogPerson) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

func yearOf(releaseDate string) string {
	if len(releaseDate) >= 4 {
		return releaseDate[:4]
	}
	return ""
}

func formatRuntime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%d mins", m)
	}
	if m == 0 {
		return fmt.Sprintf("%d hrs", h)
	}
	return fmt.Sprintf("%d hrs and %d mins", h, m)
}

func description(p catalogProduct) string {
	text := p.PublisherSummary
	if text == "" {
		text = p.MerchandisingSum
	}
	return strings.TrimSpace(stripHTMLTags(text))
}

// genresFrom takes at most two genres, the top of each category ladder.
func genresFrom(ladders []catalogLadderRoot) []string {
	var genres []string
	seen := make(map[string]bool)
	for _, root := range ladders {
		if len(root.Ladder) == 0 {
			continue
		}
		name := root.Ladder[0].Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		genres = append(genres, name)
		if len(genres) == 2 {
			break
		}
	}
	return genres
}

func bestImage(images map[string]string) string {
	for _, key := range []string{"2400", "1024", "500", "252"} {
		if u := images[key]; u != "" {
			return u
		}
	}
	for _, u := range images {
		return u
	}
	return ""
}

func stripHTMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
