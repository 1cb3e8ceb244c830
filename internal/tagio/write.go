package tagio

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"

	"audtag/internal/shared"
)

const maxCommentLen = 1000

// WriteBook applies the resolved book record to one file. trackNum is the
// file's 1-based position in its group and trackTotal the group size; a
// total of 1 suppresses track numbering entirely.
func WriteBook(path string, book *shared.BookMetadata, trackNum, trackTotal int) error {
	existingTitle := ""
	if snap, err := ReadSnapshot(path); err == nil {
		existingTitle = snap.Title
	}

	tags := make(map[string][]string)
	add := func(key, value string) {
		if value != "" {
			tags[key] = []string{value}
		}
	}

	title := book.FullTitle()
	if IsMeaningfulTitle(existingTitle, path) {
		// per-file chapter titles survive retagging
		title = existingTitle
	}

	add(taglib.Title, title)
	add(keySubtitle, book.Subtitle)
	add(taglib.Album, book.Title)
	add(keyAlbumSort, albumSortOf(book))
	add(taglib.Artist, artistField(book))
	add(taglib.AlbumArtist, book.AuthorString())
	add(taglib.Composer, book.NarratorString())
	add(taglib.Genre, strings.Join(book.Genres, "/"))
	add(taglib.Date, book.Year)
	add(keyPublisher, book.Publisher)
	add(keyCopyright, book.Copyright)
	add(keyRatingWMP, book.Rating)
	add(keyASIN, book.ASIN)
	add(keyWWWAudioFile, book.SourceURL)

	if book.Description != "" {
		add(keyDescription, book.Description)
		add(taglib.Comment, shared.TruncateString(book.Description, maxCommentLen))
	}

	if book.Series != "" {
		add(keySeries, book.Series)
		if book.SeriesPosition != "" {
			add(keySeriesPart, book.SeriesPosition)
			add(keyContentGroup, fmt.Sprintf("%s, Book #%s", book.Series, book.SeriesPosition))
			add(keyMovementName, book.Series)
			add(keyMovement, book.SeriesPosition)
			add(keyShowMovement, "1")
		}
	}

	// audiobook markers for iTunes-family players
	add(keyMediaType, "Audiobook")
	add(keyGapless, "1")

	if trackTotal > 1 {
		add(taglib.TrackNumber, strconv.Itoa(trackNum))
		add(keyTrackTotal, strconv.Itoa(trackTotal))
		add(taglib.DiscNumber, "1")
	}

	if err := taglib.WriteTags(path, tags, taglib.Clear); err != nil {
		return &shared.WriteFailureError{Path: path, Err: err}
	}
	return nil
}

func artistField(book *shared.BookMetadata) string {
	author := book.AuthorString()
	narrator := book.NarratorString()
	if narrator == "" {
		return author
	}
	if author == "" {
		return narrator
	}
	return author + ", " + narrator
}

func albumSortOf(book *shared.BookMetadata) string {
	if book.Series == "" {
		return ""
	}
	return book.AlbumSort()
}

var (
	genericTitleRe  = regexp.MustCompile(`(?i)^(track|chapter|part|cd|disc|disk|file|audio|untitled)?[\s_-]*\d*$`)
	trailingPartRe  = regexp.MustCompile(`(?i)[\s_-]*(pt|part)?\d+$`)
	meaningfulWords = []string{
		"chapter", "prologue", "epilogue", "introduction", "intro",
		"preface", "foreword", "acknowledgment", "appendix",
		"credit", "opening", "closing", "interlude", "excerpt",
		"author", "narrator", "publisher", "copyright",
		"dedication", "contents", "glossary", "note", "afterword",
		"act", "scene", "section", "verse",
	}
)

// IsMeaningfulTitle decides whether an existing title tag looks like a
// real chapter name worth preserving, as opposed to a generic track label
// or a copy of the filename.
func IsMeaningfulTitle(title, path string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)

	if genericTitleRe.MatchString(lower) {
		return false
	}

	if path != "" {
		stem := strings.ToLower(filepath.Base(path))
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
		stem = trailingPartRe.ReplaceAllString(stem, "")
		if lower == stem {
			return false
		}
	}

	for _, word := range meaningfulWords {
		if strings.Contains(lower, word) && lower != word {
			return true
		}
	}

	if len(strings.Fields(title)) > 3 {
		return true
	}
	if title != strings.ToUpper(title) && title != lower && len(title) > 5 {
		return true
	}
	return len(title) > 10
}
