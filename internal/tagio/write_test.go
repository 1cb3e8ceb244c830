package tagio

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/taglib"

	"audtag/internal/shared"
)

// createMinimalMP3 writes one valid MPEG1 Layer3 frame (128kbps, 44100Hz,
// stereo) with padding, enough for the tag layer to open and save.
func createMinimalMP3(t *testing.T, dir, name string) string {
	t.Helper()
	frame := make([]byte, 417)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	frame[3] = 0x00

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, frame, 0644))
	return path
}

func sampleBook() *shared.BookMetadata {
	return &shared.BookMetadata{
		Title:          "The Final Empire",
		Subtitle:       "Mistborn Book 1",
		Authors:        []string{"Brandon Sanderson"},
		Narrators:      []string{"Michael Kramer"},
		Series:         "Mistborn",
		SeriesPosition: "1",
		Genres:         []string{"Science Fiction & Fantasy", "Literature & Fiction"},
		Rating:         "4.8",
		Description:    "In a world where ash falls from the sky.",
		Publisher:      "Macmillan Audio",
		Copyright:      "2006 Brandon Sanderson",
		Year:           "2006",
		SourceURL:      "https://www.audible.com/pd/B002UZMLXM",
		ASIN:           "B002UZMLXM",
	}
}

// trackOf reads the written track position and total back out, whichever
// key pair the container stored them under.
func trackOf(t *testing.T, props map[string]string) (int, int) {
	t.Helper()
	num, total := parseNumberPair(props["TRACKNUMBER"])
	if total == 0 {
		if v := props["TRACKTOTAL"]; v != "" {
			total, _ = strconv.Atoi(v)
		}
	}
	return num, total
}

func TestWriteBookSchema(t *testing.T) {
	path := createMinimalMP3(t, t.TempDir(), "02.mp3")
	book := sampleBook()

	require.NoError(t, WriteBook(path, book, 2, 5))

	props, err := ReadProperties(path)
	require.NoError(t, err)

	assert.Equal(t, "The Final Empire: Mistborn Book 1", props["TITLE"])
	assert.Equal(t, "The Final Empire", props["ALBUM"])
	assert.Equal(t, "Mistborn 1 - The Final Empire", props["ALBUMSORT"])
	assert.Equal(t, "Brandon Sanderson, Michael Kramer", props["ARTIST"])
	assert.Equal(t, "Brandon Sanderson", props["ALBUMARTIST"])
	assert.Equal(t, "Michael Kramer", props["COMPOSER"])
	assert.Equal(t, "Science Fiction & Fantasy/Literature & Fiction", props["GENRE"])
	assert.Equal(t, "2006", props["DATE"])
	assert.Equal(t, "Macmillan Audio", props["PUBLISHER"])
	assert.Equal(t, "4.8", props["RATING WMP"])
	assert.Equal(t, "B002UZMLXM", props["ASIN"])
	assert.Equal(t, "https://www.audible.com/pd/B002UZMLXM", props["WWWAUDIOFILE"])
	assert.Equal(t, "In a world where ash falls from the sky.", props["DESCRIPTION"])

	assert.Equal(t, "Mistborn", props["SERIES"])
	assert.Equal(t, "1", props["SERIES-PART"])
	assert.Equal(t, "Mistborn, Book #1", props["CONTENTGROUP"])

	assert.Equal(t, "Audiobook", props["ITUNESMEDIATYPE"])
	assert.Equal(t, "1", props["ITUNESGAPLESS"])

	num, total := trackOf(t, props)
	assert.Equal(t, 2, num)
	assert.Equal(t, 5, total)
}

func TestWriteBookTrackPositionsMatchGroupOrder(t *testing.T) {
	dir := t.TempDir()
	book := sampleBook()

	paths := []string{
		createMinimalMP3(t, dir, "a.mp3"),
		createMinimalMP3(t, dir, "b.mp3"),
		createMinimalMP3(t, dir, "c.mp3"),
	}
	for i, path := range paths {
		require.NoError(t, WriteBook(path, book, i+1, len(paths)))
	}

	for i, path := range paths {
		props, err := ReadProperties(path)
		require.NoError(t, err)
		num, total := trackOf(t, props)
		assert.Equal(t, i+1, num, "file %s", path)
		assert.Equal(t, len(paths), total, "file %s", path)
	}
}

func TestWriteBookSingletonHasNoTrackNumbers(t *testing.T) {
	path := createMinimalMP3(t, t.TempDir(), "whole-book.mp3")

	require.NoError(t, WriteBook(path, sampleBook(), 1, 1))

	props, err := ReadProperties(path)
	require.NoError(t, err)
	assert.Empty(t, props["TRACKNUMBER"])
	assert.Empty(t, props["TRACKTOTAL"])
	assert.Empty(t, props["DISCNUMBER"])
}

func TestWriteBookPreservesChapterTitle(t *testing.T) {
	path := createMinimalMP3(t, t.TempDir(), "19.mp3")
	require.NoError(t, taglib.WriteTags(path, map[string][]string{
		taglib.Title: {"Chapter 19: The Well of Ascension"},
	}, taglib.Clear))

	require.NoError(t, WriteBook(path, sampleBook(), 19, 20))

	props, err := ReadProperties(path)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 19: The Well of Ascension", props["TITLE"])
	assert.Equal(t, "The Final Empire", props["ALBUM"], "album still comes from the book record")
}

func TestWriteBookReplacesGenericTitle(t *testing.T) {
	path := createMinimalMP3(t, t.TempDir(), "19.mp3")
	require.NoError(t, taglib.WriteTags(path, map[string][]string{
		taglib.Title: {"Track 19"},
	}, taglib.Clear))

	require.NoError(t, WriteBook(path, sampleBook(), 19, 20))

	props, err := ReadProperties(path)
	require.NoError(t, err)
	assert.Equal(t, "The Final Empire: Mistborn Book 1", props["TITLE"])
}

func TestWriteBookWithoutSeriesOmitsSeriesKeys(t *testing.T) {
	path := createMinimalMP3(t, t.TempDir(), "standalone.mp3")
	book := sampleBook()
	book.Series = ""
	book.SeriesPosition = ""

	require.NoError(t, WriteBook(path, book, 1, 1))

	props, err := ReadProperties(path)
	require.NoError(t, err)
	assert.Empty(t, props["SERIES"])
	assert.Empty(t, props["SERIES-PART"])
	assert.Empty(t, props["CONTENTGROUP"])
	assert.Empty(t, props["ALBUMSORT"])
}
