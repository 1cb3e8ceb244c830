package tagio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"audtag/internal/shared"
)

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile(".mp3"))
	assert.True(t, IsAudioFile(".M4B"))
	assert.True(t, IsAudioFile(".flac"))
	assert.False(t, IsAudioFile(".jpg"))
	assert.False(t, IsAudioFile(".txt"))
	assert.False(t, IsAudioFile(""))
}

func TestParseNumberPair(t *testing.T) {
	tests := []struct {
		input string
		num   int
		total int
	}{
		{"3/12", 3, 12},
		{"3", 3, 0},
		{" 7 / 20 ", 7, 20},
		{"", 0, 0},
		{"abc", 0, 0},
	}
	for _, tt := range tests {
		num, total := parseNumberPair(tt.input)
		assert.Equal(t, tt.num, num, "input %q", tt.input)
		assert.Equal(t, tt.total, total, "input %q", tt.input)
	}
}

func TestIsMeaningfulTitle(t *testing.T) {
	tests := []struct {
		title    string
		path     string
		expected bool
	}{
		{"", "/books/a.mp3", false},
		{"Track 01", "/books/a.mp3", false},
		{"Chapter 12", "/books/a.mp3", false},
		{"Chapter 12: The Spice", "/books/a.mp3", true},
		{"untitled", "/books/a.mp3", false},
		{"03", "/books/a.mp3", false},
		{"The Spice Must Flow", "/books/a.mp3", true},
		{"Prologue", "/books/prologue.mp3", false},
		{"Epilogue - The Long Road Home", "/books/19.mp3", true},
		// a title that merely copies the filename carries no information
		{"dune part1", "/books/Dune Part1.mp3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsMeaningfulTitle(tt.title, tt.path), "title %q", tt.title)
	}
}

func TestArtistField(t *testing.T) {
	book := &shared.BookMetadata{
		Authors:   []string{"Frank Herbert"},
		Narrators: []string{"Scott Brick"},
	}
	assert.Equal(t, "Frank Herbert, Scott Brick", artistField(book))

	book.Narrators = nil
	assert.Equal(t, "Frank Herbert", artistField(book))

	book.Authors = nil
	book.Narrators = []string{"Scott Brick"}
	assert.Equal(t, "Scott Brick", artistField(book))
}

func TestAlbumSortOf(t *testing.T) {
	book := &shared.BookMetadata{Title: "The Final Empire", Series: "Mistborn", SeriesPosition: "1"}
	assert.Equal(t, "Mistborn 1 - The Final Empire", albumSortOf(book))

	book.Series = ""
	assert.Equal(t, "", albumSortOf(book))
}
