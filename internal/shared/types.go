package shared

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Constants
const (
	DefaultMaxRetries = 3
	UserAgent         = "audtag/1.0"
	MaxSearchResults  = 99
)

// TagSnapshot holds the tag fields read from an audio file that matter for
// grouping and display. Missing fields are empty strings.
type TagSnapshot struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
	TrackNumber int
	TrackTotal  int
	Series      string
	SeriesPart  string
}

// AudioFile is a single audio file discovered during the scan phase.
type AudioFile struct {
	Path string
	Ext  string
	Tags TagSnapshot
}

// Base returns the filename without directory or extension.
func (f AudioFile) Base() string {
	name := filepath.Base(f.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SeriesRef carries a series hint extracted from existing tags.
type SeriesRef struct {
	Name     string
	Position string
}

// FileGroup is an ordered set of files believed to form one audiobook.
// Resolution is nil until the group reaches a terminal resolution state,
// and is written exactly once.
type FileGroup struct {
	Key        string
	Dir        string
	Files      []AudioFile
	SeriesHint SeriesRef
	Query      string
	Resolution *ResolutionResult
}

// DisplayName is what the prompts call this group.
func (g *FileGroup) DisplayName() string {
	if g.Key != "" {
		return g.Key
	}
	if len(g.Files) > 0 {
		return g.Files[0].Base()
	}
	return "(empty group)"
}

// SearchCandidate is one row of a catalog search result, carrying just
// enough to render a selection prompt plus the reference needed to fetch
// the full record.
type SearchCandidate struct {
	Ref      string // catalog identifier (ASIN)
	Title    string
	Subtitle string
	Author   string
	Narrator string
	Year     string
	Language string
	Duration string // human readable, e.g. "11 hrs and 4 mins"
}

// Label renders the candidate as a one-line selection entry.
func (c SearchCandidate) Label() string {
	parts := []string{c.Title}
	if c.Author != "" {
		parts = append(parts, "by "+c.Author)
	}
	if c.Narrator != "" {
		parts = append(parts, "read by "+c.Narrator)
	}
	if c.Year != "" {
		parts = append(parts, c.Year)
	}
	if c.Duration != "" {
		parts = append(parts, c.Duration)
	}
	return strings.Join(parts, ", ")
}

// BookMetadata is the complete record fetched for one selected candidate.
// Title and Authors are required; everything else degrades to its zero
// value when the catalog omits it.
type BookMetadata struct {
	Title          string
	Subtitle       string
	Authors        []string
	Narrators      []string
	Series         string
	SeriesPosition string
	Genres         []string
	Rating         string
	Description    string
	Publisher      string
	Copyright      string
	Year           string
	CoverURL       string
	SourceURL      string
	ASIN           string
}

// FullTitle joins title and subtitle the way the album tag wants them.
func (m *BookMetadata) FullTitle() string {
	if m.Subtitle != "" {
		return m.Title + ": " + m.Subtitle
	}
	return m.Title
}

// AlbumSort returns the sort key used for series shelving. Books without a
// series sort under their plain title.
func (m *BookMetadata) AlbumSort() string {
	if m.Series != "" && m.SeriesPosition != "" {
		return fmt.Sprintf("%s %s - %s", m.Series, m.SeriesPosition, m.Title)
	}
	if m.Series != "" {
		return fmt.Sprintf("%s - %s", m.Series, m.Title)
	}
	return m.FullTitle()
}

// AuthorString joins authors for the albumartist tag.
func (m *BookMetadata) AuthorString() string {
	return strings.Join(m.Authors, ", ")
}

// NarratorString joins narrators for the composer tag.
func (m *BookMetadata) NarratorString() string {
	return strings.Join(m.Narrators, ", ")
}

// ResolutionState is the terminal state a group reaches after resolution.
type ResolutionState int

const (
	StateResolved ResolutionState = iota
	StateSkipped
	StateCancelled
)

func (s ResolutionState) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateSkipped:
		return "skipped"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ResolutionResult is the outcome of resolving one group. Book is non-nil
// only when State is StateResolved.
type ResolutionResult struct {
	State ResolutionState
	Book  *BookMetadata
}

// groupError records one failed group for the final report.
type groupError struct {
	group string
	err   error
}

// TagStats accumulates per-group outcomes across a run.
type TagStats struct {
	TaggedCount    int
	SkippedCount   int
	FailedCount    int
	CancelledCount int
	FailedGroups   []groupError
}

func (s *TagStats) AddTagged()    { s.TaggedCount++ }
func (s *TagStats) AddSkipped()   { s.SkippedCount++ }
func (s *TagStats) AddCancelled() { s.CancelledCount++ }

func (s *TagStats) AddFailed(group string, err error) {
	s.FailedCount++
	s.FailedGroups = append(s.FailedGroups, groupError{group: group, err: err})
}

// Merge folds another stats value into this one.
func (s *TagStats) Merge(other TagStats) {
	s.TaggedCount += other.TaggedCount
	s.SkippedCount += other.SkippedCount
	s.FailedCount += other.FailedCount
	s.CancelledCount += other.CancelledCount
	s.FailedGroups = append(s.FailedGroups, other.FailedGroups...)
}

// PrintReport writes the end-of-run tally to the console.
func (s *TagStats) PrintReport() {
	fmt.Println()
	ColorInfo.Println("--- Tagging Report ---")
	ColorSuccess.Printf("✅ Tagged: %d\n", s.TaggedCount)
	if s.SkippedCount > 0 {
		ColorWarning.Printf("⏭️ Skipped: %d\n", s.SkippedCount)
	}
	if s.CancelledCount > 0 {
		ColorWarning.Printf("🛑 Cancelled: %d\n", s.CancelledCount)
	}
	if s.FailedCount > 0 {
		ColorError.Printf("❌ Failed: %d\n", s.FailedCount)
		for _, fe := range s.FailedGroups {
			ColorError.Printf("  - %s: %v\n", fe.group, fe.err)
		}
	}
}
