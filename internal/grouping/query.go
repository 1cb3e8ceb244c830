package grouping

import (
	"path/filepath"
	"strings"

	"audtag/internal/audible"
	"audtag/internal/shared"
)

// genericStems are filename stems with no identity value of their own.
var genericStems = map[string]bool{
	"audiobook": true, "book": true, "audio": true,
	"track1": true, "track01": true, "01": true, "1": true,
}

// genericDirs are directory names that organize rather than identify.
var genericDirs = map[string]bool{
	".": true, "..": true, "/": true,
	"audiobooks": true, "books": true, "audio": true, "media": true,
	"downloads": true, "incoming": true, "new": true, "old": true, "temp": true,
}

func artistUsable(artist string) bool {
	return artist != "" && artist != "Unknown" && artist != "Various Artists"
}

// deriveQuery builds the initial search query for a group from the best
// tag evidence available, falling back to filename parsing.
func deriveQuery(g *shared.FileGroup) string {
	for _, f := range g.Files {
		t := f.Tags
		if t.Album != "" {
			switch {
			case artistUsable(t.AlbumArtist):
				return audible.BuildQuery(t.AlbumArtist, t.Album)
			case artistUsable(t.Artist):
				return audible.BuildQuery(t.Artist, t.Album)
			default:
				return audible.NormalizeQuery(t.Album)
			}
		}
		if t.Title != "" && t.Title != "Unknown" && t.Title != "Track" {
			if artistUsable(t.Artist) {
				return audible.BuildQuery(t.Artist, t.Title)
			}
			return audible.NormalizeQuery(t.Title)
		}
		if artistUsable(t.Artist) {
			return audible.NormalizeQuery(t.Artist)
		}
	}
	return queryFromFilename(g)
}

// queryFromFilename parses "Author - Title" and "Title by Author"
// patterns out of the first file's name, leaning on the parent directory
// when the filename itself is generic.
func queryFromFilename(g *shared.FileGroup) string {
	if len(g.Files) == 0 {
		return audible.NormalizeQuery(g.Key)
	}

	stem := cleanStem(g.Files[0].Base())
	parent := dirBase(g.Dir)

	if parent != "" && !genericDirs[strings.ToLower(parent)] {
		parentClean := separatorRunRe.ReplaceAllString(strings.NewReplacer("_", " ", ".", " ").Replace(parent), " ")
		parentClean = strings.TrimSpace(parentClean)
		if genericStems[strings.ToLower(stem)] {
			stem = parentClean
		} else if len(parentClean) > len(stem) {
			stem = parentClean + " " + stem
		}
	}

	if author, title, ok := splitAuthorTitle(stem); ok {
		return audible.BuildQuery(author, title)
	}
	return audible.NormalizeQuery(stem)
}

// splitAuthorTitle recognizes "Author - Title" and "Title by Author".
func splitAuthorTitle(stem string) (author, title string, ok bool) {
	if idx := strings.Index(stem, " - "); idx > 0 {
		return strings.TrimSpace(stem[:idx]), strings.TrimSpace(stem[idx+3:]), true
	}
	lower := strings.ToLower(stem)
	if idx := strings.Index(lower, " by "); idx > 0 {
		return strings.TrimSpace(stem[idx+4:]), strings.TrimSpace(stem[:idx]), true
	}
	return "", "", false
}

func dirBase(dir string) string {
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
