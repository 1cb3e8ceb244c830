// Package grouping reconstructs logical audiobooks from a flat list of
// audio files. Grouping is deterministic: the same input set always
// yields the same groups in the same order.
package grouping

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"

	"audtag/internal/shared"
)

// mergeSimilarity is the minimum normalized-name similarity for the
// fuzzy same-directory merge pass.
const mergeSimilarity = 0.7

var (
	bracketHintRe  = regexp.MustCompile(`\[([^\[\]]+?)\s+(\d+(?:\.\d+)?)\]`)
	leadingNumRe   = regexp.MustCompile(`^\d+[-_\s.)]*`)
	trailingNumRe  = regexp.MustCompile(`[-_\s]*\d+$`)
	trackMarkerRe  = regexp.MustCompile(`(?i)\b(?:pt|part|chapter|ch|track|cd|disc|disk|vol|volume)\b[-_\s]*\d*`)
	separatorRunRe = regexp.MustCompile(`[-_\s]+`)
)

// Group partitions files into ordered FileGroups, one per logical book.
func Group(files []shared.AudioFile) []*shared.FileGroup {
	groups := make([]*shared.FileGroup, 0)
	index := make(map[string]*shared.FileGroup)

	for _, f := range files {
		signal, hint := groupSignal(f)
		key := normalizeKey(signal)

		g, ok := index[key]
		if !ok {
			g = mergeableGroup(groups, key, filepath.Dir(f.Path))
			if g == nil {
				g = &shared.FileGroup{
					Key: signal,
					Dir: filepath.Dir(f.Path),
				}
				groups = append(groups, g)
			}
			index[key] = g
		}
		g.Files = append(g.Files, f)
		if g.SeriesHint.Name == "" && hint.Name != "" {
			g.SeriesHint = hint
		}
	}

	for _, g := range groups {
		sortGroupFiles(g)
		g.Query = deriveQuery(g)
	}
	return groups
}

// mergeableGroup looks for an existing group in the same directory whose
// normalized key is fuzzily close enough to absorb this file.
func mergeableGroup(groups []*shared.FileGroup, key, dir string) *shared.FileGroup {
	for _, g := range groups {
		if g.Dir != dir {
			continue
		}
		if similarity(normalizeKey(g.Key), key) >= mergeSimilarity {
			return g
		}
	}
	return nil
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// groupSignal picks the best available identity signal for a file:
// a bracketed series annotation in the filename, then the album tag,
// then the cleaned filename stem.
func groupSignal(f shared.AudioFile) (string, shared.SeriesRef) {
	base := f.Base()

	if m := bracketHintRe.FindStringSubmatch(base); m != nil {
		hint := shared.SeriesRef{Name: strings.TrimSpace(m[1]), Position: m[2]}
		stripped := strings.TrimSpace(bracketHintRe.ReplaceAllString(base, ""))
		if stripped == "" {
			stripped = hint.Name
		}
		return stripped, hint
	}

	if f.Tags.Album != "" {
		hint := shared.SeriesRef{Name: f.Tags.Series, Position: f.Tags.SeriesPart}
		return f.Tags.Album, hint
	}

	return cleanStem(base), shared.SeriesRef{}
}

// cleanStem strips track numbering and marker words from a filename stem.
func cleanStem(stem string) string {
	s := leadingNumRe.ReplaceAllString(stem, "")
	s = trackMarkerRe.ReplaceAllString(s, "")
	s = trailingNumRe.ReplaceAllString(s, "")
	s = separatorRunRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return stem
	}
	return s
}

// normalizeKey produces the comparison form of a signal: NFC-normalized,
// lowercased, whitespace collapsed.
func normalizeKey(signal string) string {
	s := norm.NFC.String(signal)
	s = strings.ToLower(s)
	s = separatorRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// sortGroupFiles orders a group by existing track numbers when every file
// has one, otherwise by filename.
func sortGroupFiles(g *shared.FileGroup) {
	allNumbered := len(g.Files) > 0
	for _, f := range g.Files {
		if f.Tags.TrackNumber == 0 {
			allNumbered = false
			break
		}
	}
	sort.SliceStable(g.Files, func(i, j int) bool {
		if allNumbered && g.Files[i].Tags.TrackNumber != g.Files[j].Tags.TrackNumber {
			return g.Files[i].Tags.TrackNumber < g.Files[j].Tags.TrackNumber
		}
		return g.Files[i].Path < g.Files[j].Path
	})
}
