package tagio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"

	"audtag/internal/shared"
)

// ReadSnapshot reads the tag fields used for grouping and display.
// A file with no readable tags yields an empty snapshot, not an error;
// only an unreadable file fails.
func ReadSnapshot(path string) (shared.TagSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return shared.TagSnapshot{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// dhowden/tag chokes on some files taglib handles fine
		return readSnapshotWithTaglib(path)
	}

	track, total := m.Track()
	snap := shared.TagSnapshot{
		Title:       m.Title(),
		Album:       m.Album(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		TrackNumber: track,
		TrackTotal:  total,
	}
	return snap, nil
}

func readSnapshotWithTaglib(path string) (shared.TagSnapshot, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return shared.TagSnapshot{}, err
	}

	get := func(key string) string {
		if vals := raw[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	track, total := parseNumberPair(get(taglib.TrackNumber))
	if total == 0 {
		total, _ = parseNumberPair(get(keyTrackTotal))
	}

	return shared.TagSnapshot{
		Title:       get(taglib.Title),
		Album:       get(taglib.Album),
		Artist:      get(taglib.Artist),
		AlbumArtist: get(taglib.AlbumArtist),
		TrackNumber: track,
		TrackTotal:  total,
		Series:      get(keySeries),
		SeriesPart:  get(keySeriesPart),
	}, nil
}

// ReadProperties returns the full normalized property map for a file.
// The task engine builds pattern contexts from it.
func ReadProperties(path string) (map[string]string, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(raw))
	for key, vals := range raw {
		if len(vals) > 0 {
			props[strings.ToUpper(key)] = vals[0]
		}
	}
	return props, nil
}

// ScanAudioFile opens one path as an AudioFile with its snapshot loaded.
// Unreadable tags leave the snapshot empty; the filename still carries
// the grouping signal.
func ScanAudioFile(path string) shared.AudioFile {
	snap, err := ReadSnapshot(path)
	if err != nil {
		snap = shared.TagSnapshot{}
	}
	return shared.AudioFile{
		Path: path,
		Ext:  strings.ToLower(filepath.Ext(path)),
		Tags: snap,
	}
}
