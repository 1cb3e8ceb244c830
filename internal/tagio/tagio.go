// Package tagio is the audio container boundary: it reads tag snapshots
// for grouping and writes the fixed audiobook schema after resolution.
// Reading goes through dhowden/tag with a TagLib fallback for files it
// cannot parse; writing always goes through TagLib property maps so one
// key set covers every supported container.
package tagio

import (
	"strconv"
	"strings"
)

// Supported audio file extensions.
const (
	ExtMP3  = ".mp3"
	ExtM4B  = ".m4b"
	ExtM4A  = ".m4a"
	ExtAAC  = ".aac"
	ExtOGG  = ".ogg"
	ExtOGA  = ".oga"
	ExtOPUS = ".opus"
	ExtFLAC = ".flac"
)

// Custom tag keys not in taglib constants
const (
	keySubtitle     = "SUBTITLE"
	keyAlbumSort    = "ALBUMSORT"
	keySeries       = "SERIES"
	keySeriesPart   = "SERIES-PART"
	keyContentGroup = "CONTENTGROUP"
	keyMediaType    = "ITUNESMEDIATYPE"
	keyGapless      = "ITUNESGAPLESS"
	keyASIN         = "ASIN"
	keyWWWAudioFile = "WWWAUDIOFILE"
	keyRatingWMP    = "RATING WMP"
	keyDescription  = "DESCRIPTION"
	keyPublisher    = "PUBLISHER"
	keyCopyright    = "COPYRIGHT"
	keyTrackTotal   = "TRACKTOTAL"
	keyMovementName = "MOVEMENTNAME"
	keyMovement     = "MOVEMENT"
	keyShowMovement = "SHOWMOVEMENT"
)

// IsAudioFile reports whether the extension is a container we handle.
func IsAudioFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ExtMP3, ExtM4B, ExtM4A, ExtAAC, ExtOGG, ExtOGA, ExtOPUS, ExtFLAC:
		return true
	}
	return false
}

// parseNumberPair splits values like "3/12" into number and total.
func parseNumberPair(s string) (int, int) {
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	total := 0
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return num, total
}
