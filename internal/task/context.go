package task

import (
	"path/filepath"
	"strconv"
	"strings"

	"audtag/internal/shared"
	"audtag/internal/tagio"
)

// ContextForFile builds the pattern context for one file from its written
// tags. Values are sanitized so they cannot introduce path separators.
func ContextForFile(path string) PatternContext {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	ctx := PatternContext{
		"filename": shared.SanitizeFileName(stem),
		"ext":      ext,
	}

	props, err := tagio.ReadProperties(path)
	if err != nil {
		return ctx
	}

	get := func(keys ...string) string {
		for _, k := range keys {
			if v := props[k]; v != "" {
				return v
			}
		}
		return ""
	}

	ctx["title"] = get("TITLE")
	ctx["album"] = get("ALBUM")
	ctx["author"] = get("ALBUMARTIST", "ARTIST")
	ctx["artist"] = get("ARTIST", "ALBUMARTIST")
	ctx["narrator"] = get("COMPOSER")
	ctx["genre"] = get("GENRE")
	ctx["series"] = get("SERIES")
	ctx["series_position"] = get("SERIES-PART")

	if date := get("DATE", "ORIGINALDATE"); len(date) >= 4 {
		ctx["year"] = date[:4]
	}

	if track := get("TRACKNUMBER"); track != "" {
		if idx := strings.IndexByte(track, '/'); idx > 0 {
			track = track[:idx]
		}
		if n, err := strconv.Atoi(strings.TrimSpace(track)); err == nil && n > 0 {
			ctx["track"] = strconv.Itoa(n)
		}
	}

	for key, val := range ctx {
		if key == "ext" || key == "filename" {
			continue
		}
		ctx[key] = shared.SanitizeFileName(val)
	}
	return ctx
}
