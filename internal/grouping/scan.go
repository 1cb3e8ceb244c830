package grouping

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"audtag/internal/shared"
	"audtag/internal/tagio"
)

// ScanPaths expands the CLI arguments into AudioFiles. Directories are
// walked recursively; non-audio files are ignored. The result is sorted
// by path so grouping sees a deterministic order.
func ScanPaths(paths []string) ([]shared.AudioFile, error) {
	var files []shared.AudioFile
	seen := make(map[string]bool)

	addFile := func(path string) {
		if seen[path] || !tagio.IsAudioFile(filepath.Ext(path)) {
			return
		}
		seen[path] = true
		files = append(files, tagio.ScanAudioFile(path))
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			addFile(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				addFile(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
