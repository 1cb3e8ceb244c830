package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"

	"audtag/internal/config"
	"audtag/internal/shared"
)

// Result tallies the outcome of one task run.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
	Errors    []error
}

// Engine executes one configured task over a set of files.
type Engine struct {
	warnings *shared.WarningCollector
	debug    bool

	// ConfirmOverwrite decides whether an existing destination file may
	// be replaced. Nil refuses every collision.
	ConfirmOverwrite func(src, dst string) bool
}

// NewEngine creates a task engine.
func NewEngine(warnings *shared.WarningCollector, debug bool) *Engine {
	return &Engine{warnings: warnings, debug: debug}
}

// plannedOp is one computed file operation.
type plannedOp struct {
	src string
	dst string
}

// Execute runs the task over the files. Dry-run computes every
// destination and reports the would-be operations without touching the
// filesystem. Collisions between two computed destinations in the same
// run fail those files rather than silently overwriting.
func (e *Engine) Execute(ctx context.Context, t *config.Task, files []string, dryRun bool) (*Result, error) {
	kind := strings.ToLower(t.Type)
	result := &Result{}

	desc := t.Description
	if desc == "" {
		desc = t.Name
	}
	label := desc
	if dryRun {
		label += " (DRY RUN)"
	}
	shared.ColorInfo.Printf("\n%s\n", label)

	ops := make([]plannedOp, 0, len(files))
	byDest := make(map[string]string)
	for _, src := range files {
		dst, err := e.destinationFor(t, kind, src)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}
		if prev, ok := byDest[dst]; ok {
			err := &shared.DestinationCollisionError{Source: src, Destination: dst}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%w (also computed for %s)", err, prev))
			continue
		}
		byDest[dst] = src
		ops = append(ops, plannedOp{src: src, dst: dst})
	}

	if dryRun {
		for _, op := range ops {
			e.reportPlanned(kind, op)
		}
		result.Processed = len(ops)
		return result, nil
	}

	var bar *pb.ProgressBar
	if shared.IsTTY() && len(ops) > 1 {
		bar = pb.StartNew(len(ops))
	}

	coveredDirs := make(map[string]bool)
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}
		if err := e.executeOp(kind, op, coveredDirs); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			shared.ColorError.Printf("  ✗ %s: %v\n", filepath.Base(op.src), err)
		} else {
			result.Processed++
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return result, nil
}

// destinationFor computes the absolute destination path for one file.
func (e *Engine) destinationFor(t *config.Task, kind, src string) (string, error) {
	pctx := ContextForFile(src)

	naming := t.NamingPattern
	if naming == "" {
		naming = "{filename}.{ext}"
	}
	name := RenderPattern(naming, pctx)
	if name == "" || name == "."+pctx["ext"] {
		return "", fmt.Errorf("naming pattern produced an empty name for %s", src)
	}

	if kind == "rename" {
		return filepath.Join(filepath.Dir(src), name), nil
	}

	destDir := RenderPattern(config.ExpandPath(t.Destination), pctx)
	if destDir == "" {
		return "", fmt.Errorf("destination pattern produced an empty path for %s", src)
	}
	return filepath.Join(destDir, name), nil
}

func (e *Engine) executeOp(kind string, op plannedOp, coveredDirs map[string]bool) error {
	if op.src == op.dst {
		return nil
	}

	if shared.FileExists(op.dst) {
		identical, err := shared.FilesIdentical(op.src, op.dst)
		if err == nil && identical {
			// already in place; a move still removes the source
			if kind == "move" {
				return os.Remove(op.src)
			}
			e.warnings.AddTaskSkipWarning(op.src, "identical file already at destination")
			return nil
		}
		if e.ConfirmOverwrite == nil || !e.ConfirmOverwrite(op.src, op.dst) {
			return &shared.DestinationCollisionError{Source: op.src, Destination: op.dst}
		}
	}

	if err := shared.CreateDirIfNotExists(filepath.Dir(op.dst)); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(op.dst), err)
	}

	switch kind {
	case "move", "rename":
		if err := moveFile(op.src, op.dst); err != nil {
			return err
		}
	case "copy":
		if err := shared.CopyFile(op.src, op.dst); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown task type %q", kind)
	}

	shared.DebugPrint(e.debug, "%s %s -> %s", kind, op.src, op.dst)

	if kind != "rename" {
		e.carryCover(kind, filepath.Dir(op.src), filepath.Dir(op.dst), coveredDirs)
	}
	return nil
}

// moveFile renames, falling back to copy-then-delete across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := shared.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// carryCover brings the group's cover artifact along to the destination
// directory, once per destination.
func (e *Engine) carryCover(kind, srcDir, dstDir string, coveredDirs map[string]bool) {
	if coveredDirs[dstDir] || srcDir == dstDir {
		return
	}

	cover := findCover(srcDir)
	if cover == "" {
		return
	}
	coveredDirs[dstDir] = true

	dst := filepath.Join(dstDir, "cover"+filepath.Ext(cover))
	if shared.FileExists(dst) {
		return
	}
	if err := shared.CopyFile(cover, dst); err != nil {
		e.warnings.AddTaskSkipWarning(cover, fmt.Sprintf("could not carry cover along: %v", err))
		return
	}
	if kind == "move" {
		// source cover is removed only after every sibling file has left,
		// which we approximate by leaving it when audio files remain
		if !dirHasAudio(srcDir) {
			os.Remove(cover)
		}
	}
}

func findCover(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		ext := filepath.Ext(name)
		if (ext == ".jpg" || ext == ".jpeg" || ext == ".png") &&
			strings.Contains(strings.TrimSuffix(name, ext), "cover") {
			return filepath.Join(dir, entry.Name())
		}
	}
	return ""
}

func dirHasAudio(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp3", ".m4b", ".m4a", ".aac", ".ogg", ".oga", ".opus", ".flac":
			return true
		}
	}
	return false
}

// reportPlanned prints one dry-run line, shortening paths the way a user
// would type them.
func (e *Engine) reportPlanned(kind string, op plannedOp) {
	shared.ColorInfo.Printf("  %s: %s\n", kind, displayPath(op.src))
	fmt.Printf("    -> %s\n", displayPath(op.dst))
}

func displayPath(path string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
