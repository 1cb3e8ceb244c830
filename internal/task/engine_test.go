package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audtag/internal/config"
	"audtag/internal/shared"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestEngine() *Engine {
	return NewEngine(shared.NewWarningCollector(), false)
}

func TestExecuteDryRunTouchesNothing(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "audio")

	task := &config.Task{Name: "organize", Type: "move", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	assert.FileExists(t, src)
	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not create files")
}

func TestExecuteCopy(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "audio data")

	task := &config.Task{Name: "backup", Type: "copy", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)

	assert.FileExists(t, src)
	copied, err := os.ReadFile(filepath.Join(dstDir, "book.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio data", string(copied))
}

func TestExecuteMove(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "audio data")

	task := &config.Task{Name: "sort", Type: "move", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(dstDir, "book.mp3"))
}

func TestExecuteRenameStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.mp3")
	writeTestFile(t, src, "audio")

	task := &config.Task{Name: "fix-names", Type: "rename", NamingPattern: "renamed {filename}.{ext}"}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(dir, "renamed book.mp3"))
}

func TestExecuteRefusesIntraRunCollision(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	first := filepath.Join(srcDir, "one.mp3")
	second := filepath.Join(srcDir, "two.mp3")
	writeTestFile(t, first, "one")
	writeTestFile(t, second, "two")

	task := &config.Task{Name: "flatten", Type: "copy", Destination: dstDir, NamingPattern: "same.{ext}"}
	result, err := newTestEngine().Execute(context.Background(), task, []string{first, second}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)

	var collision *shared.DestinationCollisionError
	assert.ErrorAs(t, result.Errors[0], &collision)
}

func TestExecuteRefusesExistingDifferentFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "new audio")
	writeTestFile(t, filepath.Join(dstDir, "book.mp3"), "something else entirely")

	task := &config.Task{Name: "sort", Type: "move", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.FileExists(t, src, "refused move must leave the source alone")

	kept, err := os.ReadFile(filepath.Join(dstDir, "book.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "something else entirely", string(kept))
}

func TestExecuteOverwriteWhenConfirmed(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "new audio")
	writeTestFile(t, filepath.Join(dstDir, "book.mp3"), "old audio!!")

	engine := newTestEngine()
	engine.ConfirmOverwrite = func(src, dst string) bool { return true }

	task := &config.Task{Name: "sort", Type: "move", Destination: dstDir}
	result, err := engine.Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	replaced, err := os.ReadFile(filepath.Join(dstDir, "book.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "new audio", string(replaced))
}

func TestExecuteMoveRemovesSourceWhenAlreadyInPlace(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "same bytes")
	writeTestFile(t, filepath.Join(dstDir, "book.mp3"), "same bytes")

	task := &config.Task{Name: "sort", Type: "move", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.NoFileExists(t, src)
}

func TestExecuteCopySkipsIdenticalDestination(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "same bytes")
	writeTestFile(t, filepath.Join(dstDir, "book.mp3"), "same bytes")

	warnings := shared.NewWarningCollector()
	engine := NewEngine(warnings, false)

	task := &config.Task{Name: "backup", Type: "copy", Destination: dstDir}
	result, err := engine.Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.FileExists(t, src)
	assert.True(t, warnings.HasWarnings())
}

func TestExecuteCarriesCoverAlong(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "book.mp3")
	writeTestFile(t, src, "audio")
	writeTestFile(t, filepath.Join(srcDir, "cover.jpg"), "image bytes")

	task := &config.Task{Name: "sort", Type: "copy", Destination: dstDir}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.FileExists(t, filepath.Join(dstDir, "cover.jpg"))
	assert.FileExists(t, filepath.Join(srcDir, "cover.jpg"), "copy must not remove the source cover")
}

func TestExecutePatternDestination(t *testing.T) {
	srcDir := t.TempDir()
	base := t.TempDir()
	src := filepath.Join(srcDir, "Andy Weir - The Martian.mp3")
	writeTestFile(t, src, "audio")

	task := &config.Task{
		Name:        "library",
		Type:        "copy",
		Destination: filepath.Join(base, "{missing_tag}books"),
	}
	result, err := newTestEngine().Execute(context.Background(), task, []string{src}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.FileExists(t, filepath.Join(base, "books", "Andy Weir - The Martian.mp3"))
}

func TestContextForFileWithoutTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "My Book.mp3")
	writeTestFile(t, path, "not really audio")

	ctx := ContextForFile(path)
	assert.Equal(t, "My Book", ctx["filename"])
	assert.Equal(t, "mp3", ctx["ext"])
}
