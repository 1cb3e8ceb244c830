// Package orchestrator runs resolution and tag writing across file
// groups with a bounded worker pool. Groups run in parallel; interactive
// resolution is serialized so only one prompt is on screen at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"audtag/internal/audible"
	"audtag/internal/resolve"
	"audtag/internal/shared"
	"audtag/internal/tagio"
)

// Orchestrator ties a resolution controller and the tag writer together.
type Orchestrator struct {
	controller *resolve.Controller
	source     audible.Source
	warnings   *shared.WarningCollector
	workers    int
	debug      bool

	promptMu sync.Mutex
	statsMu  sync.Mutex
	stopped  atomic.Bool
}

// New creates an orchestrator. workers must be at least 1.
func New(controller *resolve.Controller, source audible.Source, warnings *shared.WarningCollector, workers int, debug bool) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	o := &Orchestrator{
		controller: controller,
		source:     source,
		warnings:   warnings,
		workers:    workers,
		debug:      debug,
	}
	// one prompt on screen at a time; non-interactive groups resolve
	// in parallel
	controller.SerializePrompts(&o.promptMu)
	return o
}

// Run processes all groups and returns the per-group tally. A user
// cancellation stops scheduling new groups but lets started ones finish;
// it is not reported as an error.
func (o *Orchestrator) Run(ctx context.Context, groups []*shared.FileGroup) *shared.TagStats {
	stats := &shared.TagStats{}
	coverNames := coverNamesFor(groups)

	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(o.workers))

	for _, group := range groups {
		if o.stopped.Load() {
			o.recordCancelled(stats)
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			o.recordCancelled(stats)
			continue
		}

		wg.Add(1)
		go func(g *shared.FileGroup) {
			defer wg.Done()
			defer sem.Release(1)
			o.processGroup(ctx, g, coverNames[g], stats)
		}(group)
	}

	wg.Wait()
	return stats
}

func (o *Orchestrator) processGroup(ctx context.Context, group *shared.FileGroup, coverName string, stats *shared.TagStats) {
	err := o.controller.Resolve(ctx, group)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrRunCancelled):
			o.stopped.Store(true)
			o.record(stats, func(s *shared.TagStats) { s.AddCancelled() })
		default:
			var incomplete *shared.ParseIncompleteError
			if errors.As(err, &incomplete) {
				o.warnings.AddIncompleteRecordWarning(group.DisplayName(), err.Error())
				o.record(stats, func(s *shared.TagStats) { s.AddSkipped() })
				return
			}
			shared.ColorError.Printf("❌ %s: %v\n", group.DisplayName(), err)
			o.record(stats, func(s *shared.TagStats) { s.AddFailed(group.DisplayName(), err) })
		}
		return
	}

	switch group.Resolution.State {
	case shared.StateSkipped:
		shared.ColorWarning.Printf("⏭️ Skipped %s\n", group.DisplayName())
		o.record(stats, func(s *shared.TagStats) { s.AddSkipped() })
	case shared.StateCancelled:
		o.stopped.Store(true)
		o.record(stats, func(s *shared.TagStats) { s.AddCancelled() })
	case shared.StateResolved:
		o.tagGroup(ctx, group, coverName, stats)
	}
}

// tagGroup downloads the cover artifact and writes the book record to
// every file in the group. File write failures are per-file; siblings are
// still written.
func (o *Orchestrator) tagGroup(ctx context.Context, group *shared.FileGroup, coverName string, stats *shared.TagStats) {
	book := group.Resolution.Book

	if book.CoverURL != "" {
		coverPath := filepath.Join(group.Dir, coverName)
		if err := o.source.DownloadCover(ctx, book.CoverURL, coverPath); err != nil {
			o.warnings.AddCoverDownloadWarning(group.DisplayName(), err.Error())
		}
	}

	total := len(group.Files)
	failed := 0
	for i, f := range group.Files {
		if ctx.Err() != nil {
			break
		}
		if err := tagio.WriteBook(f.Path, book, i+1, total); err != nil {
			failed++
			shared.ColorError.Printf("  ✗ %s: %v\n", filepath.Base(f.Path), err)
			o.warnings.AddPartialWriteWarning(f.Path, err.Error())
			continue
		}
		shared.DebugPrint(o.debug, "tagged %s (%d/%d)", f.Path, i+1, total)
	}

	if failed == total && total > 0 {
		o.record(stats, func(s *shared.TagStats) {
			s.AddFailed(group.DisplayName(), fmt.Errorf("all %d file writes failed", total))
		})
		return
	}
	shared.ColorSuccess.Printf("✅ Tagged %s (%d file(s), %s)\n",
		group.DisplayName(), total-failed, book.FullTitle())
	o.record(stats, func(s *shared.TagStats) { s.AddTagged() })
}

func (o *Orchestrator) record(stats *shared.TagStats, fn func(*shared.TagStats)) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	fn(stats)
}

func (o *Orchestrator) recordCancelled(stats *shared.TagStats) {
	o.record(stats, func(s *shared.TagStats) { s.AddCancelled() })
}

// coverNamesFor picks the cover artifact filename per group: cover.jpg
// normally, a group-prefixed name when several groups share a directory.
func coverNamesFor(groups []*shared.FileGroup) map[*shared.FileGroup]string {
	perDir := make(map[string]int)
	for _, g := range groups {
		perDir[g.Dir]++
	}
	names := make(map[*shared.FileGroup]string, len(groups))
	for _, g := range groups {
		if perDir[g.Dir] > 1 && len(g.Files) > 0 {
			names[g] = shared.SanitizeFileName(g.Files[0].Base()) + " - cover.jpg"
		} else {
			names[g] = "cover.jpg"
		}
	}
	return names
}
