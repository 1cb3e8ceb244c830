// Package resolve drives the search, disambiguation and detail-fetch
// protocol that turns a file group's derived query into a confirmed book
// record. The interactive part sits behind the Decider interface so the
// state machine is testable without a terminal.
package resolve

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"audtag/internal/audible"
	"audtag/internal/shared"
)

// DecisionKind enumerates what the user (or an automated policy) chose.
type DecisionKind int

const (
	DecideSelect DecisionKind = iota
	DecideRetry
	DecideSkip
	DecideCancel
)

// Decision is one answer from the Decider. Index is the 0-based candidate
// index for DecideSelect; Query is the replacement query for DecideRetry.
type Decision struct {
	Kind  DecisionKind
	Index int
	Query string
}

// Decider is the decision channel for ambiguous or empty search results.
type Decider interface {
	// Choose picks from a non-empty candidate list.
	Choose(group string, query string, candidates []shared.SearchCandidate) Decision
	// NoResults reacts to a search that found nothing.
	NoResults(group string, query string) Decision
}

// Controller resolves groups against a metadata source. Concurrent
// Resolve calls contend only at the decider; searches and detail fetches
// run unlocked.
type Controller struct {
	source   audible.Source
	decider  Decider
	limit    int
	promptMu sync.Locker
}

// NewController wires a source and a decider together.
func NewController(source audible.Source, decider Decider) *Controller {
	return &Controller{
		source:  source,
		decider: decider,
		limit:   shared.MaxSearchResults,
	}
}

// SerializePrompts makes concurrent Resolve calls take turns at the
// decider, so at most one prompt is on screen. A group that resolves
// without prompting never takes the lock. The lock is held across a
// group's whole prompt exchange, retry searches included, so its
// candidate lists stay contiguous on screen.
func (c *Controller) SerializePrompts(mu sync.Locker) {
	c.promptMu = mu
}

// Resolve runs the search and selection loop for a group and stores the
// terminal result on it. It is called at most once per group. A
// SourceUnavailable error fails the group; ParseIncomplete on the chosen
// record degrades to Skipped. ErrRunCancelled propagates so the caller
// can stop scheduling further groups.
func (c *Controller) Resolve(ctx context.Context, group *shared.FileGroup) error {
	if group.Resolution != nil {
		return nil
	}

	prompting := false
	defer func() {
		if prompting {
			c.promptMu.Unlock()
		}
	}()
	prompt := func(ask func() Decision) Decision {
		if c.promptMu != nil && !prompting {
			c.promptMu.Lock()
			prompting = true
		}
		return ask()
	}

	query := group.Query
	for {
		candidates, err := c.source.Search(ctx, query, c.limit)
		if err != nil {
			return err
		}

		var d Decision
		if len(candidates) == 0 {
			d = prompt(func() Decision { return c.decider.NoResults(group.DisplayName(), query) })
		} else if idx, ok := c.autoMatch(group, candidates); ok {
			d = Decision{Kind: DecideSelect, Index: idx}
		} else {
			d = prompt(func() Decision { return c.decider.Choose(group.DisplayName(), query, candidates) })
		}

		switch d.Kind {
		case DecideSelect:
			if d.Index < 0 || d.Index >= len(candidates) {
				group.Resolution = &shared.ResolutionResult{State: shared.StateSkipped}
				return nil
			}
			if prompting {
				c.promptMu.Unlock()
				prompting = false
			}
			return c.fetch(ctx, group, candidates[d.Index])
		case DecideRetry:
			if strings.TrimSpace(d.Query) == "" {
				group.Resolution = &shared.ResolutionResult{State: shared.StateSkipped}
				return nil
			}
			query = audible.NormalizeQuery(d.Query)
		case DecideSkip:
			group.Resolution = &shared.ResolutionResult{State: shared.StateSkipped}
			return nil
		case DecideCancel:
			group.Resolution = &shared.ResolutionResult{State: shared.StateCancelled}
			return shared.ErrRunCancelled
		}
	}
}

// autoMatch resolves without prompting when exactly one candidate comes
// back and its normalized title matches the group key.
func (c *Controller) autoMatch(group *shared.FileGroup, candidates []shared.SearchCandidate) (int, bool) {
	if len(candidates) != 1 {
		return 0, false
	}
	if normalizeTitle(candidates[0].Title) == normalizeTitle(group.Key) {
		return 0, true
	}
	return 0, false
}

var titleSpaceRe = regexp.MustCompile(`\s+`)

func normalizeTitle(s string) string {
	return titleSpaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func (c *Controller) fetch(ctx context.Context, group *shared.FileGroup, candidate shared.SearchCandidate) error {
	book, err := c.source.FetchDetail(ctx, candidate.Ref)
	if err != nil {
		var incomplete *shared.ParseIncompleteError
		if errors.As(err, &incomplete) {
			group.Resolution = &shared.ResolutionResult{State: shared.StateSkipped}
			return err
		}
		return err
	}

	backfillFromCandidate(book, candidate)
	mergeSeriesHint(book, group.SeriesHint)

	group.Resolution = &shared.ResolutionResult{State: shared.StateResolved, Book: book}
	return nil
}

// backfillFromCandidate fills detail gaps from the search row, which
// sometimes carries fields the detail record omits.
func backfillFromCandidate(book *shared.BookMetadata, candidate shared.SearchCandidate) {
	if len(book.Narrators) == 0 && candidate.Narrator != "" {
		book.Narrators = strings.Split(candidate.Narrator, ", ")
	}
	if book.Year == "" {
		book.Year = candidate.Year
	}
	if book.Subtitle == "" {
		book.Subtitle = candidate.Subtitle
	}
}

// mergeSeriesHint applies the filename-derived series hint only when the
// catalog supplied no series of its own.
func mergeSeriesHint(book *shared.BookMetadata, hint shared.SeriesRef) {
	if book.Series == "" && hint.Name != "" {
		book.Series = hint.Name
		book.SeriesPosition = hint.Position
	}
}
