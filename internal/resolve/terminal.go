package resolve

import (
	"fmt"
	"strings"

	"audtag/internal/shared"
)

// TerminalDecider prompts on stdout/stdin. When stdout is not a terminal
// it skips every ambiguous group instead of blocking on input nobody can
// give.
type TerminalDecider struct{}

func (TerminalDecider) Choose(group string, query string, candidates []shared.SearchCandidate) Decision {
	if !shared.IsTTY() {
		return Decision{Kind: DecideSkip}
	}

	fmt.Println()
	shared.ColorInfo.Printf("🔍 Results for %s (query: %q):\n", group, query)
	for i, c := range candidates {
		shared.ColorSuccess.Printf("  %d. ", i+1)
		fmt.Println(shared.TruncateString(c.Label(), 120))
	}

	for {
		input := shared.GetUserInput(
			fmt.Sprintf("Select [1-%d], (r)etry with new query, (s)kip, (q)uit", len(candidates)), "1")
		switch strings.ToLower(input) {
		case "s", "skip":
			return Decision{Kind: DecideSkip}
		case "q", "quit", "c", "cancel":
			return Decision{Kind: DecideCancel}
		case "r", "retry":
			return retryDecision(query)
		}
		n, ok, err := parseIndex(input, len(candidates))
		if err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			continue
		}
		if !ok {
			return Decision{Kind: DecideSkip}
		}
		return Decision{Kind: DecideSelect, Index: n - 1}
	}
}

func (TerminalDecider) NoResults(group string, query string) Decision {
	if !shared.IsTTY() {
		return Decision{Kind: DecideSkip}
	}

	fmt.Println()
	shared.ColorWarning.Printf("😕 No results for %s (query: %q)\n", group, query)

	for {
		input := shared.GetUserInput("(r)etry with new query, (s)kip, (q)uit", "s")
		switch strings.ToLower(input) {
		case "r", "retry":
			return retryDecision(query)
		case "s", "skip":
			return Decision{Kind: DecideSkip}
		case "q", "quit", "c", "cancel":
			return Decision{Kind: DecideCancel}
		default:
			shared.ColorError.Println("❌ Invalid input. Please enter 'r', 's' or 'q'.")
		}
	}
}

func retryDecision(oldQuery string) Decision {
	newQuery := shared.GetUserInput("New search query", oldQuery)
	if strings.TrimSpace(newQuery) == "" {
		return Decision{Kind: DecideSkip}
	}
	return Decision{Kind: DecideRetry, Query: newQuery}
}

func parseIndex(input string, max int) (int, bool, error) {
	if strings.TrimSpace(input) == "" {
		return 0, false, nil
	}
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(input), "%d", &n); err != nil {
		return 0, false, fmt.Errorf("invalid selection: %q", input)
	}
	if n < 1 || n > max {
		return 0, false, fmt.Errorf("selection %d out of range 1-%d", n, max)
	}
	return n, true, nil
}

// AutoDecider always takes the first candidate and skips empty searches.
// It backs the --auto flag and non-interactive runs.
type AutoDecider struct{}

func (AutoDecider) Choose(group string, query string, candidates []shared.SearchCandidate) Decision {
	return Decision{Kind: DecideSelect, Index: 0}
}

func (AutoDecider) NoResults(group string, query string) Decision {
	return Decision{Kind: DecideSkip}
}
