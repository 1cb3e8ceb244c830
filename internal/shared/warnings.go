package shared

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WarningType represents different types of warnings
type WarningType int

const (
	CoverDownloadWarning WarningType = iota
	IncompleteRecordWarning
	PartialWriteWarning
	TaskSkipWarning
)

// Warning represents a single warning with context
type Warning struct {
	Type    WarningType
	Context string // group or file context
	Details string
}

// WarningCollector collects non-fatal problems during a run so they can be
// reported together at the end instead of scrolling past mid-run.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []Warning
}

// NewWarningCollector creates a new warning collector
func NewWarningCollector() *WarningCollector {
	return &WarningCollector{}
}

// Add records a warning. Safe for concurrent use by tagging workers.
func (wc *WarningCollector) Add(warningType WarningType, context, details string) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.warnings = append(wc.warnings, Warning{Type: warningType, Context: context, Details: details})
}

// AddCoverDownloadWarning records a failed cover art download for a group.
func (wc *WarningCollector) AddCoverDownloadWarning(group, details string) {
	wc.Add(CoverDownloadWarning, group, details)
}

// AddIncompleteRecordWarning records a catalog record that was missing a
// required field, which skips its group.
func (wc *WarningCollector) AddIncompleteRecordWarning(group, details string) {
	wc.Add(IncompleteRecordWarning, group, details)
}

// AddPartialWriteWarning records a group where some files failed to write.
func (wc *WarningCollector) AddPartialWriteWarning(file, details string) {
	wc.Add(PartialWriteWarning, file, details)
}

// AddTaskSkipWarning records a file a task left in place.
func (wc *WarningCollector) AddTaskSkipWarning(file, details string) {
	wc.Add(TaskSkipWarning, file, details)
}

// HasWarnings returns true if there are any warnings
func (wc *WarningCollector) HasWarnings() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings) > 0
}

// Count returns the total number of warnings
func (wc *WarningCollector) Count() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings)
}

// PrintSummary prints a formatted summary of all warnings
func (wc *WarningCollector) PrintSummary() {
	wc.mu.Lock()
	warnings := make([]Warning, len(wc.warnings))
	copy(warnings, wc.warnings)
	wc.mu.Unlock()

	if len(warnings) == 0 {
		return
	}

	ColorWarning.Printf("\n⚠️  Warning Summary (%d warnings):\n", len(warnings))
	ColorWarning.Println(strings.Repeat("─", 50))

	grouped := make(map[WarningType][]Warning)
	for _, w := range warnings {
		grouped[w.Type] = append(grouped[w.Type], w)
	}

	var types []WarningType
	for t := range grouped {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		ColorWarning.Printf("\n%s (%d):\n", warningTypeTitle(t), len(grouped[t]))
		for _, w := range grouped[t] {
			if w.Details != "" {
				ColorWarning.Printf("  • %s: %s\n", w.Context, w.Details)
			} else {
				ColorWarning.Printf("  • %s\n", w.Context)
			}
		}
	}
	fmt.Println()
}

func warningTypeTitle(t WarningType) string {
	switch t {
	case CoverDownloadWarning:
		return "Cover Art Download Failures"
	case IncompleteRecordWarning:
		return "Incomplete Catalog Records"
	case PartialWriteWarning:
		return "Tag Write Failures"
	case TaskSkipWarning:
		return "Files Left In Place"
	default:
		return "Other Warnings"
	}
}
