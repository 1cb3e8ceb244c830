// Package task executes configured move, copy and rename operations on
// tagged files, computing destinations from pattern templates filled with
// each file's metadata.
package task

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PatternContext maps pattern variable names to their resolved values for
// one file. Missing variables render as empty strings.
type PatternContext map[string]string

// segment is either a literal run or a placeholder.
type segment struct {
	isPlaceholder bool
	value         string // placeholder body (without braces) or literal text
}

// parsePattern splits a template into segments. Placeholders are {name}
// with an optional {name:02d} zero-padding qualifier; escaped braces are
// {{ and }}.
func parsePattern(pattern string) []segment {
	if pattern == "" {
		return nil
	}

	var segments []segment
	var current []rune
	inPlaceholder := false

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '{' && i+1 < len(runes) && runes[i+1] == '{' {
			current = append(current, '{')
			i++
			continue
		}
		if r == '}' && i+1 < len(runes) && runes[i+1] == '}' {
			current = append(current, '}')
			i++
			continue
		}

		if r == '{' && !inPlaceholder {
			if len(current) > 0 {
				segments = append(segments, segment{value: string(current)})
				current = nil
			}
			inPlaceholder = true
			continue
		}
		if r == '}' && inPlaceholder {
			segments = append(segments, segment{isPlaceholder: true, value: string(current)})
			current = nil
			inPlaceholder = false
			continue
		}

		current = append(current, r)
	}
	if len(current) > 0 {
		segments = append(segments, segment{isPlaceholder: inPlaceholder, value: string(current)})
	}
	return segments
}

var (
	padQualifierRe = regexp.MustCompile(`^(\w+):0*(\d+)d$`)
	emptyParensRe  = regexp.MustCompile(`\(\s*\)`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
)

// RenderPattern substitutes context values into a template. Placeholders
// with no value render empty; the result is cleaned of empty parentheses
// and doubled spaces left behind by missing values.
func RenderPattern(pattern string, ctx PatternContext) string {
	var b strings.Builder
	for _, seg := range parsePattern(pattern) {
		if !seg.isPlaceholder {
			b.WriteString(seg.value)
			continue
		}
		b.WriteString(resolvePlaceholder(seg.value, ctx))
	}

	out := emptyParensRe.ReplaceAllString(b.String(), "")
	out = multiSpaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func resolvePlaceholder(body string, ctx PatternContext) string {
	if m := padQualifierRe.FindStringSubmatch(body); m != nil {
		width, _ := strconv.Atoi(m[2])
		val := ctx[m[1]]
		if val == "" {
			return ""
		}
		if n, err := strconv.Atoi(val); err == nil {
			return fmt.Sprintf("%0*d", width, n)
		}
		return val
	}
	return ctx[body]
}
