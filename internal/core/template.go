package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"dockcore/pkg/domain"
)

// PatternKind discriminates the graduated pattern grammar: regex, bare
// wildcard, contains, prefix or suffix wildcards, and exact match.
type PatternKind int

// Pattern grammar forms, from most to least explicit.
const (
	PatternNone PatternKind = iota
	PatternRegex
	PatternAny
	PatternContains
	PatternPrefix
	PatternSuffix
	PatternExact
)

// Pattern is a compiled destination matcher. Non-regex forms compare
// case- and diacritic-insensitively; the bare /.../ regex form matches the
// raw text case-sensitively, and /.../i matches it case-insensitively.
type Pattern struct {
	Kind PatternKind
	re   *regexp.Regexp
	text string
}

// ParsePattern compiles raw pattern text. An empty pattern yields
// PatternNone, which never matches.
func ParsePattern(raw string) (Pattern, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return Pattern{Kind: PatternNone}, nil
	}
	if strings.HasPrefix(p, "/") {
		// the suffix check is case-insensitive, so /re/I works like /re/i
		if strings.HasSuffix(strings.ToLower(p), "/i") && len(p) > 3 {
			re, err := regexp.Compile("(?i)" + p[1:len(p)-2])
			if err != nil {
				return Pattern{}, fmt.Errorf("compile pattern %q: %w", raw, err)
			}
			return Pattern{Kind: PatternRegex, re: re}, nil
		}
		if strings.HasSuffix(p, "/") && len(p) > 1 {
			re, err := regexp.Compile(p[1 : len(p)-1])
			if err != nil {
				return Pattern{}, fmt.Errorf("compile pattern %q: %w", raw, err)
			}
			return Pattern{Kind: PatternRegex, re: re}, nil
		}
	}
	norm := NormalizeText(p)
	switch {
	case norm == "*":
		return Pattern{Kind: PatternAny}, nil
	case strings.HasPrefix(norm, "*") && strings.HasSuffix(norm, "*") && len(norm) > 1:
		return Pattern{Kind: PatternContains, text: norm[1 : len(norm)-1]}, nil
	case strings.HasPrefix(norm, "*"):
		return Pattern{Kind: PatternSuffix, text: norm[1:]}, nil
	case strings.HasSuffix(norm, "*"):
		return Pattern{Kind: PatternPrefix, text: norm[:len(norm)-1]}, nil
	default:
		return Pattern{Kind: PatternExact, text: norm}, nil
	}
}

// Match tests the pattern against destination text.
func (p Pattern) Match(text string) bool {
	switch p.Kind {
	case PatternRegex:
		return p.re.MatchString(text)
	case PatternAny:
		return true
	case PatternContains:
		return strings.Contains(NormalizeText(text), p.text)
	case PatternPrefix:
		return strings.HasPrefix(NormalizeText(text), p.text)
	case PatternSuffix:
		return strings.HasSuffix(NormalizeText(text), p.text)
	case PatternExact:
		return NormalizeText(text) == p.text
	default:
		return false
	}
}

// MatchPattern is the rule-level entry point: an empty or malformed pattern
// simply never matches.
func MatchPattern(text, pattern string) bool {
	p, err := ParsePattern(pattern)
	if err != nil {
		return false
	}
	return p.Match(text)
}

// SuggestDock returns the first conflict-free dock proposed by the highest
// priority matching rule, or nil when no rule yields an available dock.
// Candidate rules are filtered by active flag, side scope, destination
// pattern, and weekday, then sorted by descending priority with ties
// keeping input order.
func SuggestDock(rules []TemplateRule, sideName string, rec Record, sides []Side, docks DockSet, now time.Time) *int {
	letter := domain.TodayLetter(now)
	var candidates []TemplateRule
	for _, r := range rules {
		if !r.Active || !r.AppliesTo(sideName) || !r.AllowedToday(letter) {
			continue
		}
		if !MatchPattern(rec.Destination, r.Pattern) {
			continue
		}
		candidates = append(candidates, r)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	for _, r := range candidates {
		for _, n := range r.DockNumbers {
			if !docks.Contains(n) {
				continue
			}
			if CheckConflict(sides, n, sideName, rec.ID) == nil {
				dock := n
				return &dock
			}
		}
	}
	return nil
}

// ApplyTemplates assigns docks to the named side's currently unassigned
// records on a cloned snapshot, so earlier assignments in the batch are
// respected and the caller's state stays untouched. Records that already
// hold a dock are never reassigned. Returns the updated sides and the
// record-id to dock assignments made.
func ApplyTemplates(sides []Side, sideName string, rules []TemplateRule, docks DockSet, now time.Time) ([]Side, map[string]int) {
	draft := make([]Side, len(sides))
	for i, s := range sides {
		draft[i] = s.Clone()
	}
	assigned := make(map[string]int)
	for si := range draft {
		if draft[si].Name != sideName {
			continue
		}
		for ri := range draft[si].Records {
			rec := draft[si].Records[ri]
			if rec.Dock != nil {
				continue
			}
			if dock := SuggestDock(rules, sideName, rec, draft, docks, now); dock != nil {
				draft[si].Records[ri].Dock = dock
				assigned[rec.ID] = *dock
			}
		}
	}
	return draft, assigned
}
