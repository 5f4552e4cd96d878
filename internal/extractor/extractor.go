// Package extractor implements the regex-based named value producer used
// in WITH clauses (spec §3.5, §4.4).
package extractor

import (
	"regexp"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

// Extractor is a compiled, single-variable regex extractor.
type Extractor struct {
	Source     accessor.Accessor
	Regex      *regexp.Regexp
	GroupIndex int
}

// New builds an Extractor from an already-compiled regex. re.NumSubexp()
// should have been validated against groupIndex at build time (spec §9
// open question, resolved in DESIGN.md: out-of-range group indices are a
// build-time InvalidRegex error).
func New(source accessor.Accessor, re *regexp.Regexp, groupIndex int) Extractor {
	return Extractor{Source: source, Regex: re, GroupIndex: groupIndex}
}

// Extract runs the extractor's pipeline (spec §4.4):
//  1. resolve source to a String; non-string/missing fails.
//  2. search for the first match of the compiled regex.
//  3. select the capture at GroupIndex (0 = whole match); a
//     non-participating group fails.
func (e Extractor) Extract(ev event.Event, env *accessor.Env, currentRule string) (value.Value, bool) {
	src, ok := e.Source.Resolve(ev, env, currentRule)
	if !ok || !src.IsString() {
		return value.Value{}, false
	}

	loc := e.Regex.FindStringSubmatchIndex(src.StringValue())
	if loc == nil {
		return value.Value{}, false
	}
	if 2*e.GroupIndex+1 >= len(loc) {
		// Defensive: build-time validation should already reject a
		// GroupIndex beyond the pattern's capture count.
		return value.Value{}, false
	}

	start := loc[2*e.GroupIndex]
	end := loc[2*e.GroupIndex+1]
	if start < 0 || end < 0 {
		// A group that didn't participate in this particular match.
		return value.Value{}, false
	}

	return value.String(src.StringValue()[start:end]), true
}
