// Package textproc holds the pure text routines the pipeline runs over model
// output and raw invoice text: JSON recovery, field sanitization, country
// detection and keyword heuristics. Nothing here touches I/O.
package textproc

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")

	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	controlCharRe   = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

const minCandidateLen = 50

// StripFences removes a surrounding markdown code fence, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpenRe.ReplaceAllString(s, "")
		s = fenceCloseRe.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// CleanJSONCandidate fixes the two malformations models produce most often:
// trailing commas before a closing bracket and raw control characters.
func CleanJSONCandidate(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = controlCharRe.ReplaceAllString(s, "")
	return s
}

// RecoverJSONObject pulls a parseable JSON object out of raw model output.
// It tries a direct parse first, then enumerates brace-balanced candidate
// objects embedded in surrounding prose, preferring one that carries a
// "vendor" key, and finally falls back to the span between the first '{'
// and the last '}'. Returns false when nothing parses.
func RecoverJSONObject(raw string) (string, bool) {
	s := StripFences(raw)
	if s == "" {
		return "", false
	}

	if validObject(s) {
		return s, true
	}

	candidates := braceBalancedObjects(s)
	var fallback string
	for _, c := range candidates {
		if !validObject(c) {
			c = CleanJSONCandidate(c)
			if !validObject(c) {
				continue
			}
		}
		if strings.Contains(c, `"vendor"`) {
			return c, true
		}
		if fallback == "" {
			fallback = c
		}
	}
	if fallback != "" {
		return fallback, true
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first >= 0 && last > first {
		c := CleanJSONCandidate(s[first : last+1])
		if validObject(c) {
			return c, true
		}
	}
	return "", false
}

func validObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var v map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

// braceBalancedObjects returns every top-level brace-balanced span of useful
// size, ignoring braces inside string literals.
func braceBalancedObjects(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		span := s[i : end+1]
		if len(span) >= minCandidateLen {
			out = append(out, span)
		}
		i = end
	}
	return out
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
