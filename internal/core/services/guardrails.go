package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// citationMarkerPrefix opens an inline citation marker: [[chunk:<id>]].
const citationMarkerPrefix = "[[chunk:"

// ExtractCitedChunkIDs scans text for [[chunk:<id>]] markers and returns the
// distinct IDs in sorted order. Malformed or unterminated markers are skipped.
func ExtractCitedChunkIDs(text string) []string {
	seen := map[string]bool{}
	i := 0
	for i+len(citationMarkerPrefix) < len(text) {
		if !strings.HasPrefix(text[i:], citationMarkerPrefix) {
			i++
			continue
		}
		start := i + len(citationMarkerPrefix)
		end := strings.IndexByte(text[start:], ']')
		if end < 0 {
			i++
			continue
		}
		after := start + end
		if strings.HasPrefix(text[after:], "]]") {
			if id := strings.TrimSpace(text[start:after]); id != "" {
				seen[id] = true
			}
		}
		i = after + 2
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnforceCitations requires at least one citation marker anywhere in output.
func EnforceCitations(output string) error {
	if !strings.Contains(output, citationMarkerPrefix) {
		return domain.ErrCitationRequired.WithDetails("output must include evidence chunk citations")
	}
	return nil
}

// EnforceSectionDensity applies the section's citation-density rule on top
// of the baseline: list sections need a marker on every bullet line,
// narrative sections need one in every paragraph. Empty or unterminated
// markers do not count.
func EnforceSectionDensity(section domain.SectionID, output string) error {
	if err := EnforceCitations(output); err != nil {
		return err
	}

	switch section.Kind() {
	case domain.SectionKindList:
		if lines := uncitedBulletLines(output); len(lines) > 0 {
			return domain.ErrCitationRequired.WithDetailsf(
				"bullet lines without citations: %s", joinInts(lines))
		}
	default:
		if paras := uncitedParagraphs(output); len(paras) > 0 {
			return domain.ErrCitationRequired.WithDetailsf(
				"paragraphs without citations: %s", joinInts(paras))
		}
	}
	return nil
}

// hasCitation reports whether segment carries at least one well-formed marker.
func hasCitation(segment string) bool {
	return len(ExtractCitedChunkIDs(segment)) > 0
}

// uncitedBulletLines returns the 1-based numbers of bullet lines lacking a
// well-formed marker.
func uncitedBulletLines(output string) []int {
	var failing []int
	for i, line := range strings.Split(NormalizeText(output), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "- ") && !strings.HasPrefix(trimmed, "* ") {
			continue
		}
		if !hasCitation(trimmed) {
			failing = append(failing, i+1)
		}
	}
	return failing
}

// uncitedParagraphs returns the 1-based positions of non-empty paragraphs
// lacking a well-formed marker.
func uncitedParagraphs(output string) []int {
	var failing []int
	n := 0
	for _, para := range strings.Split(NormalizeText(output), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n++
		if !hasCitation(para) {
			failing = append(failing, n)
		}
	}
	return failing
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
