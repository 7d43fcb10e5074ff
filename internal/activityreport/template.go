package activityreport

import (
	"strings"
	"unicode/utf8"

	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
)

// Sections holds the three fields of a template-conforming summary.
type Sections struct {
	Morning   string
	Afternoon string
	Learning  string
}

type section int

const (
	sectionNone section = iota
	sectionMorning
	sectionAfternoon
	sectionLearning
)

// ParseSummary splits a summary into its template fields. A header line
// starts with a label, optionally decorated with markdown markers and
// followed by a colon; text after the colon belongs to that field. Other lines
// starting with "*" are ignored. An empty learning field becomes the
// template placeholder.
func ParseSummary(text string, t config.TemplateConfig) Sections {
	var parts [4][]string
	current := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if s, rest, ok := matchHeader(line, t); ok {
			current = s
			if rest != "" {
				parts[s] = append(parts[s], rest)
			}
			continue
		}
		if strings.HasPrefix(line, "*") || current == sectionNone {
			continue
		}
		parts[current] = append(parts[current], line)
	}

	out := Sections{
		Morning:   strings.Join(parts[sectionMorning], "\n"),
		Afternoon: strings.Join(parts[sectionAfternoon], "\n"),
		Learning:  strings.Join(parts[sectionLearning], "\n"),
	}
	if out.Learning == "" {
		out.Learning = t.Placeholder
	}
	return out
}

// Conforms reports whether all three template labels appear as headers.
func Conforms(text string, t config.TemplateConfig) bool {
	var seen [4]bool
	for _, raw := range strings.Split(text, "\n") {
		if s, _, ok := matchHeader(strings.TrimSpace(raw), t); ok {
			seen[s] = true
		}
	}
	return seen[sectionMorning] && seen[sectionAfternoon] && seen[sectionLearning]
}

func matchHeader(line string, t config.TemplateConfig) (section, string, bool) {
	bare := strings.TrimLeft(line, "*#- \t")
	for _, candidate := range []struct {
		s     section
		label string
	}{
		{sectionMorning, t.MorningLabel},
		{sectionAfternoon, t.AfternoonLabel},
		{sectionLearning, t.LearningLabel},
	} {
		if candidate.label == "" {
			continue
		}
		rest, ok := cutFoldPrefix(bare, candidate.label)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		rest = strings.TrimLeft(rest, "*")
		switch {
		case strings.HasPrefix(rest, ":"):
			rest = rest[1:]
		case strings.HasPrefix(rest, "："):
			rest = rest[len("："):]
		case rest != "":
			// Label followed by unrelated text is an ordinary line.
			continue
		}
		return candidate.s, strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*")), true
	}
	return sectionNone, "", false
}

// cutFoldPrefix removes prefix from s under Unicode case folding. It walks
// runes because folding can change a rune's byte width.
func cutFoldPrefix(s, prefix string) (string, bool) {
	for _, want := range prefix {
		got, size := utf8.DecodeRuneInString(s)
		if size == 0 || !strings.EqualFold(string(got), string(want)) {
			return "", false
		}
		s = s[size:]
	}
	return s, true
}
