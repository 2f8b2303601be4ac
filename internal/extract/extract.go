// Package extract derives key/value fields from free text. It backs up the
// providers when their structured output comes back empty and doubles as a
// standalone utility behind /v1/extract.
package extract

import (
	"regexp"
	"strings"
)

type fieldPattern struct {
	re    *regexp.Regexp
	field string
}

// Labeled patterns seen on archive box labels. Matching is case-insensitive
// and tolerant of a missing colon.
var fieldPatterns = []fieldPattern{
	{regexp.MustCompile(`(?i)Customer Name:?\s*([\w][\w ]*)`), "CustomerName"},
	{regexp.MustCompile(`(?i)Customer ID:?\s*(\w+)`), "CustomerID"},
	{regexp.MustCompile(`(?i)Division ID:?\s*(\w+)`), "DivisionID"},
	{regexp.MustCompile(`(?i)Department ID:?\s*(\w+)`), "DepartmentID"},
	{regexp.MustCompile(`(?i)Record Code:?\s*(\w+)`), "RecordCode"},
	{regexp.MustCompile(`(?i)SKP Box Number:?\s*(\w+)`), "SKPBoxNumber"},
	{regexp.MustCompile(`(?i)Reference:?\s*([\w][\w ]*)`), "Reference"},
	{regexp.MustCompile(`(?i)Major Description:?\s*([\w][\w ]*)`), "MajorDescription"},
	{regexp.MustCompile(`(?i)Preparer'?s Name:?\s*([\w][\w ]*)`), "PreparerName"},
	{regexp.MustCompile(`(?i)Date:?\s*([\w \-/.]+)`), "Date"},
	{regexp.MustCompile(`(?i)Telephone:?\s*([\d \-.()+]+)`), "Telephone"},
	{regexp.MustCompile(`(?i)Floor:?\s*([\w \-.]+)`), "Floor"},
}

// genericLine matches free-form "Key: value" lines not covered above.
var genericLine = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z ]{1,30}):\s*(\S.*)$`)

// FromText scans text for recognizable labeled fields. An empty map is a
// valid, non-error result.
func FromText(text string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, fp := range fieldPatterns {
		if m := fp.re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				out[fp.field] = v
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		m := genericLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := canonicalKey(m[1])
		if key == "" {
			continue
		}
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = strings.TrimSpace(m[2])
	}
	return out
}

// canonicalKey turns "skp box number" into "SkpBoxNumber". Known fields
// already captured by the labeled patterns keep their canonical spelling.
func canonicalKey(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	if len(words) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(strings.ToUpper(w[:1]))
		if len(w) > 1 {
			sb.WriteString(strings.ToLower(w[1:]))
		}
	}
	return sb.String()
}
