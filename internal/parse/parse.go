// Package parse turns a backend's raw reply into a typed payload. Models
// wrap JSON in prose or code fences often enough that a strict parse alone
// would lose usable results, so parsing is three-tiered: strict JSON, then
// the largest balanced brace substring, then the whole text as a
// zero-confidence transcription.
package parse

import (
	"encoding/json"
	"strconv"
	"strings"

	"labelscan/internal/util"
)

// IssueUnstructured marks a reply that survived only the last tier.
const IssueUnstructured = "unstructured response"

// Payload is the provider-agnostic recognition reply.
type Payload struct {
	Text           string
	Confidence     float64
	StructuredData map[string]string
	Issues         []string
}

// ReviewPayload is the provider-agnostic review reply.
type ReviewPayload struct {
	Issues           []string
	Suggestions      []string
	Confidence       float64
	NeedsHumanReview bool
}

// flexNumber accepts confidences serialized as number or string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

type rawRecognition struct {
	Text           string            `json:"text"`
	Confidence     flexNumber        `json:"confidence"`
	StructuredData map[string]string `json:"structured_data"`
}

// Recognition parses a recognition reply. It never fails: tier three
// absorbs anything, flagged with IssueUnstructured.
func Recognition(raw string) Payload {
	body := util.StripCodeFences(raw)

	var r rawRecognition
	if err := json.Unmarshal([]byte(body), &r); err == nil {
		return payloadFrom(r)
	}
	if frag, ok := largestJSONObject(body); ok {
		if err := json.Unmarshal([]byte(frag), &r); err == nil {
			return payloadFrom(r)
		}
	}
	return Payload{
		Text:           strings.TrimSpace(raw),
		Confidence:     0,
		StructuredData: map[string]string{},
		Issues:         []string{IssueUnstructured},
	}
}

func payloadFrom(r rawRecognition) Payload {
	sd := r.StructuredData
	if sd == nil {
		sd = map[string]string{}
	}
	return Payload{
		Text:           r.Text,
		Confidence:     NormalizeConfidence(float64(r.Confidence)),
		StructuredData: sd,
	}
}

type rawReview struct {
	Issues           []string   `json:"issues"`
	Suggestions      []string   `json:"suggestions"`
	Confidence       flexNumber `json:"confidence"`
	NeedsHumanReview bool       `json:"needs_human_review"`
}

// Review parses a review reply with the same tiered fallback. The boolean
// second return reports whether any structured payload was found; an
// unstructured review reply is not trustworthy as an approval.
func Review(raw string) (ReviewPayload, bool) {
	body := util.StripCodeFences(raw)

	var r rawReview
	if err := json.Unmarshal([]byte(body), &r); err == nil {
		return reviewFrom(r), true
	}
	if frag, ok := largestJSONObject(body); ok {
		if err := json.Unmarshal([]byte(frag), &r); err == nil {
			return reviewFrom(r), true
		}
	}
	return ReviewPayload{
		Issues:           []string{IssueUnstructured},
		Confidence:       0,
		NeedsHumanReview: true,
	}, false
}

func reviewFrom(r rawReview) ReviewPayload {
	return ReviewPayload{
		Issues:           r.Issues,
		Suggestions:      r.Suggestions,
		Confidence:       NormalizeConfidence(float64(r.Confidence)),
		NeedsHumanReview: r.NeedsHumanReview,
	}
}

// NormalizeConfidence maps raw provider values onto [0,1]: percentages
// (anything above 1) are divided by 100, then the result is clamped.
func NormalizeConfidence(c float64) float64 {
	if c > 1 {
		c = c / 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// largestJSONObject returns the longest balanced {...} substring, skipping
// braces inside string literals.
func largestJSONObject(s string) (string, bool) {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					if cand := s[start : i+1]; len(cand) > len(best) {
						best = cand
					}
				}
			}
		}
	}
	return best, best != ""
}
