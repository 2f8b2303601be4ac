// Package prompt builds the instruction payloads sent with label images.
// Both stages share the same template family: the review prompt embeds the
// first pass so the second model critiques instead of re-transcribing.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Fields the models are asked to look for on a label. Mirrors the archive
// box label layout the extractor also understands.
var LabelFields = []string{
	"Customer Name",
	"Customer ID",
	"Division ID",
	"Department ID",
	"Record Code",
	"SKP Box Number",
	"Reference",
	"Major Description",
	"Preparer's Name",
	"Date",
	"Telephone",
	"Floor",
}

const recognitionTemplate = `You are reading a photo of a handwritten label.

1. Extract ALL handwritten text from the image verbatim. Preserve the
   original capitalization and punctuation; do not correct or reword.
2. Identify structured fields such as: %s.
3. Estimate your confidence in the transcription as a number from 0 to 100.
4. Reply with ONLY a JSON object, no prose, no code fences:
   {"text": "<extracted text>", "confidence": <0-100>, "structured_data": {"<field>": "<value>"}}`

// Recognition returns the first-pass transcription prompt.
func Recognition() string {
	return fmt.Sprintf(recognitionTemplate, strings.Join(LabelFields, ", "))
}

const reviewTemplate = `You are a review agent for handwritten text recognition.
Examine the transcription below for errors or ambiguities. Do not re-transcribe;
critique what is given.

Transcription: %s
Reported confidence: %.2f
Structured data: %s

Reply with ONLY a JSON object, no prose, no code fences:
{"issues": ["<problem>"], "suggestions": ["<improvement>"], "confidence": <0-100>, "needs_human_review": <true|false>}`

// Review returns the second-pass assessment prompt for a prior result.
func Review(text string, confidence float64, structured map[string]string) string {
	sd := "none"
	if len(structured) > 0 {
		if b, err := json.Marshal(structured); err == nil {
			sd = string(b)
		}
	}
	return fmt.Sprintf(reviewTemplate, quote(text), confidence, sd)
}

// quote JSON-escapes the transcription so embedded newlines and quotes
// survive inside the prompt.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
