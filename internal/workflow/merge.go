package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Merge applies a human correction to a workflow awaiting review. The
// original recognition result is retained untouched for audit; corrections
// are additive, not destructive. Fails with ErrInvalidState (leaving the
// state unmodified) unless Stage == human_review.
func Merge(st *State, c Correction) error {
	if st == nil {
		return fmt.Errorf("%w: no workflow", ErrInvalidState)
	}
	if st.Stage != StageHumanReview {
		return fmt.Errorf("%w: stage is %q", ErrInvalidState, st.Stage)
	}

	final := cloneResult(st.Recognition)
	if final == nil {
		final = &RecognitionResult{StructuredData: map[string]string{}}
	}
	final.Text = c.Text
	if c.StructuredData != nil {
		final.StructuredData = cloneStringMap(c.StructuredData)
	}
	if msg := strings.TrimSpace(c.Comments); msg != "" {
		final.Meta.Comments = append(final.Meta.Comments, msg)
	}

	st.FinalResult = final
	st.Stage = StageComplete
	st.NextStep = StepComplete
	st.Timestamp = time.Now().UTC()
	return nil
}
