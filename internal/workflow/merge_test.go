package workflow

import (
	"errors"
	"testing"
)

func pendingState() *State {
	return &State{
		ID:    "hash1",
		Stage: StageHumanReview,
		Recognition: &RecognitionResult{
			Text:           "Bax 14, Shefl B",
			Confidence:     0.6,
			StructuredData: map[string]string{"Box": "14"},
		},
		NextStep: StepHumanReview,
	}
}

func TestMergeAppliesCorrection(t *testing.T) {
	st := pendingState()
	err := Merge(st, Correction{
		WorkflowID:     "hash1",
		Text:           "Box 14, Shelf B",
		StructuredData: map[string]string{"Box": "14", "Shelf": "B"},
		Comments:       "second digit was smudged",
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if st.Stage != StageComplete || st.NextStep != StepComplete {
		t.Errorf("stage=%q next_step=%q", st.Stage, st.NextStep)
	}
	if st.FinalResult.Text != "Box 14, Shelf B" {
		t.Errorf("final text = %q", st.FinalResult.Text)
	}
	if st.FinalResult.StructuredData["Shelf"] != "B" {
		t.Errorf("structured data not overwritten: %v", st.FinalResult.StructuredData)
	}
	if len(st.FinalResult.Meta.Comments) != 1 {
		t.Errorf("comments = %v", st.FinalResult.Meta.Comments)
	}
	// Corrections are additive: the original first-pass result survives.
	if st.Recognition.Text != "Bax 14, Shefl B" {
		t.Errorf("original recognition mutated: %q", st.Recognition.Text)
	}
}

func TestMergeNilStructuredDataKeepsOriginal(t *testing.T) {
	st := pendingState()
	if err := Merge(st, Correction{Text: "Box 14"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if st.FinalResult.StructuredData["Box"] != "14" {
		t.Errorf("structured data = %v", st.FinalResult.StructuredData)
	}
}

func TestMergeRequiresHumanReviewStage(t *testing.T) {
	for _, stage := range []Stage{StageRecognition, StageReview, StageComplete} {
		st := pendingState()
		st.Stage = stage
		before := *st

		err := Merge(st, Correction{Text: "anything"})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("stage %q: err = %v, want ErrInvalidState", stage, err)
		}
		if st.Stage != before.Stage || st.FinalResult != before.FinalResult {
			t.Errorf("stage %q: state modified on failed merge", stage)
		}
	}
}
