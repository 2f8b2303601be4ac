// Package workflow is the recognition workflow orchestrator: it turns a
// raw provider response into a vetted, structured, auditable result by
// branching on confidence and review verdicts and merging human input.
package workflow

import (
	"errors"
	"time"
)

// Stage of a workflow record.
type Stage string

const (
	StageRecognition Stage = "recognition"
	StageReview      Stage = "review"
	StageHumanReview Stage = "human_review"
	StageComplete    Stage = "complete"
)

// NextStep is derived by the decision router, never set by callers.
// approve and complete are both terminal; approve records that the review
// stage was bypassed, which audit trails care about.
type NextStep string

const (
	StepApprove     NextStep = "approve"
	StepHumanReview NextStep = "human_review"
	StepComplete    NextStep = "complete"
)

// Verdict is the review stage's recommendation.
type Verdict string

const (
	VerdictAccept           Verdict = "accept"
	VerdictNeedsHumanReview Verdict = "needs_human_review"
)

// User-visible failures. Provider and parse faults never surface; they
// degrade into low-confidence results instead.
var (
	ErrValidation   = errors.New("invalid request")
	ErrInvalidState = errors.New("workflow not awaiting human review")
	ErrNotFound     = errors.New("workflow not found")
)

// Request is one inbound recognition call. Immutable; not persisted by
// the core once the workflow resolves.
type Request struct {
	Image       []byte `json:"-"`
	Hash        string `json:"hash"`
	Model       string `json:"model,omitempty"`
	ReviewModel string `json:"review_model,omitempty"`
	Preprocess  bool   `json:"preprocess"`
	SkipReview  bool   `json:"skip_review"`
}

// Meta travels with a recognition result for auditing.
type Meta struct {
	Model       string    `json:"model"`
	ImageHash   string    `json:"image_hash"`
	GeneratedAt time.Time `json:"generated_at"`
	Issues      []string  `json:"issues,omitempty"`
	Comments    []string  `json:"comments,omitempty"`
}

// RecognitionResult is the first-pass output. Confidence is always in [0,1].
type RecognitionResult struct {
	Text           string            `json:"text"`
	Confidence     float64           `json:"confidence"`
	StructuredData map[string]string `json:"structured_data"`
	Meta           Meta              `json:"metadata"`
}

// QualityAssessment is the second-pass output, consumed immediately by the
// decision router.
type QualityAssessment struct {
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
	Verdict     Verdict  `json:"verdict"`
}

// Correction is human input merged into a workflow awaiting review.
type Correction struct {
	WorkflowID     string            `json:"workflow_id"`
	Text           string            `json:"corrected_text"`
	StructuredData map[string]string `json:"corrected_structured_data,omitempty"`
	Comments       string            `json:"comments,omitempty"`
}

// State threads one request through the pipeline. FinalResult is set iff
// Stage == complete.
type State struct {
	ID          string             `json:"id"`
	Stage       Stage              `json:"stage"`
	Recognition *RecognitionResult `json:"recognition"`
	Review      *QualityAssessment `json:"review,omitempty"`
	FinalResult *RecognitionResult `json:"final_result,omitempty"`
	NextStep    NextStep           `json:"next_step"`
	ModelsUsed  map[string]string  `json:"models_used"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Clone returns a deep copy so callers can hold a State without racing the
// pending registry.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Recognition = cloneResult(s.Recognition)
	cp.Review = cloneAssessment(s.Review)
	cp.FinalResult = cloneResult(s.FinalResult)
	cp.ModelsUsed = cloneStringMap(s.ModelsUsed)
	return &cp
}

func cloneResult(r *RecognitionResult) *RecognitionResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.StructuredData = cloneStringMap(r.StructuredData)
	cp.Meta.Issues = append([]string(nil), r.Meta.Issues...)
	cp.Meta.Comments = append([]string(nil), r.Meta.Comments...)
	return &cp
}

func cloneAssessment(a *QualityAssessment) *QualityAssessment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Issues = append([]string(nil), a.Issues...)
	cp.Suggestions = append([]string(nil), a.Suggestions...)
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
