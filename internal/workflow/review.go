package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"labelscan/internal/parse"
	"labelscan/internal/prompt"
	"labelscan/internal/provider"
)

// AcceptThreshold gates the review verdict: the lower of the recognition
// confidence and the review confidence must clear it. Either stage
// expressing doubt escalates.
const AcceptThreshold = 0.85

// Reviewer runs the second, independent assessment pass.
type Reviewer struct {
	Registry *provider.Registry
	Timeout  time.Duration
}

const defaultReviewTimeout = 30 * time.Second

// Review assesses a first-pass result. With skip set it substitutes a
// synthetic accept without touching any provider. A failed or unstructured
// review degrades to needs_human_review, never to an error.
func (v *Reviewer) Review(ctx context.Context, req Request, rec RecognitionResult) QualityAssessment {
	if req.SkipReview {
		return QualityAssessment{
			Confidence: rec.Confidence,
			Verdict:    VerdictAccept,
		}
	}

	eng, err := v.Registry.Resolve(req.ReviewModel)
	if err != nil {
		return v.escalate(fmt.Sprintf("review unavailable: %v", err))
	}

	p := prompt.Review(rec.Text, rec.Confidence, rec.StructuredData)

	cctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()
	raw, err := eng.Complete(cctx, p, req.ReviewModel)
	if err != nil {
		log.Printf("review: %s failed: %v", eng.Name(), err)
		return v.escalate(fmt.Sprintf("review failed: %v", err))
	}

	payload, structured := parse.Review(raw)
	qa := QualityAssessment{
		Issues:      payload.Issues,
		Suggestions: payload.Suggestions,
		Confidence:  payload.Confidence,
	}
	qa.Verdict = verdictFor(rec.Confidence, payload.Confidence, payload.NeedsHumanReview || !structured)
	return qa
}

// verdictFor thresholds the lower of the two confidences. The reviewer's
// own escalation flag always wins.
func verdictFor(recognitionConf, reviewConf float64, reviewerDoubts bool) Verdict {
	if reviewerDoubts {
		return VerdictNeedsHumanReview
	}
	low := recognitionConf
	if reviewConf < low {
		low = reviewConf
	}
	if low >= AcceptThreshold {
		return VerdictAccept
	}
	return VerdictNeedsHumanReview
}

func (v *Reviewer) escalate(issue string) QualityAssessment {
	return QualityAssessment{
		Issues:     []string{issue},
		Confidence: 0,
		Verdict:    VerdictNeedsHumanReview,
	}
}

func (v *Reviewer) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return defaultReviewTimeout
}
