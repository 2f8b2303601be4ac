package workflow

// Route is the pure decision state transition:
//
//	skip_review  verdict              next_step
//	true         —                    approve      (final = recognition)
//	false        accept               complete     (final = recognition)
//	false        needs_human_review   human_review (final unset)
//
// approve and complete are both terminal; the distinction records whether
// the review stage was bypassed or actively approved.
func Route(st *State, skipReview bool, verdict Verdict) {
	switch {
	case skipReview:
		st.NextStep = StepApprove
		st.Stage = StageComplete
		st.FinalResult = cloneResult(st.Recognition)
	case verdict == VerdictAccept:
		st.NextStep = StepComplete
		st.Stage = StageComplete
		st.FinalResult = cloneResult(st.Recognition)
	default:
		st.NextStep = StepHumanReview
		st.Stage = StageHumanReview
		st.FinalResult = nil
	}
}
