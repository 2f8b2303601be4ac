package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"labelscan/internal/cache"
	"labelscan/internal/provider"
	"labelscan/internal/workflow"
)

// fakeEngine scripts provider behavior per call and counts invocations.
type fakeEngine struct {
	mu        sync.Mutex
	genCalls  int
	compCalls int
	genFn     func(call int) (string, error)
	compFn    func(call int) (string, error)
	delay     time.Duration
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Generate(ctx context.Context, _ []byte, _, _ string) (string, error) {
	f.mu.Lock()
	f.genCalls++
	n := f.genCalls
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.genFn == nil {
		return `{"text":"","confidence":0}`, nil
	}
	return f.genFn(n)
}

func (f *fakeEngine) Complete(ctx context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	f.compCalls++
	n := f.compCalls
	f.mu.Unlock()
	if f.compFn == nil {
		return `{"issues":[],"suggestions":[],"confidence":90,"needs_human_review":false}`, nil
	}
	return f.compFn(n)
}

func (f *fakeEngine) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genCalls, f.compCalls
}

func newTestOrchestrator(eng *fakeEngine) *workflow.Orchestrator {
	return newTestOrchestratorWithCache(eng, cache.NewMemory(time.Minute))
}

func newTestOrchestratorWithCache(eng *fakeEngine, c workflow.Cache) *workflow.Orchestrator {
	reg := provider.NewRegistry(eng)
	return workflow.NewOrchestrator(
		&workflow.Recognizer{Registry: reg, Timeout: time.Second, RetryTimeout: time.Second},
		&workflow.Reviewer{Registry: reg, Timeout: time.Second},
		c,
		nil,
	)
}

func recognized(text string, confidence int) string {
	return fmt.Sprintf(`{"text":%q,"confidence":%d,"structured_data":{}}`, text, confidence)
}

func TestSubmitRejectsMissingImage(t *testing.T) {
	o := newTestOrchestrator(&fakeEngine{})
	_, err := o.Submit(context.Background(), workflow.Request{})
	if !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestHighConfidenceCompletes(t *testing.T) {
	// Scenario: confidence 0.95, review accepts -> complete.
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Box 14, Shelf B", 95), nil },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("img-a")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.NextStep != workflow.StepComplete {
		t.Errorf("next_step = %q, want complete", st.NextStep)
	}
	if st.FinalResult == nil || st.FinalResult.Text != "Box 14, Shelf B" {
		t.Errorf("final = %+v", st.FinalResult)
	}
	if st.Review == nil {
		t.Error("review assessment missing")
	}
	if st.Recognition.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", st.Recognition.Confidence)
	}
}

func TestLowConfidenceEscalatesAndMerges(t *testing.T) {
	// Scenario: confidence 0.60 -> human_review -> correction -> complete.
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Bax 14, Shefl B", 60), nil },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("img-b")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.NextStep != workflow.StepHumanReview || st.Stage != workflow.StageHumanReview {
		t.Fatalf("next_step=%q stage=%q", st.NextStep, st.Stage)
	}
	if st.FinalResult != nil {
		t.Fatal("final_result set before correction")
	}

	done, err := o.SubmitCorrection(context.Background(), workflow.Correction{
		WorkflowID: st.ID,
		Text:       "Box 14, Shelf B",
	})
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if done.Stage != workflow.StageComplete || done.FinalResult.Text != "Box 14, Shelf B" {
		t.Errorf("stage=%q final=%+v", done.Stage, done.FinalResult)
	}
	if done.Recognition.Text != "Bax 14, Shefl B" {
		t.Errorf("original recognition not preserved: %q", done.Recognition.Text)
	}
}

func TestSkipReviewApprovesWithoutReviewCalls(t *testing.T) {
	// Scenario: skip_review -> approve, zero provider calls for review.
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("anything", 10), nil },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("img-c"), SkipReview: true})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.NextStep != workflow.StepApprove {
		t.Errorf("next_step = %q, want approve", st.NextStep)
	}
	if st.FinalResult == nil {
		t.Error("final_result missing")
	}
	if st.Review != nil {
		t.Error("review assessment should not be exposed when skipped")
	}
	if _, comp := eng.counts(); comp != 0 {
		t.Errorf("review made %d provider calls, want 0", comp)
	}
}

func TestResubmissionHitsCache(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Box 14", 95), nil },
	}
	o := newTestOrchestrator(eng)

	first, err := o.Submit(context.Background(), workflow.Request{Image: []byte("same-bytes")})
	if err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	second, err := o.Submit(context.Background(), workflow.Request{Image: []byte("same-bytes")})
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	if gen, comp := eng.counts(); gen != 1 || comp != 1 {
		t.Errorf("provider calls gen=%d comp=%d, want 1/1", gen, comp)
	}
	if first.ID != second.ID || second.FinalResult.Text != first.FinalResult.Text {
		t.Errorf("cached state differs: %+v vs %+v", first, second)
	}
}

func TestDifferentFlagsDoNotAlias(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Box 14", 95), nil },
	}
	o := newTestOrchestrator(eng)

	if _, err := o.Submit(context.Background(), workflow.Request{Image: []byte("b")}); err != nil {
		t.Fatal(err)
	}
	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("b"), SkipReview: true})
	if err != nil {
		t.Fatal(err)
	}
	if st.NextStep != workflow.StepApprove {
		t.Errorf("skip_review submission served from non-skip cache entry: %q", st.NextStep)
	}
	if gen, _ := eng.counts(); gen != 2 {
		t.Errorf("gen calls = %d, want 2", gen)
	}
}

func TestConcurrentIdenticalSubmissionsShareOneComputation(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Box 14", 95), nil },
		delay: 50 * time.Millisecond,
	}
	o := newTestOrchestrator(eng)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*workflow.State, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("hot-image")})
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			results[i] = st
		}(i)
	}
	wg.Wait()

	if gen, _ := eng.counts(); gen != 1 {
		t.Errorf("gen calls = %d, want 1 (followers must await the in-flight result)", gen)
	}
	for i := 1; i < n; i++ {
		if results[i] == nil || results[0] == nil || results[i].ID != results[0].ID {
			t.Fatalf("result %d diverged", i)
		}
	}
}

func TestProviderFaultRetriesOnce(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(call int) (string, error) {
			if call == 1 {
				return "", &provider.Error{Backend: "fake", Err: errors.New("boom")}
			}
			return recognized("Box 14", 95), nil
		},
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("flaky")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gen, _ := eng.counts(); gen != 2 {
		t.Errorf("gen calls = %d, want 2", gen)
	}
	if st.Recognition.Text != "Box 14" {
		t.Errorf("retry did not recover: %+v", st.Recognition)
	}
}

func TestProviderFaultDegradesAfterRetry(t *testing.T) {
	provErr := &provider.Error{Backend: "fake", Err: errors.New("down")}
	eng := &fakeEngine{
		genFn:  func(int) (string, error) { return "", provErr },
		compFn: func(int) (string, error) { return "", provErr },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("dead-backend")})
	if err != nil {
		t.Fatalf("submit must not fail on provider faults: %v", err)
	}
	if st.Recognition.Text != "" || st.Recognition.Confidence != 0 {
		t.Errorf("degraded result expected, got %+v", st.Recognition)
	}
	if len(st.Recognition.Meta.Issues) == 0 {
		t.Error("degraded result must carry an issue entry")
	}
	// A human can still review an empty result.
	if st.Stage != workflow.StageHumanReview {
		t.Errorf("stage = %q, want human_review", st.Stage)
	}
	if gen, _ := eng.counts(); gen != 2 {
		t.Errorf("gen calls = %d, want exactly one retry", gen)
	}
}

func TestCorrectionOnUnknownOrTerminalWorkflow(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("Box 14", 95), nil },
	}
	o := newTestOrchestrator(eng)

	if _, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: "nope"}); !errors.Is(err, workflow.ErrInvalidState) {
		t.Errorf("unknown workflow: err = %v, want ErrInvalidState", err)
	}

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("done")})
	if err != nil {
		t.Fatal(err)
	}
	if st.Stage != workflow.StageComplete {
		t.Fatalf("precondition: stage = %q", st.Stage)
	}
	if _, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: st.ID}); !errors.Is(err, workflow.ErrInvalidState) {
		t.Errorf("terminal workflow: err = %v, want ErrInvalidState", err)
	}
}

func TestDuplicateCorrectionRejected(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("unsure", 40), nil },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: st.ID, Text: "fixed"}); err != nil {
		t.Fatalf("first correction: %v", err)
	}
	if _, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: st.ID, Text: "again"}); !errors.Is(err, workflow.ErrInvalidState) {
		t.Errorf("duplicate correction: err = %v, want ErrInvalidState", err)
	}
}

func TestGetFindsPendingAndTerminal(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("unsure", 40), nil },
	}
	o := newTestOrchestrator(eng)

	st, err := o.Submit(context.Background(), workflow.Request{Image: []byte("y")})
	if err != nil {
		t.Fatal(err)
	}
	got, err := o.Get(context.Background(), st.ID)
	if err != nil || got.Stage != workflow.StageHumanReview {
		t.Fatalf("pending lookup: %v %+v", err, got)
	}

	if _, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: st.ID, Text: "fixed"}); err != nil {
		t.Fatal(err)
	}
	got, err = o.Get(context.Background(), st.ID)
	if err != nil || got.Stage != workflow.StageComplete {
		t.Fatalf("terminal lookup: %v %+v", err, got)
	}

	if _, err := o.Get(context.Background(), "missing"); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("missing lookup: err = %v, want ErrNotFound", err)
	}
}

// gateCache blocks the first Put until released, standing in for a slow
// shared store.
type gateCache struct {
	mu      sync.Mutex
	m       map[string]*workflow.State
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGateCache() *gateCache {
	return &gateCache{
		m:       map[string]*workflow.State{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (c *gateCache) Get(_ context.Context, key string) (*workflow.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.m[key]; ok {
		return st.Clone(), nil
	}
	return nil, nil
}

func (c *gateCache) Put(_ context.Context, key string, st *workflow.State) error {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[key]; !ok {
		c.m[key] = st.Clone()
	}
	return nil
}

func TestSlowStoreDoesNotBlockPendingRegistry(t *testing.T) {
	eng := &fakeEngine{
		genFn: func(int) (string, error) { return recognized("unsure", 40), nil },
	}
	gc := newGateCache()
	o := newTestOrchestratorWithCache(eng, gc)

	first, err := o.Submit(context.Background(), workflow.Request{Image: []byte("low-1")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Submit(context.Background(), workflow.Request{Image: []byte("low-2")})
	if err != nil {
		t.Fatal(err)
	}

	corrDone := make(chan error, 1)
	go func() {
		_, err := o.SubmitCorrection(context.Background(), workflow.Correction{WorkflowID: first.ID, Text: "fixed"})
		corrDone <- err
	}()
	<-gc.entered // the correction is now stalled inside the store write

	lookupDone := make(chan error, 1)
	go func() {
		_, err := o.Get(context.Background(), second.ID)
		lookupDone <- err
	}()
	select {
	case err := <-lookupDone:
		if err != nil {
			t.Fatalf("pending lookup: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending registry blocked while the store write was in flight")
	}

	close(gc.release)
	if err := <-corrDone; err != nil {
		t.Fatalf("correction: %v", err)
	}
}
