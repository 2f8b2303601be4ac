package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"labelscan/internal/util"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Cache is the outbound caching contract: write-once per key, read many.
// Implementations live in internal/cache.
type Cache interface {
	Get(ctx context.Context, key string) (*State, error)
	Put(ctx context.Context, key string, st *State) error
}

// Log receives terminal workflow states for retention. Append is best
// effort; a failing log never fails the workflow.
type Log interface {
	Append(ctx context.Context, st *State) error
}

// Orchestrator is the sole entry point from the serving layer. Stateless
// between requests except for the terminal-result cache and the registry
// of workflows parked awaiting human review.
type Orchestrator struct {
	recognizer *Recognizer
	reviewer   *Reviewer
	cache      Cache
	journal    Log

	group   singleflight.Group
	mu      sync.Mutex
	pending map[string]*pendingEntry
}

type pendingEntry struct {
	st       *State
	cacheKey string
}

func NewOrchestrator(rec *Recognizer, rev *Reviewer, c Cache, journal Log) *Orchestrator {
	return &Orchestrator{
		recognizer: rec,
		reviewer:   rev,
		cache:      c,
		journal:    journal,
		pending:    make(map[string]*pendingEntry),
	}
}

// Submit runs one image through recognition, review and routing. Identical
// submissions (same bytes, models and flags) hit the cache; concurrent
// identical submissions share a single in-flight computation.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*State, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: missing image", ErrValidation)
	}
	if req.Hash == "" {
		req.Hash = util.SHA256Hex(req.Image)
	}

	key := submitKey(req)

	if st, err := o.cache.Get(ctx, key); err != nil {
		log.Printf("submit: cache get failed, recomputing: %v", err)
	} else if st != nil {
		return st, nil
	}

	v, err, _ := o.group.Do(key, func() (any, error) {
		// Detached from the caller so an abandoned request cannot fail
		// the followers sharing this computation. Provider calls carry
		// their own timeouts.
		wctx := context.WithoutCancel(ctx)

		if st, err := o.cache.Get(wctx, key); err == nil && st != nil {
			return st, nil
		}
		return o.run(wctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*State).Clone(), nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, key string) (*State, error) {
	st := &State{
		ID:         workflowID(req.Hash),
		Stage:      StageRecognition,
		ModelsUsed: map[string]string{},
		Timestamp:  time.Now().UTC(),
	}

	rec := o.recognizer.Recognize(ctx, req)
	st.Recognition = &rec
	st.ModelsUsed["recognition"] = rec.Meta.Model

	st.Stage = StageReview
	qa := o.reviewer.Review(ctx, req, rec)
	if !req.SkipReview {
		st.Review = &qa
		st.ModelsUsed["review"] = reviewModelLabel(req, o.reviewer)
	}

	Route(st, req.SkipReview, qa.Verdict)

	if st.Stage == StageComplete {
		o.finish(ctx, key, st)
	} else {
		o.mu.Lock()
		o.pending[st.ID] = &pendingEntry{st: st, cacheKey: key}
		o.mu.Unlock()
	}
	return st, nil
}

// SubmitCorrection merges human input into a workflow parked in
// human_review. Any other stage, or an unknown id, is rejected with
// ErrInvalidState and leaves the workflow unmodified.
func (o *Orchestrator) SubmitCorrection(ctx context.Context, c Correction) (*State, error) {
	o.mu.Lock()
	entry, ok := o.pending[c.WorkflowID]
	if !ok {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: workflow %q", ErrInvalidState, c.WorkflowID)
	}
	if err := Merge(entry.st, c); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	delete(o.pending, c.WorkflowID)
	st := entry.st
	o.mu.Unlock()

	// Cache and journal writes happen outside the lock so a slow store
	// cannot stall the pending registry.
	o.finish(ctx, entry.cacheKey, st)
	return st.Clone(), nil
}

// Get returns a workflow by id: parked ones first, then terminal ones.
func (o *Orchestrator) Get(ctx context.Context, id string) (*State, error) {
	o.mu.Lock()
	if entry, ok := o.pending[id]; ok {
		st := entry.st.Clone()
		o.mu.Unlock()
		return st, nil
	}
	o.mu.Unlock()

	st, err := o.cache.Get(ctx, idKey(id))
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return st, nil
}

// finish records a terminal state: once under the idempotence key, once
// under the id for lookups, and appended to the journal.
func (o *Orchestrator) finish(ctx context.Context, key string, st *State) {
	if err := o.cache.Put(ctx, key, st); err != nil {
		log.Printf("finish: cache put failed: %v", err)
	}
	if err := o.cache.Put(ctx, idKey(st.ID), st); err != nil {
		log.Printf("finish: cache put (id) failed: %v", err)
	}
	if o.journal != nil {
		if err := o.journal.Append(ctx, st); err != nil {
			log.Printf("finish: journal append failed: %v", err)
		}
	}
}

// submitKey makes re-submission idempotent per (image, models, flags);
// different flags or models never alias.
func submitKey(req Request) string {
	return fmt.Sprintf("workflow_%s_%s_%s_p%t_s%t",
		req.Hash, orDefault(req.Model), orDefault(req.ReviewModel),
		req.Preprocess, req.SkipReview)
}

func idKey(id string) string { return "id_" + id }

func workflowID(hash string) string {
	if hash == "" {
		return uuid.NewString()
	}
	return hash
}

func orDefault(model string) string {
	if model == "" {
		return "default"
	}
	return model
}

func reviewModelLabel(req Request, rev *Reviewer) string {
	if req.ReviewModel != "" {
		return req.ReviewModel
	}
	if eng, err := rev.Registry.Resolve(""); err == nil {
		return eng.Name()
	}
	return "default"
}
