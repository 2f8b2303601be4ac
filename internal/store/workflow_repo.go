// Package store persists terminal workflow states as an append-only log
// keyed by workflow id, for retention and audit outside the hot path.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"labelscan/internal/workflow"
)

var ErrNotFound = sql.ErrNoRows

type WorkflowRepo struct{ DB *sql.DB }

func NewWorkflowRepo(db *sql.DB) *WorkflowRepo { return &WorkflowRepo{DB: db} }

// Append writes one terminal state. The log is append-only: a corrected
// workflow adds a second row under the same id rather than rewriting the
// automated one.
func (r *WorkflowRepo) Append(ctx context.Context, st *workflow.State) error {
	js, err := json.Marshal(st)
	if err != nil {
		return err
	}
	var model string
	if st.Recognition != nil {
		model = st.Recognition.Meta.Model
	}
	const q = `
insert into workflow_log (workflow_id, image_hash, stage, next_step, model, state_json)
values ($1,$2,$3,$4,$5,$6)`
	_, err = r.DB.ExecContext(ctx, q,
		st.ID, imageHash(st), string(st.Stage), string(st.NextStep), model, js)
	return err
}

// FindLatest returns the most recent logged state for a workflow id.
func (r *WorkflowRepo) FindLatest(ctx context.Context, id string) (*workflow.State, error) {
	const q = `
select state_json from workflow_log
where workflow_id = $1
order by created_at desc
limit 1`
	var js []byte
	if err := r.DB.QueryRowContext(ctx, q, id).Scan(&js); err != nil {
		return nil, err
	}
	var st workflow.State
	if err := json.Unmarshal(js, &st); err != nil {
		return nil, ErrNotFound
	}
	return &st, nil
}

// PurgeOlderThan enforces the retention policy.
func (r *WorkflowRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from workflow_log where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func imageHash(st *workflow.State) string {
	if st.Recognition != nil {
		return st.Recognition.Meta.ImageHash
	}
	return st.ID
}
