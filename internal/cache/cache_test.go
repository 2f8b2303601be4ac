package cache

import (
	"context"
	"testing"
	"time"

	"labelscan/internal/workflow"
)

func state(text string) *workflow.State {
	return &workflow.State{
		ID:    "h1",
		Stage: workflow.StageComplete,
		FinalResult: &workflow.RecognitionResult{
			Text:           text,
			StructuredData: map[string]string{},
		},
		NextStep: workflow.StepComplete,
	}
}

func TestMemoryGetMiss(t *testing.T) {
	c := NewMemory(time.Minute)
	st, err := c.Get(context.Background(), "nope")
	if err != nil || st != nil {
		t.Fatalf("got %v, %v", st, err)
	}
}

func TestMemoryPutIsWriteOnce(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	if err := c.Put(ctx, "k", state("first")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "k", state("second")); err != nil {
		t.Fatal(err)
	}

	st, _ := c.Get(ctx, "k")
	if st.FinalResult.Text != "first" {
		t.Errorf("second put overwrote the entry: %q", st.FinalResult.Text)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()
	_ = c.Put(ctx, "k", state("original"))

	st, _ := c.Get(ctx, "k")
	st.FinalResult.Text = "mutated"

	again, _ := c.Get(ctx, "k")
	if again.FinalResult.Text != "original" {
		t.Error("cache entry shared with caller")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	c := NewMemory(10 * time.Millisecond)
	ctx := context.Background()
	_ = c.Put(ctx, "k", state("short-lived"))

	time.Sleep(20 * time.Millisecond)
	st, err := c.Get(ctx, "k")
	if err != nil || st != nil {
		t.Errorf("expired entry still served: %v", st)
	}
}
