//go:build !integration

// File: internal/usecase/flow_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
)

type mockStarter struct {
	mu      sync.Mutex
	singles []model.SourceReference
	batches []int
	err     error
}

func (m *mockStarter) StartSingle(ctx context.Context, userID int64, ref model.SourceReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.singles = append(m.singles, ref)
	return nil
}

func (m *mockStarter) StartBatch(ctx context.Context, userID int64, ref model.SourceReference, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, count)
	return nil
}

func fixedQuota(n int) QuotaPolicy {
	return func(ctx context.Context, userID int64) int { return n }
}

func newFlowFixture(limit int) (*FlowUC, *mockStateRepo, *mockStarter) {
	states := newMockStateRepo()
	starter := &mockStarter{}
	uc := NewFlowUC(states, starter, fixedQuota(limit), &testLogger)
	return uc, states, starter
}

func TestFlowSingleHappyPath(t *testing.T) {
	uc, states, starter := newFlowFixture(25)
	ctx := context.Background()

	reply, err := uc.StartFlow(ctx, 7, model.FlowSingle)
	if err != nil {
		t.Fatalf("StartFlow: %v", err)
	}
	if !strings.Contains(reply, "link") {
		t.Fatalf("unexpected prompt: %q", reply)
	}

	if _, err := uc.FeedText(ctx, 7, "https://t.me/somechannel/42"); err != nil {
		t.Fatalf("FeedText: %v", err)
	}
	if len(starter.singles) != 1 {
		t.Fatalf("expected one single start, got %d", len(starter.singles))
	}
	if starter.singles[0].MessageID != 42 {
		t.Fatalf("wrong message id: %d", starter.singles[0].MessageID)
	}
	if s, _ := states.GetState(ctx, 7); s != nil {
		t.Fatal("state should be cleared after handoff")
	}
}

func TestFlowBatchHappyPath(t *testing.T) {
	uc, states, starter := newFlowFixture(25)
	ctx := context.Background()

	if _, err := uc.StartFlow(ctx, 7, model.FlowBatch); err != nil {
		t.Fatalf("StartFlow: %v", err)
	}
	reply, err := uc.FeedText(ctx, 7, "t.me/c/123456/99")
	if err != nil {
		t.Fatalf("FeedText link: %v", err)
	}
	if !strings.Contains(reply, "25") {
		t.Fatalf("count prompt should show the limit, got %q", reply)
	}
	s, _ := states.GetState(ctx, 7)
	if s == nil || s.Step != model.StepAwaitingCount {
		t.Fatalf("expected awaiting_count, got %+v", s)
	}

	if _, err := uc.FeedText(ctx, 7, "10"); err != nil {
		t.Fatalf("FeedText count: %v", err)
	}
	if len(starter.batches) != 1 || starter.batches[0] != 10 {
		t.Fatalf("expected batch of 10, got %v", starter.batches)
	}
	if s, _ := states.GetState(ctx, 7); s != nil {
		t.Fatal("state should be cleared after handoff")
	}
}

func TestFlowBadLinkAborts(t *testing.T) {
	uc, states, starter := newFlowFixture(25)
	ctx := context.Background()

	_, _ = uc.StartFlow(ctx, 7, model.FlowBatch)
	reply, err := uc.FeedText(ctx, 7, "not a link at all")
	if err != nil {
		t.Fatalf("FeedText: %v", err)
	}
	if reply == "" {
		t.Fatal("expected a format error reply")
	}
	if s, _ := states.GetState(ctx, 7); s != nil {
		t.Fatal("bad link should abort the flow")
	}
	if len(starter.singles)+len(starter.batches) != 0 {
		t.Fatal("nothing should have started")
	}
}

func TestFlowCountValidation(t *testing.T) {
	uc, states, starter := newFlowFixture(25)
	ctx := context.Background()

	_, _ = uc.StartFlow(ctx, 7, model.FlowBatch)
	_, _ = uc.FeedText(ctx, 7, "https://t.me/somechannel/1")

	// Non-integer keeps the flow in place.
	if reply, _ := uc.FeedText(ctx, 7, "lots"); !strings.Contains(reply, "number") {
		t.Fatalf("expected retry prompt, got %q", reply)
	}
	// Over the limit keeps the flow in place.
	if reply, _ := uc.FeedText(ctx, 7, "26"); !strings.Contains(reply, "25") {
		t.Fatalf("expected limit message, got %q", reply)
	}
	if s, _ := states.GetState(ctx, 7); s == nil || s.Step != model.StepAwaitingCount {
		t.Fatal("flow should stay in awaiting_count on invalid input")
	}

	// Exactly the limit is allowed.
	if _, err := uc.FeedText(ctx, 7, "25"); err != nil {
		t.Fatalf("FeedText at limit: %v", err)
	}
	if len(starter.batches) != 1 || starter.batches[0] != 25 {
		t.Fatalf("expected batch of 25, got %v", starter.batches)
	}
}

func TestFlowTextWithoutFlow(t *testing.T) {
	uc, _, _ := newFlowFixture(25)
	if _, err := uc.FeedText(context.Background(), 7, "hello"); !errors.Is(err, domain.ErrFlowNotActive) {
		t.Fatalf("expected ErrFlowNotActive, got %v", err)
	}
}

func TestFlowRestartReplacesState(t *testing.T) {
	uc, states, _ := newFlowFixture(25)
	ctx := context.Background()

	_, _ = uc.StartFlow(ctx, 7, model.FlowBatch)
	_, _ = uc.FeedText(ctx, 7, "https://t.me/somechannel/1")
	_, _ = uc.StartFlow(ctx, 7, model.FlowSingle)

	s, _ := states.GetState(ctx, 7)
	if s == nil || s.Kind != model.FlowSingle || s.Step != model.StepAwaitingLink {
		t.Fatalf("restart should reset the flow, got %+v", s)
	}
}

func TestFlowCancel(t *testing.T) {
	uc, states, _ := newFlowFixture(25)
	ctx := context.Background()

	if reply, _ := uc.Cancel(ctx, 7); reply != "Nothing to cancel." {
		t.Fatalf("unexpected idle cancel reply: %q", reply)
	}
	_, _ = uc.StartFlow(ctx, 7, model.FlowBatch)
	if reply, _ := uc.Cancel(ctx, 7); reply != "Cancelled." {
		t.Fatalf("unexpected cancel reply: %q", reply)
	}
	if s, _ := states.GetState(ctx, 7); s != nil {
		t.Fatal("cancel should clear the state")
	}
}

func TestFlowStartWhileJobRunning(t *testing.T) {
	uc, _, starter := newFlowFixture(25)
	ctx := context.Background()
	starter.err = domain.ErrAlreadyActive

	_, _ = uc.StartFlow(ctx, 7, model.FlowSingle)
	reply, err := uc.FeedText(ctx, 7, "https://t.me/somechannel/42")
	if err != nil {
		t.Fatalf("FeedText: %v", err)
	}
	if !strings.Contains(reply, "/stop") {
		t.Fatalf("expected the running-task hint, got %q", reply)
	}
}
