//go:build !integration

// File: internal/usecase/relay_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/adapter"
)

func newRelayFixture(t *testing.T, jobs *mockJobRepo, bot *mockMessenger) *RelayUC {
	t.Helper()
	users := newMockUserRepo()
	pool := NewClientPool(&mockFactory{}, users, passthroughCipher{}, newLocalLocker(), bot, "", &testLogger)
	pipe := NewPipeline(users, identityTransform, t.TempDir(), 2000, 1900, 0, &testLogger)
	return NewRelayUC(context.Background(), jobs, pool, pipe, time.Millisecond, &testLogger)
}

func textSourceBot() *mockMessenger {
	bot := &mockMessenger{}
	bot.GetMessageFunc = func(ctx context.Context, ref model.SourceReference) (*adapter.RemoteMessage, error) {
		return &adapter.RemoteMessage{Kind: model.MediaText, Text: "payload"}, nil
	}
	return bot
}

func TestRelaySingleJobLifecycle(t *testing.T) {
	jobs := newMockJobRepo()
	bot := textSourceBot()
	uc := newRelayFixture(t, jobs, bot)

	if err := uc.StartSingle(context.Background(), 7, publicRef(5)); err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	uc.Shutdown()

	if _, err := jobs.Find(context.Background(), 7); !errors.Is(err, domain.ErrNoActiveJob) {
		t.Fatal("job record should be cleared after the run")
	}
	// Status message plus the transferred text.
	if bot.textCount() < 2 {
		t.Fatalf("expected status and payload sends, got %d", bot.textCount())
	}
	if len(bot.deleted) != 1 {
		t.Fatalf("single jobs should drop their status message, got %d deletes", len(bot.deleted))
	}
}

func TestRelayBatchRunsSequentially(t *testing.T) {
	jobs := newMockJobRepo()
	bot := textSourceBot()
	uc := newRelayFixture(t, jobs, bot)

	if err := uc.StartBatch(context.Background(), 7, publicRef(100), 3); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	uc.Shutdown()

	var final string
	for _, e := range bot.edits {
		final = e
	}
	if !strings.Contains(final, "Completed. Success: 3/3") {
		t.Fatalf("unexpected final summary: %q", final)
	}
	if _, err := jobs.Find(context.Background(), 7); !errors.Is(err, domain.ErrNoActiveJob) {
		t.Fatal("job record should be cleared after the run")
	}
}

func TestRelayDuplicateStartRejected(t *testing.T) {
	jobs := newMockJobRepo()
	// A long delay keeps the first job alive while the second start arrives.
	bot := textSourceBot()
	uc := newRelayFixture(t, jobs, bot)
	uc.itemDelay = 200 * time.Millisecond

	if err := uc.StartBatch(context.Background(), 7, publicRef(1), 2); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := uc.StartSingle(context.Background(), 7, publicRef(9)); !errors.Is(err, domain.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	_ = uc.RequestCancel(context.Background(), 7)
	uc.Shutdown()
}

func TestRelayCancellation(t *testing.T) {
	jobs := newMockJobRepo()
	bot := textSourceBot()
	uc := newRelayFixture(t, jobs, bot)
	uc.itemDelay = 100 * time.Millisecond

	if err := uc.StartBatch(context.Background(), 7, publicRef(1), 50); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	if err := uc.RequestCancel(context.Background(), 7); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	uc.Shutdown()

	var final string
	for _, e := range bot.edits {
		final = e
	}
	if !strings.Contains(final, "Cancelled.") {
		t.Fatalf("expected a cancellation summary, got %q", final)
	}
	if !strings.Contains(final, "/50") {
		t.Fatalf("summary should report attempted count, got %q", final)
	}
}

func TestRelayCancelWithoutJob(t *testing.T) {
	uc := newRelayFixture(t, newMockJobRepo(), textSourceBot())
	if err := uc.RequestCancel(context.Background(), 7); !errors.Is(err, domain.ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob, got %v", err)
	}
}

func TestRelayInvalidBatchCount(t *testing.T) {
	uc := newRelayFixture(t, newMockJobRepo(), textSourceBot())
	if err := uc.StartBatch(context.Background(), 7, publicRef(1), 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRelayRecoverOrphans(t *testing.T) {
	jobs := newMockJobRepo()
	orphan := model.NewJob(7, model.JobBatch, 10, model.MessageRef{ChatID: 7, MessageID: 3})
	if err := jobs.Create(context.Background(), orphan); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	bot := textSourceBot()
	uc := newRelayFixture(t, jobs, bot)

	if err := uc.RecoverOrphans(context.Background()); err != nil {
		t.Fatalf("RecoverOrphans: %v", err)
	}
	if _, err := jobs.Find(context.Background(), 7); !errors.Is(err, domain.ErrNoActiveJob) {
		t.Fatal("orphaned record should be cleared")
	}
	if bot.textCount() != 1 {
		t.Fatalf("owner should be notified once, got %d sends", bot.textCount())
	}
}

func TestRelayActiveJobs(t *testing.T) {
	jobs := newMockJobRepo()
	uc := newRelayFixture(t, jobs, textSourceBot())
	uc.itemDelay = 200 * time.Millisecond

	if err := uc.StartBatch(context.Background(), 7, publicRef(1), 2); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	active, err := uc.ActiveJobs(context.Background())
	if err != nil {
		t.Fatalf("ActiveJobs: %v", err)
	}
	if len(active) != 1 || active[0].UserID != 7 {
		t.Fatalf("unexpected active jobs: %+v", active)
	}
	_ = uc.RequestCancel(context.Background(), 7)
	uc.Shutdown()
}
