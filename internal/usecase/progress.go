// File: internal/usecase/progress.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"telegram-content-relay/internal/domain/ports/adapter"
)

const mb = 1024 * 1024

// bucketWidth picks the progress step width for a transfer of the given
// size. Larger transfers get finer buckets; the number of UI edits stays a
// small constant either way.
func bucketWidth(total int64) int {
	switch {
	case total >= 100*mb:
		return 10
	case total >= 50*mb:
		return 20
	case total >= 10*mb:
		return 30
	default:
		return 50
	}
}

// ProgressReporter turns byte progress into throttled status-message edits.
// One reporter covers one transfer phase (download or upload).
type ProgressReporter struct {
	edit  func(ctx context.Context, text string) error
	label string

	mu       sync.Mutex
	start    time.Time
	lastStep int
	muted    bool
}

// NewProgressReporter binds a reporter to a status-message edit function.
func NewProgressReporter(edit func(ctx context.Context, text string) error, label string) *ProgressReporter {
	return &ProgressReporter{edit: edit, label: label, lastStep: -1, start: time.Now()}
}

// Bind adapts the reporter to the adapter.ProgressFunc callback shape.
func (r *ProgressReporter) Bind(ctx context.Context) adapter.ProgressFunc {
	return func(current, total int64) { r.Report(ctx, current, total) }
}

// Report maybe emits an edit. Emission happens only when the progress bucket
// changed or the transfer just completed; a failed edit mutes the reporter so
// a concurrently deleted status message cannot fail repeatedly.
func (r *ProgressReporter) Report(ctx context.Context, current, total int64) {
	if total <= 0 {
		return
	}

	r.mu.Lock()
	if r.muted {
		r.mu.Unlock()
		return
	}
	percent := float64(current) / float64(total) * 100
	step := int(percent) / bucketWidth(total) * bucketWidth(total)
	if step == r.lastStep && percent < 100 {
		r.mu.Unlock()
		return
	}
	r.lastStep = step
	elapsed := time.Since(r.start)
	r.mu.Unlock()

	text := r.render(current, total, percent, elapsed)
	if err := r.edit(ctx, text); err != nil {
		r.mu.Lock()
		r.muted = true
		r.mu.Unlock()
	}
}

func (r *ProgressReporter) render(current, total int64, percent float64, elapsed time.Duration) string {
	var speed float64 // bytes/sec
	if elapsed > 0 {
		speed = float64(current) / elapsed.Seconds()
	}
	eta := "00:00"
	if speed > 0 && current < total {
		remaining := time.Duration(float64(total-current)/speed) * time.Second
		eta = fmt.Sprintf("%02d:%02d", int(remaining.Minutes()), int(remaining.Seconds())%60)
	}

	filled := int(percent / 10)
	if filled > 10 {
		filled = 10
	}
	bar := strings.Repeat("●", filled) + strings.Repeat("○", 10-filled)

	return fmt.Sprintf(
		"%s\n%s\nCompleted: %.2f MB / %.2f MB\nDone: %.2f%%\nSpeed: %.2f MB/s\nETA: %s",
		r.label, bar,
		float64(current)/mb, float64(total)/mb,
		percent, speed/mb, eta,
	)
}
