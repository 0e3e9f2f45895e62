/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package chairside

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/chairside/chairside/database"
	"github.com/chairside/chairside/model"
)

const (
	// How long a probe result is trusted before re-checking.
	runsProbeOKTTL     = 30 * time.Second
	runsProbeFailedTTL = 5 * time.Second

	// Stored errors are truncated so one giant API response cannot bloat
	// the runs table.
	maxStoredErrorLength = 500
)

// RunTracker records webhook run progress. Run bookkeeping is strictly
// best-effort: when the runs table is missing the tracker degrades to a
// no-op so event processing itself never fails on telemetry. Any other
// probe failure is treated as transient and writes continue.
type RunTracker struct {
	datasource database.IDataSource

	mu        sync.Mutex
	available bool
	checkedAt time.Time
	ttl       time.Duration
}

// NewRunTracker builds a tracker over the given datasource.
func NewRunTracker(db database.IDataSource) *RunTracker {
	return &RunTracker{datasource: db}
}

// Available reports whether the runs table is currently usable. The probe
// result is cached; a healthy table is re-checked every 30 seconds, a failed
// one every 5 so recovery is picked up quickly.
func (t *RunTracker) Available(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.checkedAt.IsZero() && time.Since(t.checkedAt) < t.ttl {
		return t.available
	}

	err := t.datasource.PingRuns(ctx)
	t.checkedAt = time.Now()
	if database.IsMissingRelation(err) {
		t.available = false
		t.ttl = runsProbeFailedTTL
		logrus.Warn("workflow_runs table missing, run tracking disabled")
		return false
	}
	if err != nil {
		// Transient probe failure. Keep writing optimistically so a blip
		// never drops run records, and re-probe soon.
		logrus.WithError(err).Warn("workflow_runs probe failed, keeping run tracking on")
		t.available = true
		t.ttl = runsProbeFailedTTL
		return true
	}
	t.available = true
	t.ttl = runsProbeOKTTL
	return true
}

// EnsureRun creates or re-opens the run row for a correlation id. A repeat
// delivery bumps the attempt counter instead of inserting a second row.
func (t *RunTracker) EnsureRun(ctx context.Context, correlationID string, event model.WebhookEvent) {
	if !t.Available(ctx) {
		return
	}

	payload := map[string]interface{}{
		"event_id":    event.EventID,
		"event_type":  event.Type,
		"merchant_id": event.MerchantID,
		"resource_id": event.ResourceID(),
	}
	run := model.WorkflowRun{
		CorrelationID: correlationID,
		Stage:         "received",
		Status:        model.RunStatusPending,
		Payload:       payload,
	}
	if err := t.datasource.UpsertRun(ctx, run); err != nil {
		t.noteFailure(err, "ensure run")
	}
}

// UpdateStage advances the run to a new stage, clearing any previous error.
func (t *RunTracker) UpdateStage(ctx context.Context, correlationID, stage, status string) {
	t.patch(ctx, correlationID, model.RunPatch{
		Stage:      ptr.String(stage),
		Status:     ptr.String(status),
		ClearError: true,
	})
}

// AddContext merges facts discovered during processing into the run's
// context document, without touching stage or status.
func (t *RunTracker) AddContext(ctx context.Context, correlationID string, extra map[string]interface{}) {
	if len(extra) == 0 {
		return
	}
	t.patch(ctx, correlationID, model.RunPatch{Context: extra})
}

// MarkError records a terminal failure at the current stage. The stored
// message is truncated; the full error still reaches the logs.
func (t *RunTracker) MarkError(ctx context.Context, correlationID, stage string, runErr error) {
	message := runErr.Error()
	if len(message) > maxStoredErrorLength {
		message = message[:maxStoredErrorLength] + "..."
	}
	t.patch(ctx, correlationID, model.RunPatch{
		Stage:     ptr.String(stage),
		Status:    ptr.String(model.RunStatusError),
		LastError: ptr.String(message),
	})
}

func (t *RunTracker) patch(ctx context.Context, correlationID string, p model.RunPatch) {
	if !t.Available(ctx) {
		return
	}
	if err := t.datasource.PatchRun(ctx, correlationID, p); err != nil {
		t.noteFailure(err, "patch run")
	}
}

// noteFailure downgrades availability immediately when a write reveals the
// table vanished between probes.
func (t *RunTracker) noteFailure(err error, op string) {
	logrus.WithError(err).Warnf("run tracker: %s failed", op)
	if database.IsMissingRelation(err) {
		t.mu.Lock()
		t.available = false
		t.checkedAt = time.Now()
		t.ttl = runsProbeFailedTTL
		t.mu.Unlock()
	}
}
