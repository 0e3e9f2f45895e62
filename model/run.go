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
package model

import "time"

// Workflow run statuses. A run only reaches StatusError when every fallback
// inside a stage has been exhausted; error runs are the input to the
// out-of-band reprocessing job.
const (
	RunStatusPending   = "pending"
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusError     = "error"
)

// WorkflowRun records progress of one logical webhook event through its
// stage pipeline. There is at most one row per correlation id.
type WorkflowRun struct {
	CorrelationID string                 `json:"correlation_id"`
	Stage         string                 `json:"stage"`
	Status        string                 `json:"status"`
	Attempts      int                    `json:"attempts"`
	LastError     string                 `json:"last_error,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Context       map[string]interface{} `json:"context,omitempty"`
	ResumedAt     time.Time              `json:"resumed_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// RunPatch is a partial update applied by UpdateStage. Nil pointer fields are
// left untouched at the storage layer; IncrementAttempts is applied
// atomically as `attempts + 1` in SQL.
type RunPatch struct {
	Stage             *string
	Status            *string
	LastError         *string
	Payload           map[string]interface{}
	Context           map[string]interface{}
	ResumedAt         *time.Time
	IncrementAttempts bool
	ClearError        bool
}

// IsEmpty reports whether applying the patch would change nothing.
func (p *RunPatch) IsEmpty() bool {
	return p.Stage == nil && p.Status == nil && p.LastError == nil &&
		p.Payload == nil && p.Context == nil && p.ResumedAt == nil &&
		!p.IncrementAttempts && !p.ClearError
}
