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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/chairside/chairside/model"
)

// UpsertRun creates the run row for a correlation id. A redelivery of the
// same event bumps attempts and re-stamps resumed_at instead of inserting.
func (d Datasource) UpsertRun(ctx context.Context, run model.WorkflowRun) error {
	payloadJSON, err := json.Marshal(run.Payload)
	if err != nil {
		return err
	}
	contextJSON, err := json.Marshal(run.Context)
	if err != nil {
		return err
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO workflow_runs (correlation_id, stage, status, attempts, payload, context)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (correlation_id) DO UPDATE
		SET attempts = workflow_runs.attempts + 1,
			resumed_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
	`, run.CorrelationID, run.Stage, run.Status, payloadJSON, contextJSON)
	return err
}

// PatchRun applies a partial update. Nil patch fields leave the stored value
// untouched via COALESCE; payload and context documents are merged into the
// stored ones rather than replaced, so facts recorded by earlier stages
// survive later patches. IncrementAttempts is computed in SQL so concurrent
// deliveries never lose a count, and ClearError forces last_error to NULL.
func (d Datasource) PatchRun(ctx context.Context, correlationID string, patch model.RunPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	payloadJSON, err := marshalNullable(patch.Payload)
	if err != nil {
		return err
	}
	contextJSON, err := marshalNullable(patch.Context)
	if err != nil {
		return err
	}

	attemptsDelta := 0
	if patch.IncrementAttempts {
		attemptsDelta = 1
	}

	_, err = d.Conn.ExecContext(ctx, `
		UPDATE workflow_runs
		SET stage = COALESCE($2, stage),
			status = COALESCE($3, status),
			last_error = CASE WHEN $4 THEN NULL ELSE COALESCE($5, last_error) END,
			payload = COALESCE(NULLIF(payload, 'null'::jsonb), '{}'::jsonb) || COALESCE($6, '{}')::jsonb,
			context = COALESCE(NULLIF(context, 'null'::jsonb), '{}'::jsonb) || COALESCE($7, '{}')::jsonb,
			resumed_at = COALESCE($8, resumed_at),
			attempts = attempts + $9,
			updated_at = CURRENT_TIMESTAMP
		WHERE correlation_id = $1
	`, correlationID, patch.Stage, patch.Status, patch.ClearError, patch.LastError, payloadJSON, contextJSON, patch.ResumedAt, attemptsDelta)
	return err
}

// marshalNullable renders a document as a JSON string, or a typed NULL when
// the document is absent so the SQL merge leaves the stored one alone.
func marshalNullable(doc map[string]interface{}) (sql.NullString, error) {
	if doc == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// GetRun retrieves a run by correlation ID
func (d Datasource) GetRun(ctx context.Context, correlationID string) (*model.WorkflowRun, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT correlation_id, stage, status, attempts, COALESCE(last_error, ''), payload, context, resumed_at, created_at, updated_at
		FROM workflow_runs
		WHERE correlation_id = $1
	`, correlationID)
	return scanRun(row.Scan)
}

// GetRunsByStatus lists runs in a status, most recently updated first
func (d Datasource) GetRunsByStatus(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT correlation_id, stage, status, attempts, COALESCE(last_error, ''), payload, context, resumed_at, created_at, updated_at
		FROM workflow_runs
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.WorkflowRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...interface{}) error) (*model.WorkflowRun, error) {
	run := &model.WorkflowRun{}
	var payloadJSON, contextJSON []byte
	var resumedAt sql.NullTime
	err := scan(
		&run.CorrelationID, &run.Stage, &run.Status, &run.Attempts, &run.LastError,
		&payloadJSON, &contextJSON, &resumedAt, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resumedAt.Valid {
		run.ResumedAt = resumedAt.Time
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &run.Payload); err != nil {
			return nil, err
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// PingRuns is a cheap availability probe for the workflow_runs relation.
// An empty table is still an available table.
func (d Datasource) PingRuns(ctx context.Context) error {
	var one int
	err := d.Conn.QueryRowContext(ctx, `SELECT 1 FROM workflow_runs LIMIT 1`).Scan(&one)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// IsMissingRelation reports whether an error means the table itself is
// absent, as opposed to the query failing for a transient reason. Code
// 42P01 is Postgres "undefined_table".
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "does not exist")
}

// IsUniqueViolation reports whether an error is a Postgres unique constraint
// violation (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
