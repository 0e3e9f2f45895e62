package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chairside/chairside/model"
)

// RecordAppLog persists one application event. Best effort; callers treat a
// failure here as log noise, never as a pipeline failure.
func (d Datasource) RecordAppLog(ctx context.Context, entry model.AppLog) error {
	fieldsJSON, err := json.Marshal(entry.Fields)
	if err != nil {
		return err
	}

	if entry.LogID == "" {
		entry.LogID = model.GenerateUUIDWithSuffix("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO app_logs (log_id, level, event, correlation_id, message, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.LogID, entry.Level, entry.Event, entry.CorrelationID, entry.Message, fieldsJSON, entry.CreatedAt)
	return err
}

// GetAppLogs retrieves events for one correlation id, newest first
func (d Datasource) GetAppLogs(ctx context.Context, correlationID string, limit int) ([]model.AppLog, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT log_id, level, event, COALESCE(correlation_id, ''), COALESCE(message, ''), fields, created_at
		FROM app_logs
		WHERE correlation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, correlationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AppLog
	for rows.Next() {
		entry := model.AppLog{}
		var fieldsJSON []byte
		err = rows.Scan(&entry.LogID, &entry.Level, &entry.Event, &entry.CorrelationID, &entry.Message, &fieldsJSON, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &entry.Fields); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
