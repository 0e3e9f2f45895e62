package chairside

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/model"
)

// appLog persists a structured log entry alongside the run it belongs to.
// Entries are best effort; losing one never fails a pipeline.
func (c *Chairside) appLog(ctx context.Context, level, event, correlationID, message string, fields map[string]interface{}) {
	entry := model.AppLog{
		Level:         level,
		Event:         event,
		CorrelationID: correlationID,
		Message:       message,
		Fields:        fields,
	}
	if err := c.datasource.RecordAppLog(ctx, entry); err != nil {
		logrus.WithError(err).Debug("persist app log")
	}
}
