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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/internal/notification"
	"github.com/chairside/chairside/model"
)

// ErrUnsupportedEvent marks event types Chairside has no pipeline for.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// SupportedEvent reports whether an event type has a pipeline.
func SupportedEvent(eventType string) bool {
	switch eventType {
	case model.EventCustomerCreated,
		model.EventBookingCreated, model.EventBookingUpdated,
		model.EventPaymentCreated, model.EventPaymentUpdated:
		return true
	}
	return false
}

// AcceptWebhook takes a verified webhook event, records its run and hands it
// to the stage queue. When enqueueing fails, for example because Redis is
// down, the event is processed inline instead so the webhook is never lost.
//
// Parameters:
// - ctx context.Context: The request context.
// - event model.WebhookEvent: The decoded webhook envelope.
//
// Returns:
// - bool: True when the event was queued, false when it was processed inline.
// - error: An error when inline processing failed.
func (c *Chairside) AcceptWebhook(ctx context.Context, event model.WebhookEvent) (bool, error) {
	if !SupportedEvent(event.Type) {
		return false, ErrUnsupportedEvent
	}

	correlationID := model.BuildCorrelationID(event.Type, event.EventID, event.ResourceID())
	c.runs.EnsureRun(ctx, correlationID, event)

	if err := c.queue.EnqueueStage(ctx, correlationID, event); err == nil {
		c.runs.UpdateStage(ctx, correlationID, "queued", model.RunStatusQueued)
		return true, nil
	}

	logrus.Warn("stage queue unavailable, processing inline")
	return false, c.ProcessStage(ctx, correlationID, event)
}

// ProcessStage runs one event through its pipeline. It is invoked by the
// stage queue worker and by AcceptWebhook's inline fallback.
func (c *Chairside) ProcessStage(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	var err error
	switch event.Type {
	case model.EventCustomerCreated:
		err = c.handleCustomerCreated(ctx, correlationID, event)
	case model.EventBookingCreated:
		err = c.handleBookingCreated(ctx, correlationID, event)
	case model.EventBookingUpdated:
		err = c.handleBookingUpdated(ctx, correlationID, event)
	case model.EventPaymentCreated, model.EventPaymentUpdated:
		err = c.handlePaymentEvent(ctx, correlationID, event)
	default:
		err = ErrUnsupportedEvent
	}

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"event_type":     event.Type,
		}).Error("event pipeline failed")
		c.runs.MarkError(ctx, correlationID, event.Type, err)
		c.appLog(ctx, model.AppLogLevelError, event.Type, correlationID, err.Error(), nil)
		notification.NotifyError(errors.Wrapf(err, "pipeline %s (%s)", event.Type, correlationID))
		return err
	}
	c.appLog(ctx, model.AppLogLevelInfo, event.Type, correlationID, "pipeline completed", nil)
	return nil
}
