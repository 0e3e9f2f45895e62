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
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chairside/chairside/config"
	redis_db "github.com/chairside/chairside/internal/redis-db"
	"github.com/chairside/chairside/model"
)

// Queue represents a queue for handling webhook stages and deliveries.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// StagePayload is the payload carried by a queued webhook stage task.
type StagePayload struct {
	CorrelationID string             `json:"correlation_id"`
	Event         model.WebhookEvent `json:"event"`
}

// DeliveryPayload is the payload for email, SMS and wallet pass tasks.
type DeliveryPayload struct {
	CorrelationID string         `json:"correlation_id"`
	Customer      model.Customer `json:"customer"`
	GiftCard      model.GiftCard `json:"gift_card"`
	QRCodeURI     string         `json:"qr_code_uri,omitempty"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueStage enqueues one webhook event for asynchronous processing. The
// task ID is the correlation id, so Redis-level deduplication suppresses
// duplicate deliveries that arrive while a task is still pending.
func (q *Queue) EnqueueStage(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	_, span := otel.Tracer("chairside.stage.queue").Start(ctx, "Enqueue Webhook Stage To Redis Queue",
		trace.WithSpanKind(trace.SpanKindProducer))
	span.SetAttributes(
		attribute.String("correlation.id", correlationID),
		attribute.String("event.type", event.Type),
	)
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(StagePayload{CorrelationID: correlationID, Event: event})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(correlationID),
		asynq.Queue(cfg.Queue.StageQueue),
	}
	task := asynq.NewTask(cfg.Queue.StageQueue, payload, taskOptions...)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf(" [*] Duplicate delivery suppressed: %s", correlationID)
			return nil
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued stage: %s", correlationID)
	return nil
}

// enqueueDelivery enqueues one notification task on the named queue.
func (q *Queue) enqueueDelivery(queueName string, payload DeliveryPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(queueName + ":" + payload.CorrelationID),
		asynq.Queue(queueName),
	}
	task := asynq.NewTask(queueName, data, taskOptions...)
	_, err = q.Client.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
