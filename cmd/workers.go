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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chairside/chairside"
	"github.com/chairside/chairside/config"
	redis_db "github.com/chairside/chairside/internal/redis-db"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// processStage runs one queued webhook event through its pipeline. Errors
// are returned so asynq retries the task with backoff.
func (b *chairsideInstance) processStage(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("chairside.stage.worker").Start(ctx, "Process Webhook Stage From Redis Queue",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var payload chairside.StagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	err := b.chairside.ProcessStage(ctx, payload.CorrelationID, payload.Event)
	if err != nil {
		logrus.Infof("Stage %s pushed back for retry due to error: %v", payload.CorrelationID, err)
		return err
	}

	log.Println(" [*] Stage Processed", payload.CorrelationID)
	return nil
}

// deliverEmail sends a queued gift card email notification.
func (b *chairsideInstance) deliverEmail(ctx context.Context, t *asynq.Task) error {
	var payload chairside.DeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.chairside.DeliverGiftCardEmail(ctx, payload); err != nil {
		return err
	}
	log.Println(" [*] Email Delivered", payload.CorrelationID)
	return nil
}

// deliverSms sends a queued gift card SMS notification.
func (b *chairsideInstance) deliverSms(ctx context.Context, t *asynq.Task) error {
	var payload chairside.DeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.chairside.DeliverGiftCardSMS(ctx, payload); err != nil {
		return err
	}
	log.Println(" [*] SMS Delivered", payload.CorrelationID)
	return nil
}

// deliverWalletPass waits for the card's wallet pass URL and pushes it.
func (b *chairsideInstance) deliverWalletPass(ctx context.Context, t *asynq.Task) error {
	var payload chairside.DeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.chairside.DeliverWalletPass(ctx, payload); err != nil {
		return err
	}
	log.Println(" [*] Wallet Pass Delivered", payload.CorrelationID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.StageQueue] = 3
	queues[cfg.Queue.EmailQueue] = 1
	queues[cfg.Queue.SmsQueue] = 1
	queues[cfg.Queue.PassQueue] = 2
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *chairsideInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.StageQueue, b.processStage)
	mux.HandleFunc(cfg.Queue.EmailQueue, b.deliverEmail)
	mux.HandleFunc(cfg.Queue.SmsQueue, b.deliverSms)
	mux.HandleFunc(cfg.Queue.PassQueue, b.deliverWalletPass)
}

// workerCommands defines the "workers" command to start worker processes.
// The workers listen to the stage queue and the notification queues.
func workerCommands(b *chairsideInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start chairside workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(ctx)
			if err != nil {
				log.Printf("Tracing initialization error: %v", err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
