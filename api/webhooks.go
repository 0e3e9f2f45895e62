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
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/chairside/chairside"
	"github.com/chairside/chairside/model"
)

// Square's webhook signature headers, newest scheme first.
const (
	signatureHeaderV2 = "x-square-hmacsha256-signature"
	signatureHeaderV1 = "x-square-signature"
)

// SquareWebhook receives Square webhook deliveries. The raw body is verified
// against the signature header before any decoding. Verified events are
// queued and acknowledged with 202; when the queue is unavailable the event
// is processed inline and acknowledged with 200. Event types without a
// pipeline, and inline pipelines that fail, are also acknowledged with 200:
// the run record carries the failure, and a non-2xx would only provoke
// redelivery storms.
func (a Api) SquareWebhook(c *gin.Context) {
	if !a.verifier.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook signature key is not configured"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	signature := c.GetHeader(signatureHeaderV2)
	if signature == "" {
		signature = c.GetHeader(signatureHeaderV1)
	}
	if signature == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing signature header"})
		return
	}

	if !a.verifier.Verify(body, requestURL(c.Request), signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	queued, err := a.chairside.AcceptWebhook(c.Request.Context(), event)
	if errors.Is(err, chairside.ErrUnsupportedEvent) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "event_type": event.Type})
		return
	}
	if err != nil {
		// The failure is already recorded on the run and logged. A non-2xx
		// here would make Square redeliver and re-run the side effects, so
		// the delivery is acknowledged and retries stay in our hands.
		c.JSON(http.StatusOK, gin.H{"status": "error", "event_id": event.EventID})
		return
	}

	if queued {
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "event_id": event.EventID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "event_id": event.EventID})
}

// requestURL reconstructs the URL the delivery arrived on, honoring proxy
// forwarding headers.
func requestURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + r.URL.Path
}
