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

package notification

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/chairside/chairside/config"
)

func TestSlackNotification_PostsPayload(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{
			Slack: config.SlackWebhook{WebhookUrl: "https://hooks.slack.com/services/T000/B000/XXX"},
		},
	})

	var received bool
	httpmock.RegisterResponder("POST", "https://hooks.slack.com/services/T000/B000/XXX",
		func(req *http.Request) (*http.Response, error) {
			received = true
			return httpmock.NewJsonResponse(200, map[string]string{"ok": "true"})
		})

	SlackNotification(errors.New("gift card activation failed"))
	assert.True(t, received)
}

func TestNotifyError_NoSlackConfigured(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	// Must not panic or block when no Slack webhook is configured.
	NotifyError(errors.New("boom"))
}
