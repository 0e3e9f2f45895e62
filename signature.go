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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/config"
)

// SignatureVerifier checks Square webhook signatures. Square signs the
// concatenation of the raw request body and the notification URL with
// HMAC-SHA256 and sends the base64 digest in a header.
type SignatureVerifier struct {
	signatureKey    string
	notificationURL string
	debug           bool
}

// NewSignatureVerifier builds a verifier from configuration.
func NewSignatureVerifier(conf *config.Configuration) *SignatureVerifier {
	return &SignatureVerifier{
		signatureKey:    conf.Square.WebhookSignatureKey,
		notificationURL: conf.Square.NotificationURL,
		debug:           conf.Square.DebugSignature,
	}
}

// Configured reports whether a signature key is present. Verification can
// never succeed without one, which callers should surface as a server
// misconfiguration rather than a rejected delivery.
func (s *SignatureVerifier) Configured() bool {
	return s.signatureKey != ""
}

// Verify reports whether the signature header matches the request body.
// Square signs against the subscription's notification URL, which behind a
// proxy rarely equals the URL the service observes, so every plausible URL
// variant is tried before rejecting.
//
// Parameters:
// - body []byte: The raw request body, before any JSON decoding.
// - requestURL string: The URL the request actually arrived on.
// - signature string: The value of the signature header.
//
// Returns:
// - bool: True when any candidate matches.
func (s *SignatureVerifier) Verify(body []byte, requestURL, signature string) bool {
	if s.signatureKey == "" || signature == "" {
		return false
	}

	var attempted []string
	for _, candidate := range s.urlCandidates(requestURL) {
		mac := hmac.New(sha256.New, []byte(s.signatureKey))
		mac.Write(body)
		mac.Write([]byte(candidate))
		digest := mac.Sum(nil)

		expectedBase64 := base64.StdEncoding.EncodeToString(digest)
		if hmac.Equal([]byte(expectedBase64), []byte(signature)) {
			return true
		}
		// Some older subscriptions deliver hex digests.
		expectedHex := hex.EncodeToString(digest)
		if hmac.Equal([]byte(expectedHex), []byte(strings.ToLower(signature))) {
			return true
		}
		attempted = append(attempted, candidate)
	}

	if s.debug {
		logrus.WithFields(logrus.Fields{
			"attempted_urls": attempted,
			"body_length":    len(body),
		}).Warn("webhook signature verification failed")
	}
	return false
}

// urlCandidates returns the URLs to sign against, deduplicated, in the order
// they are most likely to match.
func (s *SignatureVerifier) urlCandidates(requestURL string) []string {
	seen := make(map[string]bool)
	var candidates []string
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		candidates = append(candidates, url)
	}

	for _, base := range []string{s.notificationURL, requestURL} {
		if base == "" {
			continue
		}
		add(base)
		if strings.HasSuffix(base, "/") {
			add(strings.TrimSuffix(base, "/"))
		} else {
			add(base + "/")
		}
	}
	return candidates
}
