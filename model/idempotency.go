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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxIdempotencyKeyLength is Square's hard limit for idempotency key strings.
const MaxIdempotencyKeyLength = 45

// BuildCorrelationID derives the stable identifier that groups every
// processing stage of one logical webhook event. The same delivery retried
// by Square always maps to the same correlation id.
//
// Parameters:
// - triggerType string: The webhook event type, e.g. "payment.created".
// - eventID string: Square's event id for the delivery.
// - resourceID string: The id of the resource the event refers to.
//
// Returns:
// - string: "{normalized trigger}:{sha256 digest truncated to 24 hex chars}".
func BuildCorrelationID(triggerType, eventID, resourceID string) string {
	trigger := normalizeKeyPart(triggerType)
	if trigger == "" {
		trigger = "event"
	}
	seed := fmt.Sprintf("%s::%s::%s", orNA(triggerType), orNA(resourceID), orNA(eventID))
	digest := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("%s:%s", trigger, hex.EncodeToString(digest[:])[:24])
}

// BuildIdempotencyKey joins the normalized parts with colons. When the joined
// key would exceed Square's 45 character limit it is replaced with a short
// prefix plus a sha256 digest of the full key, so the result stays
// deterministic while honoring the length ceiling.
func BuildIdempotencyKey(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		normalized = append(normalized, orNA(p))
	}
	key := strings.Join(normalized, ":")
	if len(key) <= MaxIdempotencyKeyLength {
		return key
	}

	prefix := normalized[0]
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	digest := sha256.Sum256([]byte(key))
	hexDigest := hex.EncodeToString(digest[:])
	remaining := MaxIdempotencyKeyLength - len(prefix) - 1
	return fmt.Sprintf("%s:%s", prefix, hexDigest[:remaining])
}

// normalizeKeyPart lowercases and strips everything outside [a-z0-9:_-].
func normalizeKeyPart(part string) string {
	part = strings.ToLower(strings.TrimSpace(part))
	var b strings.Builder
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ':', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func orNA(part string) string {
	normalized := normalizeKeyPart(part)
	if normalized == "" {
		return "na"
	}
	return normalized
}
