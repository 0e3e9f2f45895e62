package model

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCorrelationID_Deterministic(t *testing.T) {
	a := BuildCorrelationID("payment.created", "evt_123", "pay_456")
	b := BuildCorrelationID("payment.created", "evt_123", "pay_456")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "paymentcreated:"))

	// The digest section is 24 hex characters.
	digest := strings.SplitN(a, ":", 2)[1]
	assert.Len(t, digest, 24)
}

func TestBuildCorrelationID_NormalizesTrigger(t *testing.T) {
	id := BuildCorrelationID("Payment.Created!", "evt_1", "pay_1")
	prefix := strings.SplitN(id, ":", 2)[0]
	assert.Equal(t, "paymentcreated", prefix)
}

func TestBuildCorrelationID_EmptyParts(t *testing.T) {
	id := BuildCorrelationID("", "", "")
	assert.True(t, strings.HasPrefix(id, "event:"))

	// Missing parts still yield a stable digest.
	assert.Equal(t, id, BuildCorrelationID("", "", ""))
}

func TestBuildCorrelationID_DistinctInputs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := BuildCorrelationID("booking.created", fmt.Sprintf("evt_%d", i), "bk_1")
		assert.False(t, seen[id], "collision for input %d", i)
		seen[id] = true
	}
}

func TestBuildIdempotencyKey_ShortKeyPassesThrough(t *testing.T) {
	key := BuildIdempotencyKey("seed", "create")
	assert.Equal(t, "seed:create", key)
}

func TestBuildIdempotencyKey_LengthCeiling(t *testing.T) {
	long := strings.Repeat("a", 80)
	key := BuildIdempotencyKey(long, "activate-order", "gftc_1234567890")
	assert.Len(t, key, MaxIdempotencyKeyLength)

	// Same input, same output.
	assert.Equal(t, key, BuildIdempotencyKey(long, "activate-order", "gftc_1234567890"))

	// Prefix of the first part survives for operator readability.
	assert.True(t, strings.HasPrefix(key, long[:10]+":"))
}

func TestBuildIdempotencyKey_DistinctLongInputs(t *testing.T) {
	a := BuildIdempotencyKey(strings.Repeat("a", 60), "activate-owner", "gftc_1")
	b := BuildIdempotencyKey(strings.Repeat("a", 60), "activate-owner", "gftc_2")
	assert.NotEqual(t, a, b)
}

func TestBuildIdempotencyKey_EmptyPartFallback(t *testing.T) {
	assert.Equal(t, "na:create", BuildIdempotencyKey("", "create"))
}
