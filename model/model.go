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
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// referralCodeAlphabet deliberately omits ambiguous characters (0/O, 1/I/L)
// so codes survive being read aloud over a salon front desk.
const referralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// Used for internal row identifiers such as run ids and ledger entry ids.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// GenerateReferralCode produces a short personal referral code from the
// customer's first name plus random characters, e.g. "AMY-X7Q4K".
// Uniqueness is enforced by the database, not here; callers retry on conflict.
func GenerateReferralCode(firstName string) string {
	prefix := strings.ToUpper(strings.TrimSpace(firstName))
	cleaned := make([]rune, 0, 3)
	for _, r := range prefix {
		if r >= 'A' && r <= 'Z' {
			cleaned = append(cleaned, r)
		}
		if len(cleaned) == 3 {
			break
		}
	}
	if len(cleaned) == 0 {
		cleaned = []rune("REF")
	}

	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to a UUID fragment rather than a fixed value.
			return fmt.Sprintf("%s-%s", string(cleaned), strings.ToUpper(uuid.New().String()[0:5]))
		}
		suffix[i] = referralCodeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s", string(cleaned), string(suffix))
}
