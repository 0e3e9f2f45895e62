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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/chairside/chairside/model"
)

// ManualReward is the request body of the manual reward admin endpoint.
type ManualReward struct {
	ReferrerCustomerID string `json:"referrer_customer_id"`
	ReferredCustomerID string `json:"referred_customer_id"`
}

func (r *ManualReward) ValidateManualReward() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ReferrerCustomerID, validation.Required),
		validation.Field(&r.ReferredCustomerID, validation.Required, validation.By(func(value interface{}) error {
			if r.ReferredCustomerID == r.ReferrerCustomerID {
				return errors.New("referrer and referred customer must differ")
			}
			return nil
		})),
	)
}

// RunsQuery carries the query parameters of the runs listing endpoint.
type RunsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

func (q *RunsQuery) ValidateRunsQuery() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Status, validation.Required, validation.In(
			model.RunStatusPending, model.RunStatusQueued, model.RunStatusRunning,
			model.RunStatusCompleted, model.RunStatusError,
		)),
		validation.Field(&q.Limit, validation.Min(0), validation.Max(500)),
		validation.Field(&q.Offset, validation.Min(0)),
	)
}
