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
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/chairside/chairside/api/model"
	"github.com/chairside/chairside/internal/apierror"
)

const defaultRunsLimit = 50

func (a Api) GetRuns(c *gin.Context) {
	var query model2.RunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultRunsLimit
	}

	if err := query.ValidateRunsQuery(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.chairside.GetWorkflowRuns(c.Request.Context(), query.Status, query.Limit, query.Offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetRun(c *gin.Context) {
	id, passed := c.Params.Get("correlation_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlation_id is required. pass id in the route /:correlation_id"})
		return
	}

	resp, err := a.chairside.GetWorkflowRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetRunLogs(c *gin.Context) {
	id, passed := c.Params.Get("correlation_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlation_id is required. pass id in the route /:correlation_id"})
		return
	}

	resp, err := a.chairside.GetAppLogs(c.Request.Context(), id, defaultRunsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetCustomer(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.chairside.GetCustomer(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetCustomerByReferralCode(c *gin.Context) {
	code, passed := c.Params.Get("code")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required. pass code in the route /:code"})
		return
	}

	resp, err := a.chairside.GetCustomerByReferralCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetGiftCard(c *gin.Context) {
	id, passed := c.Params.Get("correlation_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlation_id is required. pass id in the route /:correlation_id"})
		return
	}

	card, err := a.chairside.GetGiftCard(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	ledger, err := a.chairside.GetGiftCardLedger(c.Request.Context(), card.GiftCardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gift_card": card, "ledger": ledger})
}

func (a Api) ManualReward(c *gin.Context) {
	var req model2.ManualReward
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateManualReward(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.chairside.ManualReward(c.Request.Context(), req.ReferrerCustomerID, req.ReferredCustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}
