/*
Copyright 2025 ReelForge Authors.

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

	model2 "github.com/reelforge/reelforge/api/model"

	"github.com/gin-gonic/gin"
)

func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model2.CreateSocialAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newAccount.ValidateCreateSocialAccount()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.reelforge.CreateAccount(c.Request.Context(), newAccount.ToAccount())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")

	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.reelforge.GetAccount(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllAccounts(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	platform := c.Query("platform")
	if tenantID == "" || platform == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and platform query parameters are required"})
		return
	}

	resp, err := a.reelforge.ListAccounts(c.Request.Context(), tenantID, platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) DeactivateAccount(c *gin.Context) {
	id, passed := c.Params.Get("id")

	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.reelforge.DeactivateAccount(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (a Api) GetQuotaStats(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	platform := c.Query("platform")
	if tenantID == "" || platform == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and platform query parameters are required"})
		return
	}

	resp, err := a.reelforge.GetTotalAvailableQuota(c.Request.Context(), tenantID, platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
