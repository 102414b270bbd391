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
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/reelforge/reelforge/config"
)

func secureRouter(t *testing.T, secretKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockConfig := &config.Configuration{
		Redis:  config.RedisConfig{Dns: "localhost:6379"},
		Server: config.ServerConfig{Secure: true, SecretKey: secretKey},
	}
	config.MockConfig(mockConfig)

	r := gin.New()
	r.Use(SecretKeyAuthMiddleware())
	r.GET("/videos/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	router := secureRouter(t, "rf_secret")

	tests := []struct {
		name         string
		key          string
		expectedCode int
	}{
		{name: "valid key", key: "rf_secret", expectedCode: http.StatusOK},
		{name: "missing key", key: "", expectedCode: http.StatusUnauthorized},
		{name: "wrong key", key: "rf_wrong", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/videos/job_1", nil)
			if tt.key != "" {
				req.Header.Set(KeyHeader, tt.key)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestSecretKeyAuthMiddlewareUnconfigured(t *testing.T) {
	router := secureRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/videos/job_1", nil)
	req.Header.Set(KeyHeader, "anything")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
