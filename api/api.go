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
	"fmt"
	"net/http"

	"github.com/typesense/typesense-go/typesense/api"

	"github.com/reelforge/reelforge/config"

	"github.com/reelforge/reelforge/api/middleware"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/reelforge/reelforge"
)

type Api struct {
	reelforge *reelforge.Reelforge
	router    *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/videos", a.QueueVideo)
	router.GET("/videos/:id", a.GetVideo)
	router.GET("/videos", a.GetVideosByStatus)
	router.GET("/videos/:id/posts", a.GetVideoPosts)

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts/:id", a.GetAccount)
	router.GET("/accounts", a.GetAllAccounts)
	router.DELETE("/accounts/:id", a.DeactivateAccount)
	router.GET("/quota", a.GetQuotaStats)

	router.GET("/posts", a.GetTenantPosts)

	router.POST("/search/:collection", a.Search)
	return a.router
}

func NewAPI(r *reelforge.Reelforge) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	router := gin.Default()
	if conf.EnableTelemetry {
		router.Use(otelgin.Middleware("reelforge"))
	}
	router.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		router.Use(middleware.SecretKeyAuthMiddleware())
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	router.POST("/webhook", func(c *gin.Context) {
		var payload map[string]interface{}
		err := c.Bind(&payload)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(payload)
		c.JSON(200, "webhook received")
	})

	return &Api{reelforge: r, router: router}
}

func (a Api) Search(c *gin.Context) {
	collection, passed := c.Params.Get("collection")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required. pass id in the route /:collection"})
		return
	}

	var query api.SearchCollectionParams
	err := c.BindJSON(&query)
	if err != nil {
		return
	}

	resp, err := a.reelforge.Search(collection, &query)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}
