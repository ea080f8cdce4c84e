package main

import (
	"net/http"

	"ledger/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// registerDictionary mounts GET, POST and PUT /:id for a reference table.
func registerDictionary[T any](g *gin.RouterGroup, base string, repo dictRepo[T]) {
	registerList(g, base, repo)
	g.PUT(base+"/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			respondError(c, apperrors.ParseValidationErrors(err))
			return
		}
		if err := repo.Update(c.Request.Context(), id, &item); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	})
}

// registerList mounts GET and POST only.
func registerList[T any](g *gin.RouterGroup, base string, repo dictRepo[T]) {
	g.GET(base, func(c *gin.Context) {
		items, err := repo.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		c.JSON(http.StatusOK, items)
	})
	g.POST(base, func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			respondError(c, apperrors.ParseValidationErrors(err))
			return
		}
		if err := repo.Create(c.Request.Context(), &item); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})
}
