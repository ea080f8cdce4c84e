package main

import (
	"bytes"
	"net/http"
	"strings"

	"ledger/models"
	"ledger/pkg/apperrors"
	"ledger/pkg/export"

	"github.com/gin-gonic/gin"
)

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": s.cfg.App.Version}) })
	r.GET("/dbcheck", s.dbCheckHandler)

	if s.auth != nil {
		r.POST("/auth/login", s.loginHandler)
		r.POST("/auth/refresh", s.refreshHandler)
		r.POST("/auth/revoke", s.revokeHandler)
	}

	api := r.Group("")
	if s.auth != nil {
		api.Use(jwtAuthMiddleware(s.auth))
		api.GET("/auth/me", meHandler)
	}

	api.GET("/payments", s.listPaymentsHandler)
	api.GET("/payments/balance", s.balanceHandler)
	api.GET("/payments/export.xlsx", s.exportHandler)
	api.POST("/payments", s.createPaymentHandler)
	api.PUT("/payments/:id", s.updatePaymentHandler)
	api.DELETE("/payments/:id", requireRole(s.auth != nil, models.RoleAdministrator), s.deletePaymentHandler)
	api.PATCH("/payments/:id/link", s.linkPaymentHandler)
	api.POST("/payments/:id/link/bitrix", s.enrichPaymentHandler)
	api.GET("/notifications", s.notificationsHandler)
	api.GET("/bitrix/categories/:id", s.categoryHandler)

	registerDictionary(api, "/categories", s.categoryDict)
	registerDictionary(api, "/projects", s.projects)
	registerDictionary(api, "/accounts", s.accounts)
	registerDictionary(api, "/contractors", s.contractors)
	registerList(api, "/transfers", s.transfers)

	setupFrontend(r, s.cfg.App.FrontendDir)
}

func (s *server) dbCheckHandler(c *gin.Context) {
	if err := s.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) listPaymentsHandler(c *gin.Context) {
	f, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := s.payments.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) balanceHandler(c *gin.Context) {
	f, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	totals, err := s.payments.Balance(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (s *server) exportHandler(c *gin.Context) {
	f, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := s.payments.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Payments(&buf, items); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="payments.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *server) createPaymentHandler(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	p, err := req.toPayment()
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.payments.Create(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *server) updatePaymentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	cols, err := req.columns()
	if err != nil {
		respondError(c, err)
		return
	}
	s.applyUpdate(c, id, cols)
}

func (s *server) linkPaymentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req LinkFields
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	cols := map[string]any{}
	req.addColumns(cols)
	s.applyUpdate(c, id, cols)
}

func (s *server) applyUpdate(c *gin.Context, id uint, cols map[string]any) {
	if len(cols) == 0 {
		respondError(c, apperrors.ErrBadRequest.WithMessage("no fields to update"))
		return
	}
	p, err := s.payments.Update(c.Request.Context(), id, cols)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) deletePaymentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := s.payments.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": p})
}

func (s *server) enrichPaymentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !s.crm.Ready() {
		respondError(c, apperrors.ErrCrmDisabled)
		return
	}
	var req bitrixLinkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.ParseValidationErrors(err))
			return
		}
	}
	links, err := req.links()
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := s.enricher.Enrich(c.Request.Context(), id, links)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": p})
}

func (s *server) notificationsHandler(c *gin.Context) {
	items, err := s.payments.Pending(c.Request.Context(), models.Today(s.now()))
	if err != nil {
		respondError(c, err)
		return
	}
	income := []models.Payment{}
	expense := []models.Payment{}
	for _, p := range items {
		if p.OperationType == models.OperationExpense {
			expense = append(expense, p)
		} else {
			income = append(income, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"payments": income, "expenses": expense})
}

// categoryHandler exposes the deal category resolver for diagnostics.
func (s *server) categoryHandler(c *gin.Context) {
	if !s.crm.Ready() {
		respondError(c, apperrors.ErrCrmDisabled)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	name, ok := s.categories.CategoryName(c.Request.Context(), id).Get()
	if !ok {
		respondError(c, apperrors.NewNotFoundError("category"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "name": name})
}
