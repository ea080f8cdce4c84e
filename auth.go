package main

import (
	"errors"
	"net/http"
	"strings"

	"ledger/pkg/apperrors"
	"ledger/pkg/auth"

	"github.com/gin-gonic/gin"
)

func jwtAuthMiddleware(tokens tokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || len(header) < 8 {
			respondError(c, apperrors.ErrUnauthorized.WithMessage("missing or invalid Authorization header"))
			return
		}
		claims, err := tokens.ParseAccess(header[7:])
		if err != nil {
			respondError(c, apperrors.ErrUnauthorized.WithMessage("invalid token"))
			return
		}
		c.Set("username", claims.Username)
		if claims.Role != "" {
			c.Set("role", claims.Role)
		}
		c.Next()
	}
}

// requireRole is a no-op when authentication is disabled.
func requireRole(enabled bool, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		if c.GetString("role") != role {
			respondError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString("username"), "role": c.GetString("role")})
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *server) loginHandler(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	tokens, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *server) refreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	tokens, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *server) revokeHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ParseValidationErrors(err))
		return
	}
	if err := s.auth.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, authError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.ErrUnauthorized.WithMessage(err.Error())
	case errors.Is(err, auth.ErrInvalidRefresh), errors.Is(err, auth.ErrInvalidToken):
		return apperrors.ErrUnauthorized.WithMessage(err.Error())
	}
	return err
}
