package http_api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/obolus/internal/auth"
	"github.com/core-coin/obolus/internal/models"
)

const claimsKey = "obolus.claims"

// requireSession rejects requests without a valid bearer token.
func (s *HTTPServer) requireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		s.respondError(c, fmt.Errorf("%w: missing bearer token", models.ErrUnauthorized))
		return
	}
	claims, err := s.sessions.Verify(strings.TrimSpace(token))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

func sessionClaims(c *gin.Context) *auth.Claims {
	return c.MustGet(claimsKey).(*auth.Claims)
}
