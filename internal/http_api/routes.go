package http_api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/healthz", s.healthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	api.POST("/register", s.register)
	api.POST("/login", s.login)
	api.GET("/creator-tips/:slug", s.creatorTips)
	api.POST("/webhook/:gateway", s.webhook)
	api.GET("/overlay/:overlayKey/ws", s.overlay)

	authed := api.Group("", s.requireSession)
	authed.GET("/me", s.me)
	authed.GET("/transactions", s.transactions)
	authed.POST("/tip", s.tip)
	authed.POST("/creator", s.becomeCreator)
	authed.GET("/creator/overlay-key", s.overlayKey)
	authed.POST("/withdrawals", s.requestWithdrawal)
}
