package http_api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/obolus/internal/models"
)

// signatureHeaders maps each supported gateway to the header carrying the
// hex HMAC-SHA256 of the raw body.
var signatureHeaders = map[string]string{
	"razorpay": "X-Razorpay-Signature",
}

// RegisterRequest represents the JSON body for account registration
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName" binding:"max=64"`
	Password    string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Success   bool            `json:"success"`
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expiresAt"`
	Account   *models.Account `json:"account"`
}

// TipRequest represents the JSON body of a tip
type TipRequest struct {
	ReceiverRoutingKey string `json:"receiverRoutingKey" binding:"required"`
	Amount             int64  `json:"amount"`
	Message            string `json:"message"`
}

type TipResponse struct {
	Success bool `json:"success"`
	*models.Settlement
}

type CreatorRequest struct {
	Slug     string `json:"slug" binding:"required"`
	Telegram string `json:"telegram"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type WithdrawalRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination" binding:"required"`
}

// MeResponse is the caller's account with its creator profile, if any
type MeResponse struct {
	Success bool                   `json:"success"`
	Account *models.Account        `json:"account"`
	Creator *models.CreatorProfile `json:"creator,omitempty"`
}

func (s *HTTPServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// register is a handler for the /register endpoint.
func (s *HTTPServer) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}

	account, err := s.obolus.Register(c.Request.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "account": account})
}

// login exchanges a username and password for a session token.
func (s *HTTPServer) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}

	account, err := s.obolus.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.logger.Infow("Failed login", "username", req.Username, "client_ip", c.ClientIP())
		}
		s.respondError(c, err)
		return
	}
	token, expires, err := s.sessions.Issue(account)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires.Unix(),
		Account:   account,
	})
}

func (s *HTTPServer) me(c *gin.Context) {
	claims := sessionClaims(c)
	account, err := s.obolus.GetAccount(c.Request.Context(), claims.AccountID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := MeResponse{Success: true, Account: account}
	if account.Role == models.RoleCreator {
		profile, err := s.obolus.GetCreatorProfile(c.Request.Context(), account.ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		resp.Creator = profile
	}
	c.JSON(http.StatusOK, resp)
}

// tip settles a tip from the session account.
func (s *HTTPServer) tip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}

	claims := sessionClaims(c)
	settlement, err := s.obolus.Settle(c.Request.Context(), claims.AccountID, req.ReceiverRoutingKey, req.Amount, req.Message)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TipResponse{Success: true, Settlement: settlement})
}

// queryLimit parses ?limit=. Zero means the default page size.
func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", models.ErrInvalidInput)
	}
	return limit, nil
}

func (s *HTTPServer) transactions(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	entries, err := s.obolus.Transactions(c.Request.Context(), sessionClaims(c).AccountID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": entries})
}

func (s *HTTPServer) creatorTips(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	tips, err := s.obolus.CreatorTips(c.Request.Context(), c.Param("slug"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tips": tips})
}

// webhook verifies and applies a payment gateway event. The raw body is read
// before anything parses it so the signature covers the exact bytes.
func (s *HTTPServer) webhook(c *gin.Context) {
	gateway := c.Param("gateway")
	header, ok := signatureHeaders[gateway]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "kind": models.KindNotFound, "error": "unknown gateway"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBody))
	if err != nil {
		s.respondBadRequest(c, err)
		return
	}

	outcome, err := s.obolus.ReconcilePayment(c.Request.Context(), body, c.GetHeader(header))
	if err != nil {
		if errors.Is(err, models.ErrInvalidSignature) {
			s.logger.Warnw("Rejected webhook", "gateway", gateway, "client_ip", c.ClientIP(), "security_event", "webhook_signature_invalid")
		}
		s.respondError(c, err)
		return
	}
	if outcome.Reason != "" {
		s.logger.Debugw("Webhook acknowledged without credit", "gateway", gateway, "status", outcome.Status, "reason", outcome.Reason)
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *HTTPServer) becomeCreator(c *gin.Context) {
	var req CreatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}

	claims := sessionClaims(c)
	profile, err := s.obolus.BecomeCreator(c.Request.Context(), claims.AccountID, &models.CreatorRequest{
		Slug:             req.Slug,
		TelegramUsername: req.Telegram,
		Email:            req.Email,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"creator":    profile,
		"overlayKey": profile.OverlayKey,
	})
}

// overlayKey returns the caller's overlay key. Only the owner may read it.
func (s *HTTPServer) overlayKey(c *gin.Context) {
	profile, err := s.obolus.GetCreatorProfile(c.Request.Context(), sessionClaims(c).AccountID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"overlayKey": profile.OverlayKey,
		"overlayUrl": "/api/v1/overlay/" + profile.OverlayKey + "/ws",
	})
}

func (s *HTTPServer) requestWithdrawal(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}

	withdrawal, err := s.obolus.RequestWithdrawal(c.Request.Context(), sessionClaims(c).AccountID, req.Amount, req.Destination)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "withdrawal": withdrawal})
}

// overlay upgrades to a websocket subscribed to the tips of the creator owning
// the overlay key. The connection can only receive.
func (s *HTTPServer) overlay(c *gin.Context) {
	profile, err := s.obolus.ResolveOverlayKey(c.Request.Context(), c.Param("overlayKey"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.hub.ServeWS(c.Writer, c.Request, profile.Slug); err != nil {
		s.logger.Warnw("Overlay upgrade failed", "slug", profile.Slug, "error", err)
		return
	}
	s.logger.Infow("Overlay connected", "slug", profile.Slug, "subscribers", s.hub.SubscriberCount(profile.Slug))
}
