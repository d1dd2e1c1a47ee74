package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/proofmeet/attendance-engine/internal/attendance"
	"github.com/proofmeet/attendance-engine/internal/card"
	"github.com/proofmeet/attendance-engine/internal/directory"
	"github.com/proofmeet/attendance-engine/internal/ledger"
	"github.com/proofmeet/attendance-engine/internal/store"
)

// APIHandler wires the attendance engine's domain components into Gin
// handlers.
type APIHandler struct {
	dbStore       *store.PostgresStore
	wsHub         *Hub
	manager       *attendance.Manager
	reconciler    *attendance.Reconciler
	directory     *directory.Directory
	minter        *card.Minter
	ledger        *ledger.Ledger
	webhookSecret string
}

// SetupRouter builds the full route tree: public health/verification and
// one-use-code host attestation endpoints, the unauthenticated-but-HMAC-
// signed webhook, and the bearer-token-protected participant surface.
func SetupRouter(dbStore *store.PostgresStore, wsHub *Hub, manager *attendance.Manager, reconciler *attendance.Reconciler, dir *directory.Directory, minter *card.Minter, chainLedger *ledger.Ledger) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:       dbStore,
		wsHub:         wsHub,
		manager:       manager,
		reconciler:    reconciler,
		directory:     dir,
		minter:        minter,
		ledger:        chainLedger,
		webhookSecret: os.Getenv("WEBHOOK_SHARED_SECRET"),
	}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/verify/:cardId", handler.handleVerifyCard)
		pub.GET("/verify/:cardId/chain-of-trust", handler.handleChainOfTrust)
		pub.GET("/audit/recent", handler.handleRecentAudit)
		pub.GET("/verification/host-signature/:recordId", handler.handleHostSignatureChallenge)
		pub.POST("/verification/host-signature", handler.handleHostSignature)
	}

	// ── Video provider webhook (HMAC-signed, not bearer-authed) ─
	webhook := r.Group("/api/v1")
	{
		webhook.POST("/webhooks/video", handler.handleVideoWebhook)
	}

	// ── Protected participant surface ───────────────────────────
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(60, 10).Middleware())
	{
		auth.POST("/join-meeting", handler.handleJoinMeeting)
		auth.POST("/leave-meeting", handler.handleLeaveMeeting)
		auth.POST("/activity-heartbeat", handler.handleActivityHeartbeat)
		auth.POST("/sign-court-card/:cardId", handler.handleSignCourtCard)
	}

	return r
}

// handleHealth returns engine status for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"engine":      "ProofMeet Attendance Engine",
		"dbConnected": h.dbStore != nil,
	})
}
