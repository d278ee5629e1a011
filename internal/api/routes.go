package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain/repositories"
	"github.com/vofas/vofas-backend/internal/auth"
	"github.com/vofas/vofas-backend/internal/pipeline"
	"github.com/vofas/vofas-backend/internal/stream"
	"github.com/vofas/vofas-backend/internal/websocket"
)

// defaultTokenTTL bounds how long a minted validation token stays usable
// when the kiosk does not ask for a specific TTL.
const defaultTokenTTL = 5 * time.Minute

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	pl *pipeline.Pipeline,
	feedbackRepo repositories.FeedbackRepository,
	tokenRepo repositories.TokenRepository,
	kioskRepo repositories.KioskRepository,
	broker *stream.Broker,
	hub *websocket.Hub,
	logger *zap.Logger,
) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "vofas-backend",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Feedback APIs
	v1.POST("/feedback", func(c echo.Context) error {
		return ingestFeedback(c, pl, logger)
	})
	v1.GET("/feedback", func(c echo.Context) error {
		return listFeedback(c, feedbackRepo, logger)
	})
	v1.GET("/feedback/stream", func(c echo.Context) error {
		return streamFeedback(c, broker, logger)
	})
	v1.GET("/feedback/:id", func(c echo.Context) error {
		return getFeedback(c, feedbackRepo, logger)
	})
	v1.POST("/feedback/:id/process", func(c echo.Context) error {
		return processFeedback(c, pl, logger)
	})

	// Kiosk APIs
	v1.POST("/kiosk/auth", func(c echo.Context) error {
		return kioskAuth(c, kioskRepo, logger)
	})
	v1.POST("/kiosk/tokens", func(c echo.Context) error {
		return mintToken(c, tokenRepo, kioskRepo, logger)
	})

	// WebSocket endpoint for live feedback consumers
	e.GET("/ws/feedback", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{
		Path:      c.Request().URL.Path,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func kioskAuth(c echo.Context, kioskRepo repositories.KioskRepository, logger *zap.Logger) error {
	var req KioskAuthRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind kiosk auth request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, "Invalid request format")
	}

	if req.KioskID == "" || req.SecretKey == "" {
		return errorJSON(c, http.StatusBadRequest, "Kiosk id and secret key are required")
	}

	kiosk, err := kioskRepo.Authenticate(c.Request().Context(), req.KioskID, req.SecretKey)
	if err != nil {
		logger.Warn("Kiosk authentication failed",
			zap.String("kioskID", req.KioskID),
			zap.Error(err))
		return errorJSON(c, http.StatusUnauthorized, "Invalid kiosk credentials")
	}
	if !kiosk.Active() {
		return errorJSON(c, http.StatusForbidden, "Kiosk is not active")
	}

	token, err := auth.GenerateKioskToken(kiosk.ID)
	if err != nil {
		logger.Error("Failed to generate kiosk token",
			zap.String("kioskID", kiosk.ID),
			zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to generate authentication token")
	}

	logger.Info("Kiosk authenticated", zap.String("kioskID", kiosk.ID))

	return c.JSON(http.StatusOK, KioskAuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		KioskID:   kiosk.ID,
	})
}

// kioskFromBearer resolves and validates the kiosk JWT on a request.
func kioskFromBearer(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil || claims.Role != "kiosk" || claims.KioskID == "" {
		return "", false
	}
	return claims.KioskID, true
}

func mintToken(c echo.Context, tokenRepo repositories.TokenRepository, kioskRepo repositories.KioskRepository, logger *zap.Logger) error {
	kioskID, ok := kioskFromBearer(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "A valid kiosk token is required")
	}

	kiosk, err := kioskRepo.GetByID(c.Request().Context(), kioskID)
	if err != nil {
		logger.Warn("Token mint for unknown kiosk", zap.String("kioskID", kioskID))
		return errorJSON(c, http.StatusUnauthorized, "Unknown kiosk")
	}
	if !kiosk.Active() {
		return errorJSON(c, http.StatusForbidden, "Kiosk is not active")
	}

	var req MintTokenRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request format")
	}

	ttl := defaultTokenTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, err := tokenRepo.Mint(c.Request().Context(), kiosk.ID, ttl)
	if err != nil {
		logger.Error("Failed to mint validation token",
			zap.String("kioskID", kiosk.ID),
			zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to mint validation token")
	}

	logger.Info("Validation token minted",
		zap.String("kioskID", kiosk.ID),
		zap.Time("expiresAt", token.ExpiresAt))

	return c.JSON(http.StatusCreated, MintTokenResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}
