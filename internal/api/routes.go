package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
	"github.com/spotmusic/server/internal/auth"
	"github.com/spotmusic/server/internal/websocket"
	"github.com/spotmusic/server/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, player *usecase.PlayerService, search repositories.VideoSearch, weather repositories.WeatherProvider, model string, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "spotmusic-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Session onboarding
	v1.POST("/session", func(c echo.Context) error {
		return createSession(c, logger)
	})

	// Integration status. Keys are reported as booleans only.
	v1.GET("/config", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ConfigResponse{
			Model:         model,
			HasGeminiKey:  os.Getenv("GEMINI_API_KEY") != "",
			HasYouTubeKey: os.Getenv("YOUTUBE_API_KEY") != "",
		})
	})

	// Queue and transport
	v1.GET("/queue", func(c echo.Context) error {
		return c.JSON(http.StatusOK, player.QueueState())
	})
	v1.POST("/queue/select", func(c echo.Context) error {
		return selectTrack(c, player, logger)
	})
	v1.POST("/queue/next", func(c echo.Context) error {
		player.Next()
		return c.JSON(http.StatusOK, player.QueueState())
	})
	v1.POST("/queue/previous", func(c echo.Context) error {
		player.Previous()
		return c.JSON(http.StatusOK, player.QueueState())
	})
	v1.DELETE("/queue/:index", func(c echo.Context) error {
		return removeTrack(c, player)
	})
	v1.DELETE("/queue", func(c echo.Context) error {
		player.ClearQueue()
		return c.JSON(http.StatusOK, player.QueueState())
	})
	v1.POST("/transport", func(c echo.Context) error {
		return setTransport(c, player, logger)
	})

	// Recommendation cycle
	v1.POST("/recommendation", func(c echo.Context) error {
		return requestRecommendation(c, player, logger)
	})

	// Ambient state
	v1.GET("/snapshot", func(c echo.Context) error {
		return c.JSON(http.StatusOK, player.Snapshot())
	})
	v1.GET("/loudness", func(c echo.Context) error {
		return c.JSON(http.StatusOK, player.LoudnessHistory())
	})
	v1.GET("/sensors", func(c echo.Context) error {
		return c.JSON(http.StatusOK, player.SensorStatuses())
	})
	v1.GET("/weather", func(c echo.Context) error {
		return getWeather(c, weather, logger)
	})
	v1.GET("/search", func(c echo.Context) error {
		return searchVideos(c, search, logger)
	})

	// Client settings
	v1.GET("/settings", func(c echo.Context) error {
		return getSettings(c, player, logger)
	})
	v1.PUT("/settings", func(c echo.Context) error {
		return saveSettings(c, player, logger)
	})

	// Taste profile
	v1.GET("/profile", func(c echo.Context) error {
		profile := player.Profile()
		if profile == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{})
		}
		return c.JSON(http.StatusOK, profile)
	})
	v1.PUT("/profile", func(c echo.Context) error {
		return saveProfile(c, player, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

func createSession(c echo.Context, logger *zap.Logger) error {
	clientID := uuid.NewString()
	token, expiresAt, err := auth.GenerateClientToken(clientID)
	if err != nil {
		logger.Error("Failed to generate session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}
	return c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ClientID:  clientID,
	})
}

func selectTrack(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("Failed to bind select request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	player.Select(req.Index)
	return c.JSON(http.StatusOK, player.QueueState())
}

func removeTrack(c echo.Context, player *usecase.PlayerService) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_index",
			Message: "Queue index must be an integer",
		})
	}
	player.Remove(index)
	return c.JSON(http.StatusOK, player.QueueState())
}

func setTransport(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	var req TransportRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("Failed to bind transport request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	player.SetTransport(req.Playing)
	return c.JSON(http.StatusOK, player.QueueState())
}

func requestRecommendation(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	reason := req.Reason
	if reason == "" {
		reason = "explicit"
	}

	recommendation, err := player.RequestRecommendation(c.Request().Context(), reason)
	if err != nil {
		if err == usecase.ErrRecommendationInFlight {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "cycle_in_flight",
				Message: "A recommendation cycle is already running",
			})
		}
		logger.Warn("Recommendation cycle failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   string(entities.KindOf(err)),
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, recommendation)
}

func getWeather(c echo.Context, weather repositories.WeatherProvider, logger *zap.Logger) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_coordinates",
			Message: "lat and lon query params are required",
		})
	}

	forecast, err := weather.Forecast(c.Request().Context(), lat, lon)
	if err != nil {
		logger.Warn("Weather lookup failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "weather_lookup_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, forecast)
}

func searchVideos(c echo.Context, search repositories.VideoSearch, logger *zap.Logger) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_query",
			Message: "q query param is required",
		})
	}
	maxResults := 1
	if raw := c.QueryParam("maxResults"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "maxResults must be an integer",
			})
		}
		maxResults = parsed
	}

	videos, err := search.Search(c.Request().Context(), query, maxResults)
	if err != nil {
		logger.Warn("Video search failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "search_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, videos)
}

func getSettings(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	settings, keys, err := player.Settings(c.Request().Context())
	if err != nil {
		logger.Error("Failed to load settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "settings_load_failed",
			Message: "Failed to load settings",
		})
	}
	response := SettingsResponse{
		Model:              settings.Model,
		OnboardingComplete: settings.OnboardingComplete,
	}
	if keys != nil {
		response.GeminiAPIKey = keys.GeminiAPIKey
		response.YouTubeAPIKey = keys.YouTubeAPIKey
	}
	return c.JSON(http.StatusOK, response)
}

func saveSettings(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid settings format",
		})
	}

	settings := entities.Settings{
		Model:              req.Model,
		OnboardingComplete: req.OnboardingComplete,
	}
	var keys *entities.APIKeys
	if req.RememberKeys {
		keys = &entities.APIKeys{
			GeminiAPIKey:  req.GeminiAPIKey,
			YouTubeAPIKey: req.YouTubeAPIKey,
		}
	}
	if err := player.SaveSettings(c.Request().Context(), settings, keys, req.RememberKeys); err != nil {
		logger.Error("Failed to save settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "settings_save_failed",
			Message: "Failed to persist settings",
		})
	}
	return getSettings(c, player, logger)
}

func saveProfile(c echo.Context, player *usecase.PlayerService, logger *zap.Logger) error {
	var profile entities.UserProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid profile format",
		})
	}
	if err := player.SaveProfile(c.Request().Context(), &profile); err != nil {
		logger.Error("Failed to save profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "profile_save_failed",
			Message: "Failed to persist profile",
		})
	}
	return c.JSON(http.StatusOK, profile)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	// Browsers cannot set headers on WebSocket dials, so the token also
	// rides in a query parameter.
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Session token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
	}

	if claims.Role != "client" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only listener session tokens may open WebSocket connections",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("client_id", claims.ClientID))
	return websocket.HandleWebSocket(hub, c, logger)
}
