// Package weather adapts the api.weather.gov forecast API to the weather
// provider port.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/internal/cache"
)

const (
	defaultBaseURL = "https://api.weather.gov"
	userAgent      = "SpotMusic (server)"
	cacheTTL       = 10 * time.Minute
)

// NWS resolves coordinates to a gridded forecast via the two-step
// points-then-forecast flow. Results are cached per rounded coordinate
// pair so a drifting GPS fix does not hammer the upstream.
type NWS struct {
	httpClient *http.Client
	logger     *zap.Logger
	baseURL    string
	cache      *cache.Expiring[*entities.WeatherForecast]
}

// NewNWS creates the provider. No credentials are required; the upstream
// only asks for an identifying User-Agent.
func NewNWS(logger *zap.Logger) *NWS {
	return &NWS{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		baseURL:    defaultBaseURL,
		cache:      cache.NewExpiring[*entities.WeatherForecast](cacheTTL),
	}
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []entities.ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// Forecast returns the forecast for the rounded coordinates, from cache
// when a fresh entry exists.
func (n *NWS) Forecast(ctx context.Context, latitude, longitude float64) (*entities.WeatherForecast, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("invalid coordinates %f,%f", latitude, longitude)
	}

	lat := math.Round(latitude*1000) / 1000
	lon := math.Round(longitude*1000) / 1000
	key := cache.StableKey(map[string]float64{"lat": lat, "lon": lon})
	if cached, ok := n.cache.Get(key); ok {
		return cached, nil
	}

	var points pointsResponse
	pointsURL := fmt.Sprintf("%s/points/%.3f,%.3f", n.baseURL, lat, lon)
	if err := n.getJSON(ctx, pointsURL, &points); err != nil {
		return nil, fmt.Errorf("points lookup failed: %w", err)
	}
	if points.Properties.Forecast == "" {
		return nil, fmt.Errorf("points response carried no forecast url")
	}

	var gridded forecastResponse
	if err := n.getJSON(ctx, points.Properties.Forecast, &gridded); err != nil {
		return nil, fmt.Errorf("forecast fetch failed: %w", err)
	}
	periods := gridded.Properties.Periods
	if len(periods) == 0 {
		return nil, fmt.Errorf("forecast carried no periods")
	}

	forecast := buildForecast(periods)
	n.cache.Set(key, forecast)
	n.logger.Debug("forecast refreshed",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("summary", forecast.Summary))
	return forecast, nil
}

func (n *NWS) getJSON(ctx context.Context, url string, out interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/geo+json")

	response, err := n.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", response.StatusCode, url)
	}
	return json.NewDecoder(response.Body).Decode(out)
}

// buildForecast summarizes the first period and keeps the full list for
// display.
func buildForecast(periods []entities.ForecastPeriod) *entities.WeatherForecast {
	current := periods[0]

	summary := current.ShortForecast
	if summary == "" {
		summary = current.DetailedForecast
	}
	if summary == "" {
		summary = "Unknown"
	}

	return &entities.WeatherForecast{
		Summary:          summary,
		Temperature:      current.Temperature,
		TemperatureUnit:  current.TemperatureUnit,
		ShortForecast:    current.ShortForecast,
		DetailedForecast: current.DetailedForecast,
		UpdatedAt:        current.StartTime,
		Periods:          periods,
	}
}
