package repositories

import (
	"context"

	"github.com/spotmusic/server/domain/entities"
)

// WeatherProvider abstracts the forecast lookup. Implementations round
// coordinates to 3 decimals and cache per rounded pair for 10 minutes.
type WeatherProvider interface {
	Forecast(ctx context.Context, latitude, longitude float64) (*entities.WeatherForecast, error)
}
