package entities

import "fmt"

// ForecastPeriod is one named window of a weather forecast.
type ForecastPeriod struct {
	Name             string   `json:"name"`
	StartTime        string   `json:"startTime"`
	IsDaytime        *bool    `json:"isDaytime"`
	Temperature      *float64 `json:"temperature"`
	TemperatureUnit  string   `json:"temperatureUnit"`
	ShortForecast    string   `json:"shortForecast"`
	DetailedForecast string   `json:"detailedForecast"`
	WindSpeed        string   `json:"windSpeed"`
	WindDirection    string   `json:"windDirection"`
	Icon             string   `json:"icon"`
}

// WeatherForecast summarizes the current conditions for the snapshot plus
// the full period list for display. Cacheable per rounded coordinate pair.
type WeatherForecast struct {
	Summary          string           `json:"summary"`
	Temperature      *float64         `json:"temperature"`
	TemperatureUnit  string           `json:"temperatureUnit"`
	ShortForecast    string           `json:"shortForecast"`
	DetailedForecast string           `json:"detailedForecast"`
	UpdatedAt        string           `json:"updatedAt"`
	Periods          []ForecastPeriod `json:"periods"`
}

// Signal folds the forecast into the snapshot's weather slice. A nil
// forecast yields the Unknown signal, never zeros.
func (f *WeatherForecast) Signal() WeatherSignal {
	signal := WeatherSignal{Summary: "Unknown", Display: "Unknown"}
	if f == nil {
		return signal
	}
	if f.Summary != "" {
		signal.Summary = f.Summary
		signal.Display = f.Summary
	}
	signal.Temperature = TempReading{Value: f.Temperature, Unit: f.TemperatureUnit}
	if signal.Summary != "Unknown" && f.Temperature != nil && f.TemperatureUnit != "" {
		signal.Display = fmt.Sprintf("%s, %g°%s", signal.Summary, *f.Temperature, f.TemperatureUnit)
	}
	return signal
}
