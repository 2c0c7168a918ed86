package signals

import (
	"testing"
	"time"

	"github.com/spotmusic/server/domain/entities"
)

func TestBuildWithAllSensorsInactive(t *testing.T) {
	snapshot := Build(Sources{Now: time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC)})

	if snapshot.Context.Time.Period != "Night" {
		t.Errorf("Expected Night, got %s", snapshot.Context.Time.Period)
	}
	if snapshot.Context.Location.Display != "Unknown" {
		t.Errorf("Expected Unknown location, got %s", snapshot.Context.Location.Display)
	}
	if snapshot.Context.Location.Coordinates != nil {
		t.Error("Inactive location should contribute nil coordinates")
	}
	if snapshot.Context.Weather.Summary != "Unknown" {
		t.Errorf("Expected Unknown weather, got %s", snapshot.Context.Weather.Summary)
	}
	if snapshot.Environment.Ambience.NoiseLevel != "Unknown" {
		t.Errorf("Expected Unknown noise, got %s", snapshot.Environment.Ambience.NoiseLevel)
	}
	if snapshot.Environment.Ambience.TempoBPM != nil {
		t.Error("Inactive microphone should contribute nil tempo, not zero")
	}
	if snapshot.Environment.Visuals.SceneMood != "Unknown" {
		t.Errorf("Expected Unknown mood, got %s", snapshot.Environment.Visuals.SceneMood)
	}
}

func TestBuildIgnoresReadingsFromInactiveSensors(t *testing.T) {
	// A stale reading must not leak through once the sensor stops.
	bpm := 128
	snapshot := Build(Sources{
		Now:              time.Now(),
		MicrophoneActive: false,
		Ambience: &entities.AmbienceReading{
			NoiseLevel: entities.NoiseLoud,
			TempoBPM:   &bpm,
		},
	})

	if snapshot.Environment.Ambience.NoiseLevel != "Unknown" {
		t.Errorf("Expected Unknown, got %s", snapshot.Environment.Ambience.NoiseLevel)
	}
	if snapshot.Environment.Ambience.TempoBPM != nil {
		t.Error("Stale tempo should not appear in the snapshot")
	}
}

func TestBuildWithActiveSensors(t *testing.T) {
	bpm := 96
	accuracy := 12.4
	temp := 72.0
	snapshot := Build(Sources{
		Now:              time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC),
		MicrophoneActive: true,
		Ambience: &entities.AmbienceReading{
			NoiseLevel: entities.NoiseModerate,
			Descriptor: entities.NoiseModerate.Descriptor(),
			TempoBPM:   &bpm,
		},
		CameraActive: true,
		Visuals: &entities.VisualDescriptors{
			Lighting:         entities.LightSoft,
			ColorTone:        entities.ToneMuted,
			ColorTemperature: entities.TemperatureWarm,
			Mood:             "Calm",
		},
		LocationActive: true,
		Coordinates: &entities.Coordinates{
			Latitude:       40.7128,
			Longitude:      -74.006,
			AccuracyMeters: &accuracy,
		},
		Forecast: &entities.WeatherForecast{
			Summary:         "Sunny",
			Temperature:     &temp,
			TemperatureUnit: "F",
		},
		PastTracks: []entities.PastTrack{{Name: "Tatsuro Yamashita - Sparkle"}},
	})

	if snapshot.Context.Time.Period != "Morning" {
		t.Errorf("Expected Morning, got %s", snapshot.Context.Time.Period)
	}
	if snapshot.Context.Location.Display != "40.713, -74.006 ±12m" {
		t.Errorf("Unexpected location display: %s", snapshot.Context.Location.Display)
	}
	if snapshot.Environment.Ambience.NoiseLevel != "Moderate" {
		t.Errorf("Expected Moderate, got %s", snapshot.Environment.Ambience.NoiseLevel)
	}
	if snapshot.Environment.Ambience.TempoBPM == nil || *snapshot.Environment.Ambience.TempoBPM != 96 {
		t.Error("Expected tempo 96 in snapshot")
	}
	if snapshot.Environment.Visuals.SceneMood != "Calm" {
		t.Errorf("Expected Calm, got %s", snapshot.Environment.Visuals.SceneMood)
	}
	if snapshot.Context.Weather.Display != "Sunny, 72°F" {
		t.Errorf("Unexpected weather display: %s", snapshot.Context.Weather.Display)
	}
	if len(snapshot.Playlist.PastTracks) != 1 || snapshot.Playlist.PastTracks[0].Name != "Tatsuro Yamashita - Sparkle" {
		t.Error("Past tracks should carry through unchanged")
	}
}

func TestTimeOfDayPeriods(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, "Morning"},
		{11, "Morning"},
		{12, "Afternoon"},
		{16, "Afternoon"},
		{17, "Evening"},
		{20, "Evening"},
		{21, "Night"},
		{4, "Night"},
	}
	for _, tc := range cases {
		at := time.Date(2024, 6, 1, tc.hour, 0, 0, 0, time.UTC)
		if got := entities.TimeOfDayPeriod(at); got != tc.want {
			t.Errorf("hour %d = %s, want %s", tc.hour, got, tc.want)
		}
	}
}
