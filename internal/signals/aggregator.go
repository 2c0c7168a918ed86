// Package signals merges audio, visual, location/weather, and playlist
// history into one immutable snapshot for the recommendation oracle.
package signals

import (
	"fmt"
	"math"
	"time"

	"github.com/spotmusic/server/domain/entities"
)

// Sources carries the latest state of every contributing sensor. A nil
// reading or inactive flag contributes "Unknown" to the snapshot, never a
// zero value.
type Sources struct {
	Now time.Time

	MicrophoneActive bool
	Ambience         *entities.AmbienceReading

	CameraActive bool
	Visuals      *entities.VisualDescriptors

	LocationActive bool
	Coordinates    *entities.Coordinates
	Forecast       *entities.WeatherForecast

	PastTracks []entities.PastTrack
}

// Build creates a fresh snapshot from src. The result is never mutated
// after creation.
func Build(src Sources) entities.SignalSnapshot {
	var snapshot entities.SignalSnapshot

	snapshot.Context.Time = entities.TimeSignal{
		Period:    entities.TimeOfDayPeriod(src.Now),
		LocalTime: src.Now.Format("3:04 PM"),
	}
	snapshot.Context.Location = locationSignal(src)
	snapshot.Context.Weather = src.Forecast.Signal()
	snapshot.Environment.Ambience = ambienceSignal(src)
	snapshot.Environment.Visuals = visualSignal(src)

	tracks := make([]entities.PastTrack, len(src.PastTracks))
	copy(tracks, src.PastTracks)
	snapshot.Playlist.PastTracks = tracks

	return snapshot
}

func locationSignal(src Sources) entities.LocationSignal {
	if !src.LocationActive || src.Coordinates == nil {
		return entities.LocationSignal{Display: "Unknown"}
	}
	coords := *src.Coordinates
	display := fmt.Sprintf("%.3f, %.3f", coords.Latitude, coords.Longitude)
	if coords.AccuracyMeters != nil {
		display += fmt.Sprintf(" ±%dm", int(math.Round(*coords.AccuracyMeters)))
	}
	return entities.LocationSignal{Display: display, Coordinates: &coords}
}

func ambienceSignal(src Sources) entities.AmbienceSignal {
	if !src.MicrophoneActive || src.Ambience == nil {
		return entities.AmbienceSignal{
			NoiseLevel: string(entities.NoiseUnknown),
			Descriptor: entities.NoiseUnknown.Descriptor(),
		}
	}
	return entities.AmbienceSignal{
		NoiseLevel: string(src.Ambience.NoiseLevel),
		TempoBPM:   src.Ambience.TempoBPM,
		Descriptor: src.Ambience.Descriptor,
	}
}

func visualSignal(src Sources) entities.VisualSignal {
	if !src.CameraActive || src.Visuals == nil {
		unknown := entities.UnknownVisualDescriptors()
		return entities.VisualSignal{
			Lighting:         string(unknown.Lighting),
			ColorTone:        string(unknown.ColorTone),
			ColorTemperature: string(unknown.ColorTemperature),
			SceneMood:        unknown.Mood,
		}
	}
	return entities.VisualSignal{
		Lighting:         string(src.Visuals.Lighting),
		ColorTone:        string(src.Visuals.ColorTone),
		ColorTemperature: string(src.Visuals.ColorTemperature),
		SceneMood:        src.Visuals.Mood,
	}
}
