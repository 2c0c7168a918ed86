package vision

import (
	"errors"
	"fmt"
	"time"

	"github.com/spotmusic/server/domain/entities"
)

// Maximum edge length accepted for a downsampled frame.
const MaxFrameEdge = 24

// Minimum gap between classifications regardless of capture rate.
const defaultClassifyInterval = 600 * time.Millisecond

var errEmptyFrame = errors.New("vision: empty frame")

// Frame is a downsampled video frame as packed RGB triplets.
type Frame struct {
	Width  int
	Height int
	Pixels []uint8
}

// Valid reports whether the frame dimensions and pixel buffer agree.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 &&
		f.Width <= MaxFrameEdge && f.Height <= MaxFrameEdge &&
		len(f.Pixels) == 3*f.Width*f.Height
}

// Sampler rate-limits frame classification to one result per interval.
// Classification itself is deterministic; identical pixels always yield
// the identical descriptor tuple.
type Sampler struct {
	interval time.Duration
	lastAt   time.Time
	last     entities.VisualDescriptors
	hasLast  bool
}

// NewSampler creates a sampler with the default classification throttle.
func NewSampler() *Sampler {
	return &Sampler{interval: defaultClassifyInterval}
}

// Process classifies frame if the throttle interval has elapsed. The
// second return value is false when the frame was skipped or invalid.
func (s *Sampler) Process(frame Frame, now time.Time) (entities.VisualDescriptors, bool) {
	if !s.lastAt.IsZero() && now.Sub(s.lastAt) < s.interval {
		return s.last, false
	}
	descriptors, err := Classify(frame)
	if err != nil {
		return s.last, false
	}
	s.lastAt = now
	s.last = descriptors
	s.hasLast = true
	return descriptors, true
}

// Latest returns the most recent classification, false when none exists.
func (s *Sampler) Latest() (entities.VisualDescriptors, bool) {
	return s.last, s.hasLast
}

// Reset discards the latest classification and the throttle clock.
func (s *Sampler) Reset() {
	s.lastAt = time.Time{}
	s.last = entities.VisualDescriptors{}
	s.hasLast = false
}

// Classify derives the visual descriptor tuple from a single frame. No
// history is consulted.
func Classify(frame Frame) (entities.VisualDescriptors, error) {
	if !frame.Valid() {
		return entities.VisualDescriptors{}, fmt.Errorf("vision: invalid frame %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Pixels))
	}

	pixelCount := frame.Width * frame.Height
	if pixelCount == 0 {
		return entities.VisualDescriptors{}, errEmptyFrame
	}

	var totalR, totalG, totalB, totalSaturation float64
	for i := 0; i < len(frame.Pixels); i += 3 {
		r := float64(frame.Pixels[i])
		g := float64(frame.Pixels[i+1])
		b := float64(frame.Pixels[i+2])
		totalR += r
		totalG += g
		totalB += b

		max := r
		if g > max {
			max = g
		}
		if b > max {
			max = b
		}
		min := r
		if g < min {
			min = g
		}
		if b < min {
			min = b
		}
		if max > 0 {
			totalSaturation += (max - min) / max
		}
	}

	avgR := totalR / float64(pixelCount)
	avgG := totalG / float64(pixelCount)
	avgB := totalB / float64(pixelCount)
	avgSaturation := totalSaturation / float64(pixelCount)
	brightness := (0.2126*avgR + 0.7152*avgG + 0.0722*avgB) / 255

	lighting := classifyLight(brightness)
	tone := classifyTone(avgSaturation)
	temperature := classifyTemperature(avgR, avgB)

	return entities.VisualDescriptors{
		Lighting:         lighting,
		ColorTone:        tone,
		ColorTemperature: temperature,
		Mood:             deriveMood(lighting, tone, temperature),
		AverageColor:     averageColorHex(avgR, avgG, avgB),
		Brightness:       brightness,
	}, nil
}

func classifyLight(brightness float64) entities.LightLevel {
	switch {
	case brightness < 0.25:
		return entities.LightDim
	case brightness < 0.50:
		return entities.LightSoft
	case brightness < 0.78:
		return entities.LightBright
	default:
		return entities.LightRadiant
	}
}

func classifyTone(saturation float64) entities.ColorTone {
	switch {
	case saturation < 0.20:
		return entities.ToneMuted
	case saturation < 0.45:
		return entities.ToneBalanced
	default:
		return entities.ToneVibrant
	}
}

func classifyTemperature(red, blue float64) entities.ColorTemperature {
	switch {
	case red-blue > 18:
		return entities.TemperatureWarm
	case blue-red > 18:
		return entities.TemperatureCool
	default:
		return entities.TemperatureNeutral
	}
}

// deriveMood applies the mood rules in order of specificity. Later,
// broader rules must not override earlier combinations.
func deriveMood(light entities.LightLevel, tone entities.ColorTone, temperature entities.ColorTemperature) string {
	switch {
	case light == entities.LightDim && temperature == entities.TemperatureWarm:
		return "Cozy"
	case light == entities.LightDim && temperature == entities.TemperatureCool:
		return "Moody"
	case light == entities.LightRadiant && temperature == entities.TemperatureWarm:
		return "Uplifting"
	case (light == entities.LightBright || light == entities.LightRadiant) && temperature == entities.TemperatureCool:
		return "Focused"
	case light == entities.LightSoft && tone == entities.ToneMuted:
		return "Calm"
	case tone == entities.ToneVibrant:
		return "Energetic"
	default:
		return "Balanced"
	}
}

func averageColorHex(r, g, b float64) string {
	clamp := func(v float64) int {
		n := int(v + 0.5)
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b))
}
