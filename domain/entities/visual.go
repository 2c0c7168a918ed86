package entities

// LightLevel buckets perceptual brightness.
type LightLevel string

const (
	LightDim     LightLevel = "Dim"
	LightSoft    LightLevel = "Soft"
	LightBright  LightLevel = "Bright"
	LightRadiant LightLevel = "Radiant"
	LightUnknown LightLevel = "Unknown"
)

// ColorTone buckets mean saturation.
type ColorTone string

const (
	ToneMuted    ColorTone = "Muted"
	ToneBalanced ColorTone = "Balanced"
	ToneVibrant  ColorTone = "Vibrant"
	ToneUnknown  ColorTone = "Unknown"
)

// ColorTemperature buckets the red/blue channel bias.
type ColorTemperature string

const (
	TemperatureWarm    ColorTemperature = "Warm"
	TemperatureNeutral ColorTemperature = "Neutral"
	TemperatureCool    ColorTemperature = "Cool"
	TemperatureUnknown ColorTemperature = "Unknown"
)

// VisualDescriptors is the qualitative read of the latest video frame.
// Derived purely from that frame; no history is retained.
type VisualDescriptors struct {
	Lighting         LightLevel       `json:"lighting"`
	ColorTone        ColorTone        `json:"colorTone"`
	ColorTemperature ColorTemperature `json:"colorTemperature"`
	Mood             string           `json:"mood"`
	AverageColor     string           `json:"averageColor"`
	Brightness       float64          `json:"brightness"`
}

// UnknownVisualDescriptors is what downstream consumers see while the
// camera is off or unavailable.
func UnknownVisualDescriptors() VisualDescriptors {
	return VisualDescriptors{
		Lighting:         LightUnknown,
		ColorTone:        ToneUnknown,
		ColorTemperature: TemperatureUnknown,
		Mood:             "Unknown",
		AverageColor:     "#9ca3af",
	}
}
