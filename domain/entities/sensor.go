package entities

// SensorKind names one exclusive sensor resource.
type SensorKind string

const (
	SensorMicrophone SensorKind = "microphone"
	SensorCamera     SensorKind = "camera"
	SensorLocation   SensorKind = "location"
)

// SensorStatus is the lifecycle state of one sensor. Denied and Error are
// terminal until the user retries; dependents must treat anything other
// than Active as "Unknown", never as zero readings.
type SensorStatus string

const (
	SensorIdle       SensorStatus = "idle"
	SensorRequesting SensorStatus = "requesting"
	SensorActive     SensorStatus = "active"
	SensorDenied     SensorStatus = "denied"
	SensorError      SensorStatus = "error"
)
