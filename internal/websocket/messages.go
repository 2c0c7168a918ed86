package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/internal/vision"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types. Clients send sensor and surface telemetry;
// the server sends surface commands and state updates. Microphone audio
// arrives as binary frames, not JSON.
const (
	MessageTypeSensorStart  MessageType = "sensor_start"
	MessageTypeSensorStop   MessageType = "sensor_stop"
	MessageTypeSensorError  MessageType = "sensor_error"
	MessageTypeVideoFrame   MessageType = "video_frame"
	MessageTypeLocation     MessageType = "location"
	MessageTypeSurfaceState MessageType = "surface_state"
	MessageTypeSurfaceError MessageType = "surface_error"
	MessageTypeProgress     MessageType = "progress"
	MessageTypePing         MessageType = "ping"
	MessageTypePong         MessageType = "pong"
	MessageTypeError        MessageType = "error"
	MessageTypeCommand      MessageType = "surface_command"
	MessageTypeUpdate       MessageType = "update"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type" validate:"required"`
	Timestamp string      `json:"timestamp"`
}

// SensorMessage starts or stops a sensor stream.
type SensorMessage struct {
	BaseMessage
	Sensor string `json:"sensor" validate:"required,oneof=microphone camera location"`
}

// SensorErrorMessage reports a denial or capture fault from the client.
type SensorErrorMessage struct {
	BaseMessage
	Sensor  string `json:"sensor" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=denied error"`
	Message string `json:"message,omitempty"`
}

// VideoFrameMessage carries one downsampled camera frame. Pixels are
// base64-encoded packed RGB triplets, at most 24x24.
type VideoFrameMessage struct {
	BaseMessage
	Width  int    `json:"width" validate:"required,min=1,max=24"`
	Height int    `json:"height" validate:"required,min=1,max=24"`
	Pixels string `json:"pixels" validate:"required"` // base64 encoded
}

// Frame decodes the message into a vision frame.
func (m *VideoFrameMessage) Frame() (vision.Frame, error) {
	pixels, err := base64.StdEncoding.DecodeString(m.Pixels)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("invalid pixel encoding: %w", err)
	}
	return vision.Frame{Width: m.Width, Height: m.Height, Pixels: pixels}, nil
}

// LocationMessage carries one geolocation fix.
type LocationMessage struct {
	BaseMessage
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracyMeters,omitempty"`
}

// SurfaceStateMessage reports a playback surface lifecycle transition.
type SurfaceStateMessage struct {
	BaseMessage
	State   string `json:"state" validate:"required"`
	VideoID string `json:"videoId,omitempty"`
}

// SurfaceErrorMessage reports a surface readiness or playback failure.
type SurfaceErrorMessage struct {
	BaseMessage
	Message string `json:"message" validate:"required"`
}

// ProgressMessage is a periodic time/duration reading from the surface.
type ProgressMessage struct {
	BaseMessage
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CommandMessage instructs the playback surface.
type CommandMessage struct {
	BaseMessage
	Action  string `json:"action" validate:"required,oneof=cue load play pause"`
	VideoID string `json:"videoId,omitempty"`
}

// UpdateMessage pushes a server-side state change to clients.
type UpdateMessage struct {
	BaseMessage
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSensorStart, MessageTypeSensorStop:
		var msg SensorMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid sensor message: %w", err)
		}
		if err := v.validateSensor(msg.Sensor); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeSensorError:
		var msg SensorErrorMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid sensor error message: %w", err)
		}
		if err := v.validateSensor(msg.Sensor); err != nil {
			return nil, err
		}
		if msg.Status != string(entities.SensorDenied) && msg.Status != string(entities.SensorError) {
			return nil, fmt.Errorf("status must be one of: denied, error")
		}
		return &msg, nil

	case MessageTypeVideoFrame:
		var msg VideoFrameMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid video frame message: %w", err)
		}
		if msg.Width < 1 || msg.Width > vision.MaxFrameEdge ||
			msg.Height < 1 || msg.Height > vision.MaxFrameEdge {
			return nil, fmt.Errorf("frame dimensions must be between 1 and %d", vision.MaxFrameEdge)
		}
		if msg.Pixels == "" {
			return nil, fmt.Errorf("pixels is required")
		}
		return &msg, nil

	case MessageTypeLocation:
		var msg LocationMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid location message: %w", err)
		}
		if msg.Latitude < -90 || msg.Latitude > 90 || msg.Longitude < -180 || msg.Longitude > 180 {
			return nil, fmt.Errorf("coordinates out of range")
		}
		return &msg, nil

	case MessageTypeSurfaceState:
		var msg SurfaceStateMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid surface state message: %w", err)
		}
		if msg.State == "" {
			return nil, fmt.Errorf("state is required")
		}
		return &msg, nil

	case MessageTypeSurfaceError:
		var msg SurfaceErrorMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid surface error message: %w", err)
		}
		if msg.Message == "" {
			return nil, fmt.Errorf("message is required")
		}
		return &msg, nil

	case MessageTypeProgress:
		var msg ProgressMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid progress message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateSensor(sensor string) error {
	switch entities.SensorKind(sensor) {
	case entities.SensorMicrophone, entities.SensorCamera, entities.SensorLocation:
		return nil
	}
	return fmt.Errorf("sensor must be one of: microphone, camera, location")
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Data: data,
	}
}

// CreateCommandMessage creates a playback surface command.
func CreateCommandMessage(action, videoID string) *CommandMessage {
	return &CommandMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeCommand,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Action:  action,
		VideoID: videoID,
	}
}

// CreateUpdateMessage creates a state update push.
func CreateUpdateMessage(kind string, payload interface{}) *UpdateMessage {
	return &UpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeUpdate,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Kind:    kind,
		Payload: payload,
	}
}
