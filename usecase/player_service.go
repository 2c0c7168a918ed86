package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
	"github.com/spotmusic/server/internal/audio"
	"github.com/spotmusic/server/internal/playback"
	"github.com/spotmusic/server/internal/signals"
	"github.com/spotmusic/server/internal/vision"
)

// How much smoothed-loudness history is retained for the ambience meter.
const loudnessHistoryWindow = 30 * time.Second

// LoudnessSample is one point of the rolling ambience meter.
type LoudnessSample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
	Level string    `json:"level"`
}

// Update is a push notification for connected clients. Payload is one of
// the JSON-serializable view types below.
type Update struct {
	Kind    string
	Payload interface{}
}

// QueueView is the queue plus transport state as shown to clients.
type QueueView struct {
	Items     []entities.QueueItem    `json:"items"`
	Transport entities.TransportState `json:"transport"`
	LastError string                  `json:"lastError,omitempty"`
}

// PlayerConfig carries the tunables the player reads at startup.
type PlayerConfig struct {
	// Oracle model identifier.
	Model string
	// Whether both the oracle and search credentials are configured.
	// When false the player never starts a recommendation cycle and the
	// queue loops instead of waiting at the end.
	OracleConfigured bool
}

// PlayerService is the single shared player session: it owns the queue
// controller, the sensor pipelines, and the recommendation triggers, and
// pushes state changes to subscribed clients.
type PlayerService struct {
	cfg         PlayerConfig
	recommender *RecommendationService
	weather     repositories.WeatherProvider
	store       repositories.StateStore
	logger      *zap.Logger
	now         func() time.Time

	mu         sync.Mutex
	controller *playback.Controller
	surface    repositories.PlaybackSurface
	retryTimer *time.Timer

	envelope *audio.EnvelopeTracker
	tempo    *audio.TempoEstimator
	sampler  *vision.Sampler

	sensors  map[entities.SensorKind]entities.SensorStatus
	ambience *entities.AmbienceReading
	visuals  *entities.VisualDescriptors
	coords   *entities.Coordinates
	forecast *entities.WeatherForecast
	loudness []LoudnessSample

	weatherCancel context.CancelFunc
	profile       *entities.UserProfile
	oracleHealthy bool
	notify        func(Update)
}

// NewPlayerService restores persisted state from store and assembles the
// session. The notifier may be nil until a client hub subscribes.
func NewPlayerService(ctx context.Context, cfg PlayerConfig, recommender *RecommendationService, weather repositories.WeatherProvider, store repositories.StateStore, logger *zap.Logger) *PlayerService {
	s := &PlayerService{
		cfg:           cfg,
		recommender:   recommender,
		weather:       weather,
		store:         store,
		logger:        logger,
		now:           time.Now,
		envelope:      audio.NewEnvelopeTracker(),
		tempo:         audio.NewTempoEstimator(audio.DefaultTempoConfig()),
		sampler:       vision.NewSampler(),
		oracleHealthy: true,
		sensors: map[entities.SensorKind]entities.SensorStatus{
			entities.SensorMicrophone: entities.SensorIdle,
			entities.SensorCamera:     entities.SensorIdle,
			entities.SensorLocation:   entities.SensorIdle,
		},
	}

	items := s.loadQueue(ctx)
	s.controller = playback.NewController(playback.DefaultConfig(), items, logger)
	s.profile = s.loadProfile(ctx)

	if !cfg.OracleConfigured {
		s.controller.HandleEvent(s.now(), playback.Event{Type: playback.EventSetOracleUsable, OracleUsable: false})
	}
	return s
}

// Subscribe registers the push callback. The callback must not call back
// into the service.
func (s *PlayerService) Subscribe(notify func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = notify
}

// Start fires the startup seed cycle when the queue restored empty.
func (s *PlayerService) Start(ctx context.Context) {
	s.mu.Lock()
	empty := len(s.controller.Items()) == 0
	s.mu.Unlock()

	if empty && s.cfg.OracleConfigured {
		go func() {
			if _, err := s.RequestRecommendation(ctx, "startup"); err != nil {
				s.logger.Warn("startup seed failed", zap.Error(err))
			}
		}()
	}
}

// Close releases timers and in-flight fetches. The store is owned by the
// caller and closed separately.
func (s *PlayerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	if s.weatherCancel != nil {
		s.weatherCancel()
	}
}

// AttachSurface registers the playback surface and cues the current item
// on it so a reconnecting client resumes where the queue points.
func (s *PlayerService) AttachSurface(surface repositories.PlaybackSurface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surface

	transport := s.controller.Transport()
	if transport.CurrentVideoID == "" {
		return
	}
	if transport.Playing {
		surface.Load(transport.CurrentVideoID)
		surface.Play()
	} else {
		surface.Cue(transport.CurrentVideoID)
	}
}

// DetachSurface drops the surface. Pending commands are discarded.
func (s *PlayerService) DetachSurface() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = nil
}

// SurfaceStateChanged feeds a surface lifecycle transition into the
// controller.
func (s *PlayerService) SurfaceStateChanged(state repositories.SurfaceState, videoID string) {
	s.dispatch(playback.Event{Type: playback.EventSurfaceState, SurfaceState: state, VideoID: videoID})
}

// SurfaceFailed reports a surface fault.
func (s *PlayerService) SurfaceFailed(message string) {
	s.dispatch(playback.Event{Type: playback.EventSurfaceError, Message: message})
}

// ReportProgress feeds a time/duration reading into the controller.
func (s *PlayerService) ReportProgress(position, duration float64) {
	s.dispatch(playback.Event{Type: playback.EventProgress, Position: position, Duration: duration})
}

// Select jumps to a queue index.
func (s *PlayerService) Select(index int) {
	s.dispatch(playback.Event{Type: playback.EventSelect, Index: index})
}

// Next advances one position with wraparound.
func (s *PlayerService) Next() {
	s.dispatch(playback.Event{Type: playback.EventNext})
}

// Previous steps back one position with wraparound.
func (s *PlayerService) Previous() {
	s.dispatch(playback.Event{Type: playback.EventPrevious})
}

// Remove deletes a queue item by index.
func (s *PlayerService) Remove(index int) {
	s.dispatch(playback.Event{Type: playback.EventRemove, Index: index})
}

// ClearQueue empties the queue.
func (s *PlayerService) ClearQueue() {
	s.dispatch(playback.Event{Type: playback.EventClear})
}

// SetTransport flips the play/pause intent.
func (s *PlayerService) SetTransport(playing bool) {
	s.dispatch(playback.Event{Type: playback.EventSetTransport, Playing: playing})
}

// Enqueue appends items, deduplicated by videoId.
func (s *PlayerService) Enqueue(items []entities.QueueItem) {
	s.dispatch(playback.Event{Type: playback.EventEnqueue, Items: items})
}

// QueueState returns the queue and transport as one consistent view.
func (s *PlayerService) QueueState() QueueView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return QueueView{
		Items:     s.controller.Items(),
		Transport: s.controller.Transport(),
		LastError: s.controller.LastError(),
	}
}

// StartSensor marks kind as active. A sensor already being acquired is an
// error; acquisition is exclusive per kind.
func (s *PlayerService) StartSensor(kind entities.SensorKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.sensors[kind] {
	case entities.SensorActive, entities.SensorRequesting:
		return entities.NewDomainError(entities.ErrSensorFault,
			fmt.Sprintf("%s already acquired", kind), nil)
	}
	s.sensors[kind] = entities.SensorActive
	s.logger.Info("sensor started", zap.String("sensor", string(kind)))
	return nil
}

// StopSensor releases kind and clears its derived readings so dependents
// see Unknown, not stale data. Safe to call when already stopped.
func (s *PlayerService) StopSensor(kind entities.SensorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors[kind] = entities.SensorIdle
	s.resetSensorLocked(kind)
	s.logger.Info("sensor stopped", zap.String("sensor", string(kind)))
}

// MarkSensorFailed records a denial or capture fault reported by the
// capture client. The sensor stays failed until restarted.
func (s *PlayerService) MarkSensorFailed(kind entities.SensorKind, status entities.SensorStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors[kind] = status
	s.resetSensorLocked(kind)
	s.logger.Warn("sensor failed",
		zap.String("sensor", string(kind)),
		zap.String("status", string(status)),
		zap.String("message", message))
}

func (s *PlayerService) resetSensorLocked(kind entities.SensorKind) {
	switch kind {
	case entities.SensorMicrophone:
		s.envelope.Reset()
		s.tempo.Reset()
		s.ambience = nil
		s.loudness = nil
	case entities.SensorCamera:
		s.sampler.Reset()
		s.visuals = nil
	case entities.SensorLocation:
		s.coords = nil
		s.forecast = nil
		if s.weatherCancel != nil {
			s.weatherCancel()
			s.weatherCancel = nil
		}
	}
}

// SensorStatuses returns a copy of the sensor lifecycle map.
func (s *PlayerService) SensorStatuses() map[entities.SensorKind]entities.SensorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make(map[entities.SensorKind]entities.SensorStatus, len(s.sensors))
	for kind, status := range s.sensors {
		statuses[kind] = status
	}
	return statuses
}

// ProcessAudioFrame runs one microphone frame through the loudness and
// tempo pipelines. Frames from an inactive microphone are dropped.
func (s *PlayerService) ProcessAudioFrame(samples []float64) {
	now := s.now()

	s.mu.Lock()
	if s.sensors[entities.SensorMicrophone] != entities.SensorActive {
		s.mu.Unlock()
		return
	}

	observation, emit := s.envelope.Process(samples, now)
	s.tempo.Process(observation.RMS, now)

	var update *Update
	if emit {
		reading := &entities.AmbienceReading{
			RMS:         observation.RMS,
			SmoothedRMS: observation.SmoothedRMS,
			NoiseLevel:  observation.NoiseLevel,
			Descriptor:  observation.NoiseLevel.Descriptor(),
			TempoBPM:    s.tempo.BPM(),
		}
		s.ambience = reading
		s.appendLoudnessLocked(now, observation.SmoothedRMS, string(observation.NoiseLevel))
		update = &Update{Kind: "ambience", Payload: *reading}
	}
	notify := s.notify
	s.mu.Unlock()

	if update != nil && notify != nil {
		notify(*update)
	}
}

func (s *PlayerService) appendLoudnessLocked(now time.Time, value float64, level string) {
	s.loudness = append(s.loudness, LoudnessSample{At: now, Value: value, Level: level})
	cutoff := now.Add(-loudnessHistoryWindow)
	trimmed := s.loudness[:0]
	for _, sample := range s.loudness {
		if sample.At.After(cutoff) {
			trimmed = append(trimmed, sample)
		}
	}
	s.loudness = trimmed
}

// LoudnessHistory returns the rolling smoothed-loudness window.
func (s *PlayerService) LoudnessHistory() []LoudnessSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LoudnessSample, len(s.loudness))
	copy(out, s.loudness)
	return out
}

// ProcessVideoFrame classifies one downsampled camera frame. Frames from
// an inactive camera are dropped.
func (s *PlayerService) ProcessVideoFrame(frame vision.Frame) {
	now := s.now()

	s.mu.Lock()
	if s.sensors[entities.SensorCamera] != entities.SensorActive {
		s.mu.Unlock()
		return
	}
	descriptors, ok := s.sampler.Process(frame, now)
	if ok {
		s.visuals = &descriptors
	}
	notify := s.notify
	s.mu.Unlock()

	if ok && notify != nil {
		notify(Update{Kind: "visuals", Payload: descriptors})
	}
}

// UpdateLocation records a location fix and refreshes the forecast. A fix
// arriving while an earlier fetch is still running supersedes it.
func (s *PlayerService) UpdateLocation(coords entities.Coordinates) {
	s.mu.Lock()
	if s.sensors[entities.SensorLocation] != entities.SensorActive {
		s.mu.Unlock()
		return
	}
	s.coords = &coords
	if s.weatherCancel != nil {
		s.weatherCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.weatherCancel = cancel
	s.mu.Unlock()

	go s.fetchWeather(ctx, coords)
}

func (s *PlayerService) fetchWeather(ctx context.Context, coords entities.Coordinates) {
	forecast, err := s.weather.Forecast(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("weather fetch failed", zap.Error(err))
		}
		return
	}
	if ctx.Err() != nil {
		// A newer fix superseded this fetch.
		return
	}

	s.mu.Lock()
	s.forecast = forecast
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(Update{Kind: "weather", Payload: forecast.Signal()})
	}
}

// Snapshot assembles the current signal snapshot for the oracle.
func (s *PlayerService) Snapshot() entities.SignalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return signals.Build(signals.Sources{
		Now:              s.now(),
		MicrophoneActive: s.sensors[entities.SensorMicrophone] == entities.SensorActive,
		Ambience:         s.ambience,
		CameraActive:     s.sensors[entities.SensorCamera] == entities.SensorActive,
		Visuals:          s.visuals,
		LocationActive:   s.sensors[entities.SensorLocation] == entities.SensorActive,
		Coordinates:      s.coords,
		Forecast:         s.forecast,
		PastTracks:       s.controller.PastTracks(),
	})
}

// RequestRecommendation runs one cycle from the current snapshot and
// enqueues the results. A cycle already in flight is reported as such and
// otherwise ignored.
func (s *PlayerService) RequestRecommendation(ctx context.Context, reason string) (Recommendation, error) {
	snapshot := s.Snapshot()

	s.mu.Lock()
	profile := s.profile
	model := s.cfg.Model
	s.mu.Unlock()

	recommendation, err := s.recommender.Recommend(ctx, snapshot, profile, model, reason)
	if err != nil {
		if err == ErrRecommendationInFlight {
			return Recommendation{}, err
		}
		s.setOracleHealth(false)
		s.notifyUpdate(Update{Kind: "error", Payload: err.Error()})
		return Recommendation{}, err
	}

	s.setOracleHealth(true)
	s.Enqueue(recommendation.Items)
	s.notifyUpdate(Update{Kind: "recommendation", Payload: recommendation})
	return recommendation, nil
}

// setOracleHealth tracks oracle failures so the queue-end behavior can
// switch between awaiting a recommendation and looping.
func (s *PlayerService) setOracleHealth(healthy bool) {
	s.mu.Lock()
	changed := s.oracleHealthy != healthy
	s.oracleHealthy = healthy
	s.mu.Unlock()

	if changed {
		usable := healthy && s.cfg.OracleConfigured
		s.dispatch(playback.Event{Type: playback.EventSetOracleUsable, OracleUsable: usable})
	}
}

func (s *PlayerService) notifyUpdate(update Update) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify(update)
	}
}

// Profile returns the stored taste profile, nil when none exists.
func (s *PlayerService) Profile() *entities.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SaveProfile persists the taste profile for future oracle prompts.
func (s *PlayerService) SaveProfile(ctx context.Context, profile *entities.UserProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, repositories.KeyUserProfile, payload); err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

// Settings loads the persisted client settings plus any remembered API
// keys. Missing state comes back as zero values.
func (s *PlayerService) Settings(ctx context.Context) (entities.Settings, *entities.APIKeys, error) {
	var settings entities.Settings
	if payload, err := s.store.Get(ctx, repositories.KeySettings); err != nil {
		return settings, nil, err
	} else if len(payload) > 0 {
		if err := json.Unmarshal(payload, &settings); err != nil {
			s.logger.Warn("Discarding corrupt stored settings", zap.Error(err))
		}
	}

	payload, err := s.store.Get(ctx, repositories.KeyAPIKeys)
	if err != nil || len(payload) == 0 {
		return settings, nil, err
	}
	var keys entities.APIKeys
	if err := json.Unmarshal(payload, &keys); err != nil {
		s.logger.Warn("Discarding corrupt stored API keys", zap.Error(err))
		return settings, nil, nil
	}
	return settings, &keys, nil
}

// SaveSettings persists the client settings. Keys are stored only when
// remember is set; otherwise any previously remembered keys are removed.
func (s *PlayerService) SaveSettings(ctx context.Context, settings entities.Settings, keys *entities.APIKeys, remember bool) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, repositories.KeySettings, payload); err != nil {
		return err
	}

	if remember && keys != nil {
		payload, err := json.Marshal(keys)
		if err != nil {
			return err
		}
		return s.store.Put(ctx, repositories.KeyAPIKeys, payload)
	}
	return s.store.Delete(ctx, repositories.KeyAPIKeys)
}

// dispatch feeds one event to the controller and executes the resulting
// commands. Queue-affecting events are persisted and broadcast.
func (s *PlayerService) dispatch(event playback.Event) {
	now := s.now()

	s.mu.Lock()
	commands := s.controller.HandleEvent(now, event)
	s.executeCommandsLocked(commands)
	view := QueueView{
		Items:     s.controller.Items(),
		Transport: s.controller.Transport(),
		LastError: s.controller.LastError(),
	}
	notify := s.notify
	s.mu.Unlock()

	if mutatesQueue(event.Type) {
		s.persistQueue(view.Items)
	}
	if notify != nil && event.Type != playback.EventProgress {
		notify(Update{Kind: "queue", Payload: view})
	}
}

func mutatesQueue(eventType playback.EventType) bool {
	switch eventType {
	case playback.EventEnqueue, playback.EventRemove, playback.EventClear:
		return true
	}
	return false
}

func (s *PlayerService) executeCommandsLocked(commands []playback.Command) {
	for _, command := range commands {
		switch command.Type {
		case playback.CommandCue:
			if s.surface != nil {
				s.surface.Cue(command.VideoID)
			}
		case playback.CommandLoad:
			if s.surface != nil {
				s.surface.Load(command.VideoID)
			}
		case playback.CommandPlay:
			if s.surface != nil {
				s.surface.Play()
			}
		case playback.CommandPause:
			if s.surface != nil {
				s.surface.Pause()
			}
		case playback.CommandScheduleRetry:
			if s.retryTimer != nil {
				s.retryTimer.Stop()
			}
			s.retryTimer = time.AfterFunc(command.Delay, func() {
				s.dispatch(playback.Event{Type: playback.EventRetryTimer})
			})
		case playback.CommandCancelRetry:
			if s.retryTimer != nil {
				s.retryTimer.Stop()
				s.retryTimer = nil
			}
		case playback.CommandRequestRecommendation:
			reason := command.Reason
			go func() {
				if _, err := s.RequestRecommendation(context.Background(), reason); err != nil && err != ErrRecommendationInFlight {
					s.logger.Warn("recommendation cycle failed", zap.String("reason", reason), zap.Error(err))
				}
			}()
		case playback.CommandReportError:
			if s.notify != nil {
				notify := s.notify
				message := command.Reason
				go notify(Update{Kind: "error", Payload: message})
			}
		}
	}
}

func (s *PlayerService) persistQueue(items []entities.QueueItem) {
	payload, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("queue marshal failed", zap.Error(err))
		return
	}
	if err := s.store.Put(context.Background(), repositories.KeyPlaylistQueue, payload); err != nil {
		s.logger.Warn("queue persist failed", zap.Error(err))
	}
}

func (s *PlayerService) loadQueue(ctx context.Context) []entities.QueueItem {
	payload, err := s.store.Get(ctx, repositories.KeyPlaylistQueue)
	if err != nil || len(payload) == 0 {
		if err != nil {
			s.logger.Warn("queue restore failed", zap.Error(err))
		}
		return nil
	}
	var items []entities.QueueItem
	if err := json.Unmarshal(payload, &items); err != nil {
		s.logger.Warn("persisted queue unreadable; starting empty", zap.Error(err))
		return nil
	}
	return items
}

func (s *PlayerService) loadProfile(ctx context.Context) *entities.UserProfile {
	payload, err := s.store.Get(ctx, repositories.KeyUserProfile)
	if err != nil || len(payload) == 0 {
		return nil
	}
	var profile entities.UserProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		s.logger.Warn("persisted profile unreadable", zap.Error(err))
		return nil
	}
	return &profile
}
