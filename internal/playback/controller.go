// Package playback owns the ordered track queue and the transport state
// machine that drives an external playback surface. The controller is a
// pure state-transition function over (state, event) pairs: every event
// yields a list of side-effect commands for the caller to execute, which
// keeps the machine testable without real media devices.
package playback

import (
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

// Config holds the controller's timing constants. The defaults match
// observed surface behavior and are configurable, not hard invariants.
type Config struct {
	// Window after a play command during which a surface pause event is
	// treated as transient noise. Surfaces may emit a spurious pause
	// immediately after a play command.
	PauseDebounce time.Duration
	// Maximum timed play retries after a play command.
	PlayRetryAttempts int
	// Gap between play retries.
	PlayRetryDelay time.Duration
	// Fraction of the last item's duration after which a recommendation
	// is requested.
	RecommendationProgress float64
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		PauseDebounce:          2000 * time.Millisecond,
		PlayRetryAttempts:      3,
		PlayRetryDelay:         350 * time.Millisecond,
		RecommendationProgress: 0.5,
	}
}

// EventType enumerates controller inputs.
type EventType int

const (
	// EventSurfaceState reports a surface lifecycle transition.
	EventSurfaceState EventType = iota
	// EventSurfaceError reports a surface readiness or playback failure.
	EventSurfaceError
	// EventProgress reports periodic time/duration readings.
	EventProgress
	// EventEnqueue appends recommendation results to the queue.
	EventEnqueue
	// EventSelect jumps to a queue index (user action).
	EventSelect
	// EventNext advances to the next index, wrapping around.
	EventNext
	// EventPrevious steps back one index, wrapping around.
	EventPrevious
	// EventRemove deletes a queue item by index.
	EventRemove
	// EventClear empties the queue.
	EventClear
	// EventSetTransport flips the transport intent.
	EventSetTransport
	// EventRetryTimer fires when a scheduled play retry elapses.
	EventRetryTimer
	// EventSetOracleUsable records whether the recommendation oracle is
	// currently usable, which decides loop-back behavior at queue end.
	EventSetOracleUsable
)

// Event is one controller input.
type Event struct {
	Type         EventType
	SurfaceState repositories.SurfaceState
	VideoID      string
	Message      string
	Index        int
	Items        []entities.QueueItem
	Playing      bool
	OracleUsable bool
	Position     float64
	Duration     float64
}

// CommandType enumerates controller outputs.
type CommandType int

const (
	// CommandCue prepares a video on the surface without playing it.
	CommandCue CommandType = iota
	// CommandLoad prepares a video for immediate playback.
	CommandLoad
	// CommandPlay issues a play command to the surface.
	CommandPlay
	// CommandPause issues a pause command to the surface.
	CommandPause
	// CommandScheduleRetry asks the caller to deliver an EventRetryTimer
	// after Delay, replacing any pending retry timer.
	CommandScheduleRetry
	// CommandCancelRetry cancels any pending retry timer.
	CommandCancelRetry
	// CommandRequestRecommendation asks for a new recommendation cycle.
	CommandRequestRecommendation
	// CommandReportError surfaces a fault to the caller. The queue is
	// left unchanged; no item is removed automatically.
	CommandReportError
)

// Command is one side effect the caller must execute.
type Command struct {
	Type    CommandType
	VideoID string
	Delay   time.Duration
	Reason  string
}

// Controller tracks the queue, the current position, and the transport
// intent, and reacts to surface lifecycle events.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	queue          *entities.Queue
	currentVideoID string
	playing        bool

	playIntentAt  time.Time
	retryAttempts int

	position float64
	duration float64

	recommendationFiredFor string
	oracleUsable           bool
	lastError              string
}

// NewController creates a controller with cfg, seeded from any persisted
// queue items.
func NewController(cfg Config, items []entities.QueueItem, logger *zap.Logger) *Controller {
	if cfg.PauseDebounce == 0 {
		cfg.PauseDebounce = DefaultConfig().PauseDebounce
	}
	if cfg.PlayRetryAttempts == 0 {
		cfg.PlayRetryAttempts = DefaultConfig().PlayRetryAttempts
	}
	if cfg.PlayRetryDelay == 0 {
		cfg.PlayRetryDelay = DefaultConfig().PlayRetryDelay
	}
	if cfg.RecommendationProgress == 0 {
		cfg.RecommendationProgress = DefaultConfig().RecommendationProgress
	}
	return &Controller{
		cfg:          cfg,
		logger:       logger,
		queue:        entities.NewQueue(items),
		oracleUsable: true,
	}
}

// HandleEvent applies one event and returns the side effects to execute.
func (c *Controller) HandleEvent(now time.Time, event Event) []Command {
	switch event.Type {
	case EventSurfaceState:
		return c.handleSurfaceState(now, event)
	case EventSurfaceError:
		c.lastError = event.Message
		c.logger.Warn("playback surface fault",
			zap.String("message", event.Message),
			zap.String("currentVideoId", c.currentVideoID))
		return []Command{{Type: CommandReportError, Reason: event.Message}}
	case EventProgress:
		return c.handleProgress(event)
	case EventEnqueue:
		return c.handleEnqueue(event.Items)
	case EventSelect:
		return c.handleSelect(now, event.Index)
	case EventNext:
		return c.handleStep(now, 1)
	case EventPrevious:
		return c.handleStep(now, -1)
	case EventRemove:
		c.handleRemove(event.Index)
		return nil
	case EventClear:
		c.queue.Clear()
		c.currentVideoID = ""
		return nil
	case EventSetTransport:
		return c.handleSetTransport(now, event.Playing)
	case EventRetryTimer:
		return c.handleRetryTimer(now)
	case EventSetOracleUsable:
		c.oracleUsable = event.OracleUsable
		return nil
	default:
		return nil
	}
}

func (c *Controller) handleSurfaceState(now time.Time, event Event) []Command {
	switch event.SurfaceState {
	case repositories.SurfacePlaying:
		c.playing = true
		c.playIntentAt = time.Time{}
		c.retryAttempts = 0
		return []Command{{Type: CommandCancelRetry}}

	case repositories.SurfacePaused:
		if c.playing && !c.playIntentAt.IsZero() && now.Sub(c.playIntentAt) < c.cfg.PauseDebounce {
			// Spurious pause right after a play command.
			return nil
		}
		c.playing = false
		return nil

	case repositories.SurfaceEnded:
		return c.handleEnded(now, event.VideoID)

	case repositories.SurfaceCued, repositories.SurfaceUnstarted:
		if c.playing {
			return c.issuePlay(now)
		}
		return nil

	default:
		return nil
	}
}

// handleEnded advances past the ended item. Advancing moves strictly
// forward by queue index from the ended position, so a listener who
// jumped backward advances from there, not from the original playhead.
func (c *Controller) handleEnded(now time.Time, endedVideoID string) []Command {
	c.playIntentAt = time.Time{}

	endedIndex := c.CurrentIndex()
	if endedVideoID != "" {
		endedIndex = c.queue.IndexOf(endedVideoID)
	}

	length := c.queue.Len()
	if length == 0 {
		c.playing = false
		return nil
	}

	// An ended videoId we no longer hold advances from the head, but only
	// when there is somewhere else to go; a single-item queue would just
	// replay the same item.
	canAdvance := (endedIndex == -1 && length > 1) || (endedIndex >= 0 && endedIndex < length-1)
	if canAdvance {
		next := 0
		if endedIndex >= 0 {
			next = (endedIndex + 1) % length
		}
		c.logger.Debug("advancing after ended item",
			zap.Int("endedIndex", endedIndex),
			zap.Int("nextIndex", next))
		return c.advanceTo(now, next)
	}

	if !c.oracleUsable {
		// Oracle disabled or previously failed: loop back to the head
		// rather than going silent.
		c.logger.Info("looping queue; recommendation oracle unusable")
		return c.advanceTo(now, 0)
	}

	// Last item ended: stop and await a recommendation.
	c.playing = false
	return nil
}

func (c *Controller) handleProgress(event Event) []Command {
	c.position = event.Position
	c.duration = event.Duration

	length := c.queue.Len()
	if length == 0 || !c.oracleUsable {
		return nil
	}
	index := c.CurrentIndex()
	if index < 0 || index != length-1 {
		return nil
	}
	if c.duration <= 0 || c.position/c.duration < c.cfg.RecommendationProgress {
		return nil
	}
	if c.recommendationFiredFor == c.currentVideoID {
		return nil
	}
	c.recommendationFiredFor = c.currentVideoID
	c.logger.Info("last queued item passed progress mark; requesting recommendation",
		zap.String("videoId", c.currentVideoID))
	return []Command{{Type: CommandRequestRecommendation, Reason: "queue running low"}}
}

func (c *Controller) handleEnqueue(items []entities.QueueItem) []Command {
	for _, item := range items {
		if err := c.queue.Append(item); err != nil {
			// Duplicate search results are skipped, not appended.
			c.logger.Debug("skipping queue item", zap.String("videoId", item.VideoID), zap.Error(err))
		}
	}
	if c.currentVideoID == "" && c.queue.Len() > 0 {
		first, _ := c.queue.At(0)
		c.currentVideoID = first.VideoID
		return []Command{{Type: CommandCue, VideoID: first.VideoID}}
	}
	return nil
}

func (c *Controller) handleSelect(now time.Time, index int) []Command {
	item, ok := c.queue.At(index)
	if !ok {
		return nil
	}
	c.playing = true
	return c.loadAndPlay(now, item.VideoID)
}

// handleStep moves the playhead by direction with wraparound. A single
// item queue has nowhere to step to.
func (c *Controller) handleStep(now time.Time, direction int) []Command {
	length := c.queue.Len()
	if length < 2 {
		return nil
	}
	base := c.CurrentIndex()
	var next int
	if direction > 0 {
		if base < 0 {
			next = 0
		} else {
			next = (base + 1) % length
		}
	} else {
		if base <= 0 {
			next = length - 1
		} else {
			next = base - 1
		}
	}
	c.playing = true
	return c.advanceTo(now, next)
}

func (c *Controller) handleRemove(index int) {
	item, ok := c.queue.At(index)
	if !ok {
		return
	}
	c.queue.Remove(index)
	if item.VideoID == c.currentVideoID {
		// The position pointer must always refer to a queued videoId.
		c.currentVideoID = ""
	}
}

func (c *Controller) handleSetTransport(now time.Time, playing bool) []Command {
	if playing {
		c.playing = true
		if c.currentVideoID == "" {
			return nil
		}
		c.retryAttempts = 0
		return c.issuePlay(now)
	}
	c.playing = false
	c.playIntentAt = time.Time{}
	c.retryAttempts = 0
	return []Command{{Type: CommandCancelRetry}, {Type: CommandPause}}
}

func (c *Controller) handleRetryTimer(now time.Time) []Command {
	if !c.playing {
		return nil
	}
	return c.issuePlay(now)
}

// advanceTo points the playhead at index and loads it with the transport
// intent left playing.
func (c *Controller) advanceTo(now time.Time, index int) []Command {
	item, ok := c.queue.At(index)
	if !ok {
		return nil
	}
	c.playing = true
	return c.loadAndPlay(now, item.VideoID)
}

func (c *Controller) loadAndPlay(now time.Time, videoID string) []Command {
	c.currentVideoID = videoID
	c.position = 0
	c.duration = 0
	c.retryAttempts = 0
	commands := []Command{{Type: CommandLoad, VideoID: videoID}}
	return append(commands, c.issuePlay(now)...)
}

// issuePlay emits a play command and, while attempts remain, schedules a
// timed retry. Retries are canceled as soon as a Playing event arrives.
func (c *Controller) issuePlay(now time.Time) []Command {
	c.playIntentAt = now
	commands := []Command{{Type: CommandPlay}}
	if c.retryAttempts < c.cfg.PlayRetryAttempts {
		c.retryAttempts++
		commands = append(commands, Command{Type: CommandScheduleRetry, Delay: c.cfg.PlayRetryDelay})
	}
	return commands
}

// CurrentIndex returns the queue position of the current video, or -1
// when nothing is selected.
func (c *Controller) CurrentIndex() int {
	if c.currentVideoID == "" {
		return -1
	}
	return c.queue.IndexOf(c.currentVideoID)
}

// Transport returns the controller's transport intent.
func (c *Controller) Transport() entities.TransportState {
	return entities.TransportState{Playing: c.playing, CurrentVideoID: c.currentVideoID}
}

// Items returns the queue contents in play order.
func (c *Controller) Items() []entities.QueueItem {
	return c.queue.Items()
}

// PastTracks projects the queue into the oracle's novelty list.
func (c *Controller) PastTracks() []entities.PastTrack {
	return c.queue.PastTracks()
}

// LastError returns the most recent surface fault message.
func (c *Controller) LastError() string {
	return c.lastError
}
