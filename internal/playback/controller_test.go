package playback

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
)

func track(id string) entities.QueueItem {
	return entities.QueueItem{VideoID: id, Title: "Track " + id, Source: "llm"}
}

func newTestController(items ...entities.QueueItem) *Controller {
	return NewController(DefaultConfig(), items, zap.NewNop())
}

func commandTypes(commands []Command) []CommandType {
	types := make([]CommandType, len(commands))
	for i, command := range commands {
		types[i] = command.Type
	}
	return types
}

func hasCommand(commands []Command, want CommandType) bool {
	for _, command := range commands {
		if command.Type == want {
			return true
		}
	}
	return false
}

func TestEnqueueCuesFirstItemWithoutAutoplay(t *testing.T) {
	controller := newTestController()
	now := time.Now()

	commands := controller.HandleEvent(now, Event{
		Type:  EventEnqueue,
		Items: []entities.QueueItem{track("a"), track("b")},
	})

	if len(commands) != 1 || commands[0].Type != CommandCue || commands[0].VideoID != "a" {
		t.Fatalf("Expected single cue of first item, got %+v", commands)
	}
	if controller.Transport().Playing {
		t.Error("Enqueue should not start playback")
	}
	if controller.Transport().CurrentVideoID != "a" {
		t.Errorf("Expected current video a, got %s", controller.Transport().CurrentVideoID)
	}
}

func TestEnqueueSkipsDuplicates(t *testing.T) {
	controller := newTestController(track("a"))

	controller.HandleEvent(time.Now(), Event{
		Type:  EventEnqueue,
		Items: []entities.QueueItem{track("a"), track("b")},
	})

	items := controller.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items after duplicate append, got %d", len(items))
	}
	if items[0].VideoID != "a" || items[1].VideoID != "b" {
		t.Errorf("Unexpected queue order: %+v", items)
	}
}

func TestSelectLoadsPlaysAndSchedulesRetry(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()

	commands := controller.HandleEvent(now, Event{Type: EventSelect, Index: 1})

	types := commandTypes(commands)
	if len(types) != 3 || types[0] != CommandLoad || types[1] != CommandPlay || types[2] != CommandScheduleRetry {
		t.Fatalf("Expected load/play/retry, got %v", types)
	}
	if commands[0].VideoID != "b" {
		t.Errorf("Expected load of b, got %s", commands[0].VideoID)
	}
	if !controller.Transport().Playing {
		t.Error("Select should set the transport playing")
	}
}

func TestPlayingStateCancelsRetries(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now.Add(100*time.Millisecond), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfacePlaying,
	})

	if !hasCommand(commands, CommandCancelRetry) {
		t.Errorf("Playing should cancel the pending retry, got %v", commandTypes(commands))
	}
}

func TestRetryStopsAfterAttemptBudget(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()

	commands := controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})
	if !hasCommand(commands, CommandScheduleRetry) {
		t.Fatal("Select should schedule the first retry")
	}

	// Attempts 2 and 3 reschedule; the budget is then spent.
	for attempt := 2; attempt <= 3; attempt++ {
		now = now.Add(350 * time.Millisecond)
		commands = controller.HandleEvent(now, Event{Type: EventRetryTimer})
		if !hasCommand(commands, CommandPlay) {
			t.Fatalf("Retry %d should play, got %v", attempt, commandTypes(commands))
		}
		if !hasCommand(commands, CommandScheduleRetry) {
			t.Fatalf("Retry %d should reschedule, got %v", attempt, commandTypes(commands))
		}
	}

	now = now.Add(350 * time.Millisecond)
	commands = controller.HandleEvent(now, Event{Type: EventRetryTimer})
	if !hasCommand(commands, CommandPlay) {
		t.Fatalf("Final retry should still play, got %v", commandTypes(commands))
	}
	if hasCommand(commands, CommandScheduleRetry) {
		t.Error("Retry budget exhausted; no further retry should be scheduled")
	}
}

func TestPauseInsideDebounceWindowIsIgnored(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	controller.HandleEvent(now.Add(500*time.Millisecond), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfacePaused,
	})
	if !controller.Transport().Playing {
		t.Error("Pause 500ms after play command should be ignored")
	}

	controller.HandleEvent(now.Add(2500*time.Millisecond), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfacePaused,
	})
	if controller.Transport().Playing {
		t.Error("Pause after the debounce window should stick")
	}
}

func TestPauseWithoutRecentPlayIntentSticks(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})
	controller.HandleEvent(now.Add(time.Second), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfacePlaying,
	})

	// Playing cleared the intent timestamp, so a pause applies at once.
	controller.HandleEvent(now.Add(1100*time.Millisecond), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfacePaused,
	})
	if controller.Transport().Playing {
		t.Error("User pause after confirmed playback should apply immediately")
	}
}

func TestEndedAdvancesToNextItem(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "a",
	})

	if !hasCommand(commands, CommandLoad) {
		t.Fatalf("Ended should load the next item, got %v", commandTypes(commands))
	}
	if controller.Transport().CurrentVideoID != "b" {
		t.Errorf("Expected advance to b, got %s", controller.Transport().CurrentVideoID)
	}
	if hasCommand(commands, CommandRequestRecommendation) {
		t.Error("Advancing within the queue should not request a recommendation")
	}
	if !controller.Transport().Playing {
		t.Error("Advance should keep the transport playing")
	}
}

func TestEndedAdvancesFromReportedItemNotPlayhead(t *testing.T) {
	controller := newTestController(track("a"), track("b"), track("c"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 2})

	// The surface reports that "a" ended; advance from there.
	controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "a",
	})

	if controller.Transport().CurrentVideoID != "b" {
		t.Errorf("Expected advance from ended item to b, got %s", controller.Transport().CurrentVideoID)
	}
}

func TestEndedUnknownItemOnSingleItemQueueDoesNotReplay(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	// The surface reports an item we no longer hold; with nowhere else to
	// go the queue must not replay its only item.
	commands := controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "ghost",
	})

	if hasCommand(commands, CommandLoad) || hasCommand(commands, CommandPlay) {
		t.Fatalf("Expected no playback commands, got %v", commandTypes(commands))
	}
	if controller.Transport().Playing {
		t.Error("Transport should pause while awaiting a recommendation")
	}
	if controller.Transport().CurrentVideoID != "a" {
		t.Errorf("Playhead should stay on a, got %s", controller.Transport().CurrentVideoID)
	}
}

func TestEndedUnknownItemAdvancesFromHead(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 1})

	controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "ghost",
	})

	if controller.Transport().CurrentVideoID != "a" {
		t.Errorf("Unknown ended item should advance from the head, got %s",
			controller.Transport().CurrentVideoID)
	}
}

func TestLastItemEndedAwaitsRecommendation(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 1})

	commands := controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "b",
	})

	if len(commands) != 0 {
		t.Errorf("Terminal ended should emit no commands, got %v", commandTypes(commands))
	}
	if controller.Transport().Playing {
		t.Error("Transport should pause while awaiting a recommendation")
	}
	if controller.Transport().CurrentVideoID != "b" {
		t.Errorf("Playhead should stay on the last item, got %s", controller.Transport().CurrentVideoID)
	}
}

func TestLastItemEndedLoopsWhenOracleUnusable(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSetOracleUsable, OracleUsable: false})
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 1})

	commands := controller.HandleEvent(now.Add(time.Minute), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceEnded,
		VideoID:      "b",
	})

	if !hasCommand(commands, CommandLoad) || commands[0].VideoID != "a" {
		t.Fatalf("Expected loop back to first item, got %+v", commands)
	}
	if !controller.Transport().Playing {
		t.Error("Loop-back should keep the transport playing")
	}
}

func TestNextAndPreviousWrapAround(t *testing.T) {
	controller := newTestController(track("a"), track("b"), track("c"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 2})

	controller.HandleEvent(now, Event{Type: EventNext})
	if controller.Transport().CurrentVideoID != "a" {
		t.Errorf("Next from the tail should wrap to a, got %s", controller.Transport().CurrentVideoID)
	}

	controller.HandleEvent(now, Event{Type: EventPrevious})
	if controller.Transport().CurrentVideoID != "c" {
		t.Errorf("Previous from the head should wrap to c, got %s", controller.Transport().CurrentVideoID)
	}
}

func TestStepNeedsAtLeastTwoItems(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	if commands := controller.HandleEvent(now, Event{Type: EventNext}); len(commands) != 0 {
		t.Errorf("Next on a single-item queue should be a no-op, got %v", commandTypes(commands))
	}
	if controller.Transport().CurrentVideoID != "a" {
		t.Error("Single-item next should not move the playhead")
	}
}

func TestRemoveCurrentItemClearsPlayhead(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	controller.HandleEvent(now, Event{Type: EventRemove, Index: 0})

	if controller.Transport().CurrentVideoID != "" {
		t.Errorf("Removing the current item should clear the playhead, got %s",
			controller.Transport().CurrentVideoID)
	}
	if len(controller.Items()) != 1 {
		t.Errorf("Expected 1 remaining item, got %d", len(controller.Items()))
	}
}

func TestRemoveOtherItemKeepsPlayhead(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	controller.HandleEvent(now, Event{Type: EventRemove, Index: 1})

	if controller.Transport().CurrentVideoID != "a" {
		t.Errorf("Removing another item should not move the playhead, got %s",
			controller.Transport().CurrentVideoID)
	}
}

func TestClearEmptiesQueueAndPlayhead(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	controller.HandleEvent(now, Event{Type: EventClear})

	if len(controller.Items()) != 0 {
		t.Error("Clear should empty the queue")
	}
	if controller.Transport().CurrentVideoID != "" {
		t.Error("Clear should clear the playhead")
	}
}

func TestProgressOnLastItemRequestsRecommendationOnce(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 1})

	commands := controller.HandleEvent(now, Event{Type: EventProgress, Position: 90, Duration: 200})
	if hasCommand(commands, CommandRequestRecommendation) {
		t.Error("45% progress should not trigger a recommendation")
	}

	commands = controller.HandleEvent(now, Event{Type: EventProgress, Position: 100, Duration: 200})
	if !hasCommand(commands, CommandRequestRecommendation) {
		t.Fatal("50% progress on the last item should trigger a recommendation")
	}

	commands = controller.HandleEvent(now, Event{Type: EventProgress, Position: 150, Duration: 200})
	if hasCommand(commands, CommandRequestRecommendation) {
		t.Error("Recommendation should fire at most once per item")
	}
}

func TestProgressMidQueueDoesNotRequestRecommendation(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now, Event{Type: EventProgress, Position: 190, Duration: 200})
	if hasCommand(commands, CommandRequestRecommendation) {
		t.Error("Progress on a non-final item should not trigger a recommendation")
	}
}

func TestProgressWithUnusableOracleStaysQuiet(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSetOracleUsable, OracleUsable: false})
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now, Event{Type: EventProgress, Position: 180, Duration: 200})
	if hasCommand(commands, CommandRequestRecommendation) {
		t.Error("An unusable oracle should suppress recommendation requests")
	}
}

func TestSetTransportPauseCancelsRetryAndPauses(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now, Event{Type: EventSetTransport, Playing: false})

	if !hasCommand(commands, CommandCancelRetry) || !hasCommand(commands, CommandPause) {
		t.Errorf("Pause intent should cancel retries and pause, got %v", commandTypes(commands))
	}
	if controller.Transport().Playing {
		t.Error("Transport should be paused")
	}
}

func TestSurfaceErrorKeepsQueueIntact(t *testing.T) {
	controller := newTestController(track("a"), track("b"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})

	commands := controller.HandleEvent(now, Event{
		Type:    EventSurfaceError,
		Message: "embed blocked by owner",
	})

	if !hasCommand(commands, CommandReportError) {
		t.Fatalf("Surface error should be reported, got %v", commandTypes(commands))
	}
	if len(controller.Items()) != 2 {
		t.Error("Surface error must not remove queue items")
	}
	if controller.LastError() != "embed blocked by owner" {
		t.Errorf("Unexpected last error: %s", controller.LastError())
	}
}

func TestCuedWhileTransportPlayingReissuesPlay(t *testing.T) {
	controller := newTestController(track("a"))
	now := time.Now()
	controller.HandleEvent(now, Event{Type: EventSelect, Index: 0})
	controller.HandleEvent(now, Event{Type: EventSurfaceState, SurfaceState: repositories.SurfacePlaying})

	commands := controller.HandleEvent(now.Add(time.Second), Event{
		Type:         EventSurfaceState,
		SurfaceState: repositories.SurfaceCued,
	})

	if !hasCommand(commands, CommandPlay) {
		t.Errorf("Cued while the transport intends playback should reissue play, got %v",
			commandTypes(commands))
	}
}
