package entities

import (
	"errors"
	"time"
)

// ErrDuplicateVideo is returned when an append would violate the queue's
// videoId uniqueness invariant.
var ErrDuplicateVideo = errors.New("video already queued")

// QueueItem is one track entry in the playback queue with provenance
// metadata: which query produced it and the oracle's rationale, if any.
type QueueItem struct {
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channelTitle"`
	AddedAt      time.Time `json:"addedAt"`
	Source       string    `json:"source"`
	Query        string    `json:"query"`
	Rationale    string    `json:"llmRationale,omitempty"`
}

// Queue is an ordered sequence of items; insertion order is play order.
// No two items share a videoId.
type Queue struct {
	items []QueueItem
}

// NewQueue builds a queue from items, silently dropping later duplicates
// so a persisted queue always loads into a valid state.
func NewQueue(items []QueueItem) *Queue {
	q := &Queue{}
	for _, item := range items {
		_ = q.Append(item)
	}
	return q
}

// Append adds item to the tail. A duplicate videoId is rejected, not
// appended.
func (q *Queue) Append(item QueueItem) error {
	if item.VideoID == "" {
		return errors.New("queue item requires a videoId")
	}
	if q.IndexOf(item.VideoID) >= 0 {
		return ErrDuplicateVideo
	}
	q.items = append(q.items, item)
	return nil
}

// IndexOf returns the position of videoID, or -1 when absent.
func (q *Queue) IndexOf(videoID string) int {
	for i, item := range q.items {
		if item.VideoID == videoID {
			return i
		}
	}
	return -1
}

// At returns the item at index.
func (q *Queue) At(index int) (QueueItem, bool) {
	if index < 0 || index >= len(q.items) {
		return QueueItem{}, false
	}
	return q.items[index], true
}

// Remove deletes the item at index.
func (q *Queue) Remove(index int) bool {
	if index < 0 || index >= len(q.items) {
		return false
	}
	q.items = append(q.items[:index], q.items[index+1:]...)
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.items = nil
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queue contents in play order.
func (q *Queue) Items() []QueueItem {
	out := make([]QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// PastTracks projects the queue into the novelty list sent to the oracle.
func (q *Queue) PastTracks() []PastTrack {
	tracks := make([]PastTrack, 0, len(q.items))
	for _, item := range q.items {
		tracks = append(tracks, PastTrack{Name: item.Title})
	}
	return tracks
}

// TransportState is the controller's own intent: whether playback should
// be running and which queued video it currently points at. CurrentVideoID
// is empty when no item is selected, and always refers to a videoId that
// is present in the queue.
type TransportState struct {
	Playing        bool   `json:"playing"`
	CurrentVideoID string `json:"currentVideoId"`
}
