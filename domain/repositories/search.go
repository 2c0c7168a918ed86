package repositories

import "context"

// Video is one search result. Entries without a videoId are filtered out
// by the adapter before they reach callers.
type Video struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

// VideoSearch abstracts the video search collaborator.
type VideoSearch interface {
	Search(ctx context.Context, query string, maxResults int) ([]Video, error)
}
