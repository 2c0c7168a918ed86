package repositories

// SurfaceState is the external playback surface's lifecycle state. The
// controller only observes transitions; the surface owns the value.
type SurfaceState string

const (
	SurfaceUnstarted SurfaceState = "unstarted"
	SurfaceBuffering SurfaceState = "buffering"
	SurfaceCued      SurfaceState = "cued"
	SurfacePlaying   SurfaceState = "playing"
	SurfacePaused    SurfaceState = "paused"
	SurfaceEnded     SurfaceState = "ended"
	SurfaceUnknown   SurfaceState = "unknown"
)

// PlaybackSurface is the driven side of the playback boundary. Cue
// prepares a video without playing; Load prepares it for immediate
// playback. The surface reports lifecycle transitions and >=1 Hz
// time/duration readings back through controller events.
type PlaybackSurface interface {
	Cue(videoID string)
	Load(videoID string)
	Play()
	Pause()
}
