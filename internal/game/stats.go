package game

import (
	"fmt"
	"time"
)

// FrameStats counts frames over a fixed window, one second by default.
// The rate of the last complete window is reported until the next one ends.
type FrameStats struct {
	Window time.Duration

	frames  int
	elapsed time.Duration
	fps     int
	frameMs float64
}

// NewFrameStats returns stats over one-second windows.
func NewFrameStats() *FrameStats {
	return &FrameStats{Window: time.Second}
}

// Tick records one frame that took dt. It returns true when a window
// completed and the reported rate changed.
func (s *FrameStats) Tick(dt time.Duration) bool {
	s.frames++
	s.elapsed += dt
	if s.elapsed < s.Window {
		return false
	}
	s.fps = int(float64(s.frames) / s.elapsed.Seconds())
	s.frameMs = float64(s.elapsed.Microseconds()) / 1000 / float64(s.frames)
	s.frames = 0
	s.elapsed = 0
	return true
}

// FPS returns the frame rate of the last complete window.
func (s *FrameStats) FPS() int { return s.fps }

// FrameTime returns the mean frame time of the last window in milliseconds.
func (s *FrameStats) FrameTime() float64 { return s.frameMs }

// Title formats a window title with the current rate.
func (s *FrameStats) Title(base string) string {
	return fmt.Sprintf("%s - FPS: %d (%.2f ms)", base, s.fps, s.frameMs)
}
