package gpu

import (
	"sync"
	"time"

	"github.com/loov/hrtime"
)

const frameTimeWindow = 120

// FrameTimes collects presentation timing for one swapchain: a ring of the
// most recent present-to-present intervals measured with hrtime.
type FrameTimes struct {
	mu        sync.Mutex
	last      time.Duration
	count     int
	intervals [frameTimeWindow]time.Duration
	filled    int
	next      int
}

func newFrameTimes() *FrameTimes {
	return &FrameTimes{}
}

// record is called by the presentation worker once per delivered image.
func (t *FrameTimes) record() {
	now := hrtime.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count > 0 {
		t.intervals[t.next] = now - t.last
		t.next = (t.next + 1) % frameTimeWindow
		if t.filled < frameTimeWindow {
			t.filled++
		}
	}
	t.last = now
	t.count++
}

// Count reports how many images have been delivered.
func (t *FrameTimes) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// LastInterval reports the most recent present-to-present interval, or zero
// before two presents have happened.
func (t *FrameTimes) LastInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled == 0 {
		return 0
	}
	return t.intervals[(t.next+frameTimeWindow-1)%frameTimeWindow]
}

// MeanInterval reports the mean interval over the recent window, or zero
// before two presents have happened.
func (t *FrameTimes) MeanInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < t.filled; i++ {
		sum += t.intervals[i]
	}
	return sum / time.Duration(t.filled)
}
