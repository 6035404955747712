// Package clock tells the track time from the playing audio.
package clock

import (
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
)

// maxDrift is how far Now runs ahead of a stream position that has not
// moved. The speaker advances the position a buffer at a time.
const maxDrift = 0.05

// Music is a track clock in seconds read from the position of a playing
// stream. It never runs backwards and is safe for concurrent use.
type Music struct {
	streamer beep.StreamSeeker
	rate     beep.SampleRate
	speed    float64
	offset   float64
	lock     sync.Locker
	now      func() time.Time

	mu       sync.Mutex
	start    time.Time
	lastPos  int
	lastWall time.Time
	last     float64
}

// NewMusic reads the position of streamer, decoded at rate and played
// speed times as fast, under lock, which guards the streamer against the
// audio thread.
func NewMusic(streamer beep.StreamSeeker, rate beep.SampleRate, speed float64, offset time.Duration, lock sync.Locker) *Music {
	return &Music{
		streamer: streamer,
		rate:     rate,
		speed:    speed,
		offset:   offset.Seconds(),
		lock:     lock,
		now:      time.Now,
		lastPos:  -1,
		last:     math.Inf(-1),
	}
}

// Start marks playback as beginning after delay. Until then Now counts up
// towards 0.
func (m *Music) Start(delay time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = m.now().Add(delay)
	return m.start
}

func (m *Music) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	wall := m.now()
	var t float64
	if wall.Before(m.start) {
		t = -m.start.Sub(wall).Seconds() * m.speed
	} else {
		m.lock.Lock()
		pos := m.streamer.Position()
		m.lock.Unlock()
		if pos != m.lastPos {
			m.lastPos, m.lastWall = pos, wall
		}
		drift := math.Min(wall.Sub(m.lastWall).Seconds()*m.speed, maxDrift)
		t = m.rate.D(pos).Seconds() + drift
	}
	t += m.offset
	if t < m.last {
		t = m.last
	}
	m.last = t
	return t
}

// Done reports whether the stream has played to its end.
func (m *Music) Done() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.streamer.Position() >= m.streamer.Len()
}
