// Package viewport keeps the sidebar's "currently viewing" pointer in step
// with whatever question occupies the middle of the screen.
package viewport

import (
	"time"
)

// Box is the rendered extent of one question in document (content)
// coordinates: Top is the offset of its first line from the top of the
// document, Height its rendered height.
type Box struct {
	ID     string
	Top    float64
	Height float64
}

// Focuser is the navigation side of the link; study.Navigator satisfies it.
type Focuser interface {
	SetFocus(questionID string)
}

const (
	// DefaultBandFraction is the share of the viewport height, centered
	// vertically, considered when deciding what the user is looking at.
	DefaultBandFraction = 0.5
	// DefaultThreshold is the visible-ratio a question must reach inside the
	// band before it takes focus.
	DefaultThreshold = 0.4
	// DefaultDebounce caps how often scroll events may move focus.
	DefaultDebounce = 150 * time.Millisecond
	// jumpGrace suppresses scroll-driven focus right after an explicit jump
	// so the synchronizer does not fight the user's navigation.
	jumpGrace = 400 * time.Millisecond
)

// Synchronizer derives the focused question from scroll position. It is
// driven by Observe on every scroll event and only calls the Focuser when
// the winning question actually changes, at most once per debounce window.
type Synchronizer struct {
	focuser   Focuser
	band      float64
	threshold float64
	debounce  time.Duration
	clock     func() time.Time

	lastID        string
	lastFire      time.Time
	suppressUntil time.Time
}

type Option func(*Synchronizer)

func WithBandFraction(f float64) Option {
	return func(s *Synchronizer) { s.band = f }
}

func WithThreshold(t float64) Option {
	return func(s *Synchronizer) { s.threshold = t }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) { s.debounce = d }
}

func WithClock(c func() time.Time) Option {
	return func(s *Synchronizer) { s.clock = c }
}

func New(focuser Focuser, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		focuser:   focuser,
		band:      DefaultBandFraction,
		threshold: DefaultThreshold,
		debounce:  DefaultDebounce,
		clock:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Observe evaluates the current scroll state. scrollTop is the document
// offset of the viewport's first visible line, viewportHeight its height,
// boxes the rendered questions. Returns the winning question id (possibly
// unchanged) and whether focus was moved this call.
func (s *Synchronizer) Observe(scrollTop, viewportHeight float64, boxes []Box) (string, bool) {
	now := s.clock()
	if now.Before(s.suppressUntil) {
		return s.lastID, false
	}

	winner, ratio := s.winner(scrollTop, viewportHeight, boxes)
	if winner == "" || ratio < s.threshold {
		return s.lastID, false
	}
	if winner == s.lastID {
		return s.lastID, false
	}
	if now.Sub(s.lastFire) < s.debounce {
		return s.lastID, false
	}

	s.lastID = winner
	s.lastFire = now
	if s.focuser != nil {
		s.focuser.SetFocus(winner)
	}
	return winner, true
}

// winner finds the question with the highest visible ratio inside the
// central band. The ratio is the intersection height divided by the smaller
// of the box height and the band height, so tall questions can still qualify.
func (s *Synchronizer) winner(scrollTop, viewportHeight float64, boxes []Box) (string, float64) {
	bandHeight := viewportHeight * s.band
	bandTop := scrollTop + (viewportHeight-bandHeight)/2
	bandBottom := bandTop + bandHeight

	bestID := ""
	bestRatio := 0.0
	for _, b := range boxes {
		if b.Height <= 0 {
			continue
		}
		top := max64(b.Top, bandTop)
		bottom := min64(b.Top+b.Height, bandBottom)
		visible := bottom - top
		if visible <= 0 {
			continue
		}
		denom := min64(b.Height, bandHeight)
		if denom <= 0 {
			continue
		}
		ratio := visible / denom
		if ratio > bestRatio {
			bestRatio = ratio
			bestID = b.ID
		}
	}
	return bestID, bestRatio
}

// NoteJump must be called when the user jumps to a question explicitly. It
// records the target as current and pauses scroll-driven focus for a short
// grace period while the viewport settles.
func (s *Synchronizer) NoteJump(questionID string) {
	s.lastID = questionID
	s.suppressUntil = s.clock().Add(jumpGrace)
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
