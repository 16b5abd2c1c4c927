package chatsync

import (
	"sync"
	"sync/atomic"
	"time"
)

// ActivityWindow is how long after the last keystroke or pointer event the
// user still counts as active.
const ActivityWindow = 2 * time.Second

// SkipFunc reports whether a poll cycle due at now should be skipped.
type SkipFunc func(now time.Time) bool

// AnyOf skips when any of fns does.
func AnyOf(fns ...SkipFunc) SkipFunc {
	return func(now time.Time) bool {
		for _, fn := range fns {
			if fn != nil && fn(now) {
				return true
			}
		}
		return false
	}
}

// Visibility tells whether the client is on screen.
type Visibility interface {
	Visible() bool
}

// VisibilityFlag is a settable Visibility. The zero value is visible.
type VisibilityFlag struct {
	hidden atomic.Bool
}

func (v *VisibilityFlag) Visible() bool {
	return !v.hidden.Load()
}

func (v *VisibilityFlag) SetVisible(visible bool) {
	v.hidden.Store(!visible)
}

// WhenHidden skips while v is not visible.
func WhenHidden(v Visibility) SkipFunc {
	return func(time.Time) bool {
		return v != nil && !v.Visible()
	}
}

// Activity tracks recent user input.
type Activity struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration
}

// NewActivity uses ActivityWindow when window is zero.
func NewActivity(window time.Duration) *Activity {
	if window <= 0 {
		window = ActivityWindow
	}
	return &Activity{window: window}
}

// Touch records input at t.
func (a *Activity) Touch(t time.Time) {
	a.mu.Lock()
	if t.After(a.last) {
		a.last = t
	}
	a.mu.Unlock()
}

// Active reports whether input happened within the window before now.
func (a *Activity) Active(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.last.IsZero() && now.Sub(a.last) < a.window
}

// Skip is a SkipFunc that defers polling while the user is active.
func (a *Activity) Skip(now time.Time) bool {
	return a.Active(now)
}
