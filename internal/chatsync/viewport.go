package chatsync

import "sync"

// BottomThreshold is how close to the end, in pixels, still counts as
// "at bottom".
const BottomThreshold = 50.0

// Viewport is the scrollable message list the log renders into.
type Viewport interface {
	AtBottom(threshold float64) bool
	ScrollToBottom()
	ComposerFocused() bool
}

// ShouldAutoScroll decides whether a refresh may move the viewport. The
// initial load of a chat always lands at the end. Later refreshes follow new
// content only when the reader was already at the end, the log actually
// grew and the composer is not focused.
func ShouldAutoScroll(initial, wasAtBottom bool, before, after int, composerFocused bool) bool {
	if initial {
		return true
	}
	return wasAtBottom && after > before && !composerFocused
}

// ScrollModel is a pixel model of a list viewport. It backs headless clients
// and tests.
type ScrollModel struct {
	mu           sync.Mutex
	scrollTop    float64
	clientHeight float64
	scrollHeight float64
	focused      bool
	scrolls      int
}

// NewScrollModel returns a viewport of the given visible height.
func NewScrollModel(clientHeight float64) *ScrollModel {
	return &ScrollModel{clientHeight: clientHeight}
}

func (s *ScrollModel) AtBottom(threshold float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollHeight-s.scrollTop-s.clientHeight <= threshold
}

func (s *ScrollModel) ScrollToBottom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = max(0, s.scrollHeight-s.clientHeight)
	s.scrolls++
}

func (s *ScrollModel) ComposerFocused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// SetContentHeight resizes the content without moving the scroll position.
func (s *ScrollModel) SetContentHeight(h float64) {
	s.mu.Lock()
	s.scrollHeight = h
	s.mu.Unlock()
}

// ScrollTo moves the scroll position, clamped to the content.
func (s *ScrollModel) ScrollTo(top float64) {
	s.mu.Lock()
	s.scrollTop = min(max(0, top), max(0, s.scrollHeight-s.clientHeight))
	s.mu.Unlock()
}

func (s *ScrollModel) SetFocused(focused bool) {
	s.mu.Lock()
	s.focused = focused
	s.mu.Unlock()
}

// ScrollTop is the current scroll position.
func (s *ScrollModel) ScrollTop() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollTop
}

// Scrolls counts ScrollToBottom calls.
func (s *ScrollModel) Scrolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls
}
