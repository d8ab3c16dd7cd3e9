// Package optimistic implements client-side reconciliation for engagement
// actions. UI state flips immediately on user input, then converges to the
// server's answer: confirmed on success, rolled back to the last
// server-confirmed value on failure. Server pushes always win.
package optimistic

import (
	"sync"

	"careervivid/internal/models"
)

// Phase of a speculative like mutation.
type Phase int

const (
	// PhaseConfirmed: displayed state equals the last server-confirmed state.
	PhaseConfirmed Phase = iota
	// PhaseSpeculative: a guess is displayed while the request is in flight.
	PhaseSpeculative
	// PhaseRolledBack: the request failed and the display snapped back.
	// Cleared on the next BeginToggle or server push.
	PhaseRolledBack
)

// LikeView is what the UI renders for one post's like control.
type LikeView struct {
	Liked   bool
	Count   uint
	Phase   Phase
	Pending bool
}

// LikeState reconciles one post's like control against the server.
//
// It keeps two copies of (liked, count): the confirmed pair, only ever
// written from server responses and pushes, and the displayed pair, which
// may run ahead speculatively. Rollback is a copy from confirmed to
// displayed, so a failure after N stacked guesses lands on the last thing
// the server actually said, not on guess N-1.
type LikeState struct {
	mu sync.Mutex

	confirmedLiked bool
	confirmedCount uint

	liked bool
	count uint

	phase   Phase
	pending int
}

// NewLikeState seeds the state from a server-rendered post.
func NewLikeState(liked bool, count uint) *LikeState {
	return &LikeState{
		confirmedLiked: liked,
		confirmedCount: count,
		liked:          liked,
		count:          count,
		phase:          PhaseConfirmed,
	}
}

// BeginToggle flips the displayed state immediately and marks a request in
// flight. Rapid repeated taps stack: each flips again, and the shared
// confirmed baseline absorbs whichever outcomes arrive.
func (s *LikeState) BeginToggle() LikeView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.liked = !s.liked
	if s.liked {
		s.count++
	} else if s.count > 0 {
		s.count--
	}
	s.phase = PhaseSpeculative
	s.pending++
	return s.viewLocked()
}

// Confirm applies the server's answer for one in-flight toggle. The response
// carries the authoritative liked flag and counters, so the confirmed
// baseline is overwritten rather than adjusted.
func (s *LikeState) Confirm(liked bool, metrics models.Metrics) LikeView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmedLiked = liked
	s.confirmedCount = metrics.Likes
	if s.pending > 0 {
		s.pending--
	}
	if s.pending == 0 {
		// No guesses left outstanding: display the server's truth.
		s.liked = liked
		s.count = metrics.Likes
		s.phase = PhaseConfirmed
	}
	return s.viewLocked()
}

// Fail rolls the display back to the last server-confirmed state. Not to the
// pre-tap value: with stacked toggles the pre-tap value may itself have been
// a guess.
func (s *LikeState) Fail() LikeView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending > 0 {
		s.pending--
	}
	s.liked = s.confirmedLiked
	s.count = s.confirmedCount
	s.phase = PhaseRolledBack
	return s.viewLocked()
}

// ApplyServerPush folds a live feed delivery into the baseline. If a guess is
// still in flight, only the baseline moves; the speculative display stands
// until its own response arrives. When the push already matches the guess the
// state is promoted to confirmed without waiting.
func (s *LikeState) ApplyServerPush(liked bool, metrics models.Metrics) LikeView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmedLiked = liked
	s.confirmedCount = metrics.Likes
	if s.pending == 0 || (s.liked == liked && s.count == metrics.Likes) {
		s.liked = liked
		s.count = metrics.Likes
		s.phase = PhaseConfirmed
		s.pending = 0
	}
	return s.viewLocked()
}

// View returns the current render state.
func (s *LikeState) View() LikeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *LikeState) viewLocked() LikeView {
	return LikeView{
		Liked:   s.liked,
		Count:   s.count,
		Phase:   s.phase,
		Pending: s.pending > 0,
	}
}
