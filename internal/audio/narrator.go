package audio

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Player speaks text and returns when playback finishes or ctx is cancelled
type Player interface {
	Play(ctx context.Context, text string) error
}

// NopPlayer discards all speech
type NopPlayer struct{}

func (NopPlayer) Play(ctx context.Context, text string) error { return nil }

// Narrator owns the single narration channel. A new utterance interrupts
// the one in progress, and callers can ask whether speech is still playing
// before moving to the next screen.
type Narrator struct {
	player Player

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewNarrator creates an enabled narrator speaking through player
func NewNarrator(player Player) *Narrator {
	if player == nil {
		player = NopPlayer{}
	}
	return &Narrator{player: player, enabled: true}
}

// SetEnabled turns narration on or off. Turning it off stops current speech.
func (n *Narrator) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
	if !enabled {
		n.Stop()
	}
}

// Say starts speaking text in the background, interrupting any current
// utterance. It returns immediately.
func (n *Narrator) Say(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.enabled || text == "" {
		return
	}

	if n.cancel != nil {
		n.cancel()
	}
	prev := n.done

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	n.cancel, n.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		// The previous utterance must release the device first
		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}
		if err := n.player.Play(ctx, text); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("text", text).Msg("Narration failed")
		}
	}()
}

// Busy reports whether an utterance is still playing
func (n *Narrator) Busy() bool {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current utterance finishes or ctx is done
func (n *Narrator) Wait(ctx context.Context) error {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts current speech and waits for the player to release
func (n *Narrator) Stop() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	done := n.done
	n.mu.Unlock()
	if done != nil {
		<-done
	}
}
