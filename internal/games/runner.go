package games

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"smartkids/internal/models"
	"smartkids/internal/service"
	"smartkids/internal/session"
	"smartkids/internal/store"
)

// SessionManager is the part of the GameManager a Runner drives
type SessionManager interface {
	BeginSession(ctx context.Context, gameID models.GameID) (int, service.SessionHandle, error)
	ReportRound(handle service.SessionHandle, outcome models.RoundOutcome) (session.Snapshot, error)
	EndSession(ctx context.Context, handle service.SessionHandle) (session.Result, error)
	AbandonSession(handle service.SessionHandle) error
}

// Speaker narrates prompts and feedback
type Speaker interface {
	Say(text string)
	Wait(ctx context.Context) error
}

// quitCommands end the session early; rounds answered so far still count
var quitCommands = map[string]bool{"q": true, "quit": true, "退出": true}

// Runner plays one session of a Game in a terminal: it shows each round,
// reads answers line by line and reports every outcome to the manager.
type Runner struct {
	manager SessionManager
	speaker Speaker
	in      *bufio.Scanner
	out     io.Writer
	opts    Options
	newGame func(id models.GameID, level int, opts Options) (Game, error)
}

// NewRunner creates a runner reading answers from in and drawing to out
func NewRunner(m SessionManager, speaker Speaker, in io.Reader, out io.Writer, opts Options) *Runner {
	return &Runner{
		manager: m,
		speaker: speaker,
		in:      bufio.NewScanner(in),
		out:     out,
		opts:    opts.withDefaults(),
		newGame: New,
	}
}

// Play runs a full session of id. The session ends after the last round,
// on a quit command or when input runs out. Cancelling ctx or a failing
// game also ends it early, and that error is returned with the result. A
// persistence error from EndSession is returned together with the result.
func (r *Runner) Play(ctx context.Context, id models.GameID) (session.Result, error) {
	level, handle, err := r.manager.BeginSession(ctx, id)
	if err != nil {
		return session.Result{}, err
	}
	game, err := r.newGame(id, level, r.opts)
	if err != nil {
		if aerr := r.manager.AbandonSession(handle); aerr != nil {
			log.Warn().Err(aerr).Msg("Failed to abandon session")
		}
		return session.Result{}, err
	}

	fmt.Fprintf(r.out, "== %s (level %d) ==\n", id.DisplayName(), level)
	game.Advance()
	r.show(game.CurrentVisualState())

	for {
		if err := ctx.Err(); err != nil {
			return r.stop(ctx, handle, err)
		}

		line, ok := r.readLine()
		if !ok || quitCommands[strings.ToLower(line)] {
			return r.finish(ctx, handle)
		}

		if err := game.HandleInput(line); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				fmt.Fprintln(r.out, "请输入一个数字 (q 退出)")
				continue
			}
			return r.stop(ctx, handle, err)
		}
		outcome, ok := game.ReportOutcome()
		if !ok {
			continue
		}
		snap, err := r.manager.ReportRound(handle, outcome)
		if err != nil {
			return r.stop(ctx, handle, err)
		}

		vs := game.CurrentVisualState()
		fmt.Fprintf(r.out, "%s  [%d/%d]\n", vs.Speech, snap.RoundsCompleted, snap.RoundsTarget)
		r.speaker.Say(vs.Speech)
		// hold the next round until the feedback has been heard
		if err := r.speaker.Wait(ctx); err != nil {
			log.Debug().Err(err).Msg("Stopped waiting for narration")
		}

		if snap.State == session.Completed {
			return r.finish(ctx, handle)
		}
		if outcome.Correct {
			game.Advance()
		}
		r.show(game.CurrentVisualState())
	}
}

// finish ends the session; the save runs even after ctx is cancelled
func (r *Runner) finish(ctx context.Context, handle service.SessionHandle) (session.Result, error) {
	res, err := r.manager.EndSession(context.WithoutCancel(ctx), handle)
	if err != nil && !errors.Is(err, store.ErrPersistence) {
		return res, err
	}
	summary := fmt.Sprintf("游戏结束！你答对了%d题！", res.RoundsCompleted)
	fmt.Fprintf(r.out, "%s 金币 +%d  星星 +%d\n", summary, res.RewardCoins, res.RewardStars)
	r.speaker.Say(summary)
	return res, err
}

// stop ends an interrupted session early so the rounds played so far are
// kept, then returns cause together with any error from ending it
func (r *Runner) stop(ctx context.Context, handle service.SessionHandle, cause error) (session.Result, error) {
	res, err := r.finish(ctx, handle)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to end interrupted session")
		return res, errors.Join(cause, err)
	}
	return res, cause
}

func (r *Runner) show(vs VisualState) {
	fmt.Fprintf(r.out, "\n第%d题  %s\n", vs.Round, vs.Prompt)
	if len(vs.Objects) > 0 {
		fmt.Fprintln(r.out, strings.Join(vs.Objects, " "))
	}
	for i, opt := range vs.Options {
		fmt.Fprintf(r.out, "  %c) %d\n", 'a'+i, opt)
	}
	if vs.Feedback == FeedbackNone {
		r.speaker.Say(vs.Speech)
	}
}

func (r *Runner) readLine() (string, bool) {
	return r.Prompt("> ")
}

// Prompt asks a question on the same input the sessions read from
func (r *Runner) Prompt(question string) (string, bool) {
	fmt.Fprint(r.out, question)
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}
