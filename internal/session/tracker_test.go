package session

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"smartkids/internal/models"
)

func correct() models.RoundOutcome {
	return models.RoundOutcome{Correct: true, ResponseTimeMs: 1200, DifficultyAtTime: 5}
}

func wrong() models.RoundOutcome {
	return models.RoundOutcome{Correct: false, ResponseTimeMs: 3400, DifficultyAtTime: 5}
}

func startedTracker(t *testing.T, target int) *Tracker {
	t.Helper()
	tr := NewTracker(5)
	if err := tr.Start(target); err != nil {
		t.Fatalf("Start(%d) error = %v", target, err)
	}
	return tr
}

func TestStartTransitions(t *testing.T) {
	tr := NewTracker(5)
	if tr.State() != NotStarted {
		t.Fatalf("new tracker state = %v, want %v", tr.State(), NotStarted)
	}
	if err := tr.Start(DefaultRoundsTarget); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if tr.State() != InProgress {
		t.Errorf("state after Start = %v, want %v", tr.State(), InProgress)
	}
	if err := tr.Start(DefaultRoundsTarget); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Start() error = %v, want ErrInvalidState", err)
	}
}

func TestStartRejectsBadTarget(t *testing.T) {
	tr := NewTracker(5)
	for _, target := range []int{0, -1} {
		if err := tr.Start(target); !errors.Is(err, ErrInvalidRoundsTarget) {
			t.Errorf("Start(%d) error = %v, want ErrInvalidRoundsTarget", target, err)
		}
	}
	if tr.State() != NotStarted {
		t.Errorf("failed Start changed state to %v", tr.State())
	}
}

func TestRecordRoundRequiresInProgress(t *testing.T) {
	tr := NewTracker(5)
	if err := tr.RecordRound(correct()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordRound before Start error = %v, want ErrInvalidState", err)
	}

	tr = startedTracker(t, 1)
	if err := tr.RecordRound(correct()); err != nil {
		t.Fatalf("RecordRound() error = %v", err)
	}
	if err := tr.RecordRound(correct()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordRound after completion error = %v, want ErrInvalidState", err)
	}
}

func TestWrongAnswersDoNotAdvance(t *testing.T) {
	tr := startedTracker(t, DefaultRoundsTarget)
	prev := tr.Snapshot()
	sequence := []models.RoundOutcome{wrong(), correct(), wrong(), wrong(), correct(), correct(), wrong()}
	for _, o := range sequence {
		if err := tr.RecordRound(o); err != nil {
			t.Fatalf("RecordRound() error = %v", err)
		}
		snap := tr.Snapshot()
		if snap.RoundsCompleted < prev.RoundsCompleted || snap.Wins < prev.Wins {
			t.Fatalf("counters decreased: %+v -> %+v", prev, snap)
		}
		advanced := snap.RoundsCompleted - prev.RoundsCompleted
		if o.Correct && advanced != 1 {
			t.Fatalf("correct outcome advanced rounds by %d", advanced)
		}
		if !o.Correct && advanced != 0 {
			t.Fatalf("wrong outcome advanced rounds by %d", advanced)
		}
		prev = snap
	}
	snap := tr.Snapshot()
	if snap.RoundsCompleted != 3 || snap.Wins != 3 || snap.Attempts != 7 {
		t.Errorf("snapshot = %+v, want 3 rounds, 3 wins, 7 attempts", snap)
	}
	if snap.State != InProgress {
		t.Errorf("state = %v, want %v", snap.State, InProgress)
	}
}

func TestCompletesExactlyOnTenthCorrect(t *testing.T) {
	tr := startedTracker(t, DefaultRoundsTarget)
	transitions := 0
	for i := 1; i <= DefaultRoundsTarget; i++ {
		before := tr.State()
		if err := tr.RecordRound(correct()); err != nil {
			t.Fatalf("round %d: RecordRound() error = %v", i, err)
		}
		if before != Completed && tr.State() == Completed {
			transitions++
			if i != DefaultRoundsTarget {
				t.Fatalf("completed on round %d, want %d", i, DefaultRoundsTarget)
			}
		}
	}
	if transitions != 1 {
		t.Errorf("observed %d transitions to Completed, want 1", transitions)
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	tr := startedTracker(t, 3)
	for _, o := range []models.RoundOutcome{correct(), wrong(), correct(), correct()} {
		if err := tr.RecordRound(o); err != nil {
			t.Fatalf("RecordRound() error = %v", err)
		}
	}
	first, err := tr.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	second, err := tr.Finish()
	if err != nil {
		t.Fatalf("second Finish() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Finish() results differ:\n%+v\n%+v", first, second)
	}

	first.Outcomes[0].Correct = false
	third, _ := tr.Finish()
	if !third.Outcomes[0].Correct {
		t.Error("mutating a returned result changed the tracker's outcomes")
	}
}

func TestFinishBeforeStartFails(t *testing.T) {
	if _, err := NewTracker(5).Finish(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Finish() before Start error = %v, want ErrInvalidState", err)
	}
}

func TestEarlyFinishStopsSession(t *testing.T) {
	tr := startedTracker(t, DefaultRoundsTarget)
	_ = tr.RecordRound(correct())
	_ = tr.RecordRound(correct())

	res, err := tr.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if tr.State() != Completed {
		t.Errorf("state after early finish = %v, want %v", tr.State(), Completed)
	}
	if res.RoundsCompleted != 2 || res.RoundsTarget != DefaultRoundsTarget {
		t.Errorf("result = %+v", res)
	}
	if res.Accuracy != 1 || math.Abs(res.Score-0.2) > 1e-9 {
		t.Errorf("Accuracy = %v, Score = %v, want 1 and 0.2", res.Accuracy, res.Score)
	}
	if err := tr.RecordRound(correct()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordRound after early finish error = %v, want ErrInvalidState", err)
	}

	full := startedTracker(t, DefaultRoundsTarget)
	for i := 0; i < DefaultRoundsTarget; i++ {
		_ = full.RecordRound(correct())
	}
	fullRes, _ := full.Finish()
	if res.RewardCoins >= fullRes.RewardCoins {
		t.Errorf("stopping after 2 rounds paid %d coins, full session %d", res.RewardCoins, fullRes.RewardCoins)
	}
}

func TestZeroCorrectPaysNothing(t *testing.T) {
	for _, attempts := range []int{0, 1, 5, 40} {
		tr := startedTracker(t, DefaultRoundsTarget)
		for i := 0; i < attempts; i++ {
			_ = tr.RecordRound(wrong())
		}
		res, err := tr.Finish()
		if err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		if res.RewardCoins != 0 || res.RewardStars != 0 {
			t.Errorf("%d wrong attempts paid %d coins, %d stars", attempts, res.RewardCoins, res.RewardStars)
		}
		if res.Accuracy != 0 {
			t.Errorf("accuracy = %v, want 0", res.Accuracy)
		}
	}
}

func TestSevenCorrectThreeRetriedScenario(t *testing.T) {
	tr := startedTracker(t, DefaultRoundsTarget)
	// seven rounds right first time, three rounds needing one retry each
	for i := 0; i < 7; i++ {
		_ = tr.RecordRound(correct())
	}
	for i := 0; i < 3; i++ {
		_ = tr.RecordRound(wrong())
		_ = tr.RecordRound(correct())
	}
	if tr.State() != Completed {
		t.Fatalf("state = %v, want %v", tr.State(), Completed)
	}
	res, _ := tr.Finish()
	if res.RoundsCompleted != 10 || res.Wins != 10 || res.Attempts != 13 {
		t.Errorf("result = %+v", res)
	}
	if want := 10.0 / 13.0; res.Accuracy != want {
		t.Errorf("accuracy = %v, want %v", res.Accuracy, want)
	}
	if len(res.Outcomes) != 13 {
		t.Errorf("outcomes = %d, want 13", len(res.Outcomes))
	}
}

func TestRestartAfterCompletionResets(t *testing.T) {
	tr := startedTracker(t, 1)
	_ = tr.RecordRound(correct())
	if _, err := tr.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := tr.Start(2); err != nil {
		t.Fatalf("Start() after completion error = %v", err)
	}
	snap := tr.Snapshot()
	if snap.RoundsCompleted != 0 || snap.Wins != 0 || snap.Attempts != 0 || snap.RoundsTarget != 2 {
		t.Errorf("snapshot after restart = %+v", snap)
	}
}
