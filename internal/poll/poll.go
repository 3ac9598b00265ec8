// Package poll blocks on remote progress: it re-checks a status function at
// a fixed interval until a completion predicate holds or a timeout elapses.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome is how a wait ended when no error occurred.
type Outcome int

const (
	Completed Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CheckFunc reports the current progress or remaining-count value.
type CheckFunc func(ctx context.Context) (int, error)

// DoneFunc is the completion predicate applied to each checked value.
type DoneFunc func(value int) bool

// ProgressComplete holds once a percentage reaches 100.
func ProgressComplete(progress int) bool { return progress >= 100 }

// NoneRemaining holds once a backlog count drains to zero.
func NoneRemaining(remaining int) bool { return remaining == 0 }

// Result describes a finished wait.
type Result struct {
	Outcome Outcome
	Polls   int
	Last    int
	Elapsed time.Duration
}

// Waiter holds the timing of a wait. The zero value is not usable: both
// Interval and Timeout must be positive.
type Waiter struct {
	Interval time.Duration
	Timeout  time.Duration

	// OnPoll, when set, is called after every successful check.
	OnPoll func(attempt, value int)
}

var errInvalidWaiter = errors.New("poll: interval and timeout must be positive")

// Wait checks immediately and then once per interval. It returns a
// Completed result as soon as done holds and a TimedOut result once the
// timeout has elapsed without completion; a timeout is not an error. Every
// sleep is a full interval, and no check runs once the deadline has passed,
// so a timed-out wait ends within one interval after the timeout. Errors
// from check and context cancellation are returned as-is.
func (w Waiter) Wait(ctx context.Context, check CheckFunc, done DoneFunc) (Result, error) {
	if w.Interval <= 0 || w.Timeout <= 0 {
		return Result{}, errInvalidWaiter
	}

	start := time.Now()
	deadline := start.Add(w.Timeout)
	timer := time.NewTimer(w.Interval)
	timer.Stop()
	defer timer.Stop()

	var res Result
	for {
		value, err := check(ctx)
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}
		res.Polls++
		res.Last = value
		if w.OnPoll != nil {
			w.OnPoll(res.Polls, value)
		}

		if done(value) {
			res.Outcome = Completed
			res.Elapsed = time.Since(start)
			return res, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			res.Outcome = TimedOut
			res.Elapsed = time.Since(start)
			return res, nil
		}

		timer.Reset(w.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		}

		if !time.Now().Before(deadline) {
			res.Outcome = TimedOut
			res.Elapsed = time.Since(start)
			return res, nil
		}
	}
}
