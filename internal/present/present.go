// Package present defines the boundary between the session runner and
// whatever shows steps to the participant.
package present

import (
	"context"
	"errors"
	"time"
	"unicode"

	"github.com/verte-zerg/stroopread/internal/model"
)

// ErrAborted is returned when the participant quits the session.
var ErrAborted = errors.New("session aborted by participant")

// Presenter shows steps and collects responses.
type Presenter interface {
	// Present shows a step; it returns once the step is visible.
	Present(ctx context.Context, step model.Step) error
	// AwaitResponse blocks until the participant answers step or timeout
	// elapses. A zero timeout waits without a deadline. A timeout is
	// reported through Response.TimedOut, not as an error.
	AwaitResponse(ctx context.Context, step model.Step, timeout time.Duration) (model.Response, error)
	// Dismiss removes a previously presented step.
	Dismiss(ctx context.Context, stepID string) error
}

// WaitFunc blocks until a response arrives or ctx is cancelled.
type WaitFunc func(ctx context.Context) (model.Response, error)

type outcome struct {
	resp model.Response
	err  error
}

// Race runs wait against a timeout timer. Whichever settles first wins and
// the other is cancelled: a late response after the timer fired is
// discarded, and the timer is stopped when the response arrives first.
func Race(ctx context.Context, timeout time.Duration, wait WaitFunc) (model.Response, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		resp, err := wait(waitCtx)
		done <- outcome{resp: resp, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-done:
		if out.err != nil {
			return model.Response{}, out.err
		}
		if out.resp.RT == 0 {
			out.resp.RT = time.Since(start)
		}
		return out.resp, nil
	case <-expired:
		return model.Response{TimedOut: true, RT: timeout}, nil
	case <-ctx.Done():
		return model.Response{}, ctx.Err()
	}
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Accepts reports whether key is one of keys, ignoring case. Empty keys
// accept anything.
func Accepts(keys, key string) bool {
	if keys == "" {
		return key != ""
	}
	if key == "" {
		return false
	}
	if key == " " || key == "space" {
		return containsRune(keys, ' ')
	}
	runes := []rune(key)
	if len(runes) != 1 {
		return false
	}
	return containsRune(keys, runes[0])
}

func containsRune(keys string, r rune) bool {
	for _, k := range keys {
		if unicode.ToUpper(k) == unicode.ToUpper(r) {
			return true
		}
	}
	return false
}
