package present

import (
	"context"
	"sync"
	"time"

	"github.com/verte-zerg/stroopread/internal/model"
)

// Reply is a scripted participant action.
type Reply struct {
	Key   string
	Text  string
	Delay time.Duration
	// Silent replies never answer, so the step can only time out.
	Silent bool
}

// Script is a Presenter driven by a fixed list of replies or a reply
// function. It records everything it is asked to show.
type Script struct {
	// Respond, when set, answers every step and Replies is ignored.
	Respond func(step model.Step) Reply
	Replies []Reply

	mu        sync.Mutex
	presented []model.Step
	awaited   []model.Step
	dismissed []string
}

var _ Presenter = (*Script)(nil)

// Present implements Presenter.
func (s *Script) Present(ctx context.Context, step model.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = append(s.presented, step)
	return ctx.Err()
}

// AwaitResponse implements Presenter.
func (s *Script) AwaitResponse(ctx context.Context, step model.Step, timeout time.Duration) (model.Response, error) {
	reply, ok := s.next(step)
	if !ok {
		return model.Response{}, ErrAborted
	}
	return Race(ctx, timeout, func(ctx context.Context) (model.Response, error) {
		if reply.Silent {
			<-ctx.Done()
			return model.Response{}, ctx.Err()
		}
		if err := Sleep(ctx, reply.Delay); err != nil {
			return model.Response{}, err
		}
		rt := reply.Delay
		if rt == 0 {
			rt = time.Millisecond
		}
		return model.Response{Key: reply.Key, Text: reply.Text, RT: rt}, nil
	})
}

// Dismiss implements Presenter.
func (s *Script) Dismiss(ctx context.Context, stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed = append(s.dismissed, stepID)
	return ctx.Err()
}

func (s *Script) next(step model.Step) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaited = append(s.awaited, step)
	if s.Respond != nil {
		return s.Respond(step), true
	}
	if len(s.Replies) == 0 {
		return Reply{}, false
	}
	reply := s.Replies[0]
	s.Replies = s.Replies[1:]
	return reply, true
}

// Presented returns the steps shown so far.
func (s *Script) Presented() []model.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Step(nil), s.presented...)
}

// Awaited returns the steps a response was requested for.
func (s *Script) Awaited() []model.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Step(nil), s.awaited...)
}

// Dismissed returns the dismissed step IDs.
func (s *Script) Dismissed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dismissed...)
}
