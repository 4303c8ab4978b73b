package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/present"
)

// Presenter shows experiment steps in a full-screen Bubble Tea program.
type Presenter struct {
	program *tea.Program
	send    func(tea.Msg)
	events  chan event
	done    chan struct{}
	err     error
}

var _ present.Presenter = (*Presenter)(nil)

// NewPresenter builds a presenter; call Start before presenting steps.
func NewPresenter(opts ...tea.ProgramOption) *Presenter {
	events := make(chan event, 16)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(NewModel(events), opts...)
	return &Presenter{
		program: program,
		send:    program.Send,
		events:  events,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background.
func (p *Presenter) Start() {
	go func() {
		_, err := p.program.Run()
		p.err = err
		close(p.done)
	}()
}

// Stop quits the program and waits for the terminal to be restored.
func (p *Presenter) Stop() error {
	p.program.Quit()
	<-p.done
	return p.err
}

// Done is closed once the program has exited, for example after Ctrl+C.
func (p *Presenter) Done() <-chan struct{} {
	return p.done
}

// Present implements present.Presenter.
func (p *Presenter) Present(ctx context.Context, step model.Step) error {
	if err := p.alive(ctx); err != nil {
		return err
	}
	p.send(showMsg{step: step})
	return nil
}

// Dismiss implements present.Presenter.
func (p *Presenter) Dismiss(ctx context.Context, stepID string) error {
	if err := p.alive(ctx); err != nil {
		return err
	}
	p.send(dismissMsg{id: stepID})
	return nil
}

// AwaitResponse implements present.Presenter. Keys pressed before the call
// are discarded.
func (p *Presenter) AwaitResponse(ctx context.Context, step model.Step, timeout time.Duration) (model.Response, error) {
	if err := p.alive(ctx); err != nil {
		return model.Response{}, err
	}
	if p.drain() {
		return model.Response{}, present.ErrAborted
	}
	start := time.Now()
	p.send(awaitMsg{step: step})
	resp, err := present.Race(ctx, timeout, func(ctx context.Context) (model.Response, error) {
		for {
			select {
			case <-ctx.Done():
				return model.Response{}, ctx.Err()
			case <-p.done:
				return model.Response{}, present.ErrAborted
			case ev := <-p.events:
				if ev.abort {
					return model.Response{}, present.ErrAborted
				}
				rt := max(ev.at.Sub(start), time.Millisecond)
				if step.Kind == model.StepInput {
					if ev.input {
						return model.Response{Text: ev.text, RT: rt}, nil
					}
					continue
				}
				if ev.input || !present.Accepts(step.Keys, ev.key) {
					continue
				}
				return model.Response{Key: ev.key, RT: rt}, nil
			}
		}
	})
	if err == nil && resp.TimedOut {
		// Stop the program from queueing presses for an abandoned step.
		p.send(dismissMsg{id: step.ID})
	}
	return resp, err
}

func (p *Presenter) alive(ctx context.Context) error {
	select {
	case <-p.done:
		return present.ErrAborted
	default:
		return ctx.Err()
	}
}

// drain drops stale events and reports whether one of them was an abort.
func (p *Presenter) drain() bool {
	for {
		select {
		case ev := <-p.events:
			if ev.abort {
				return true
			}
		default:
			return false
		}
	}
}
