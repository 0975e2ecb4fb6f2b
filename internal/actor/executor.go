package actor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// Performer runs one configured action at a point.
type Performer interface {
	Perform(ctx context.Context, mode action.Mode, target action.Point) error
}

// Executor runs host actions off the read loop. At most one action runs at a
// time; a trigger that arrives while busy is ignored.
type Executor struct {
	performer Performer
	busy      atomic.Bool
	wg        sync.WaitGroup

	mu    sync.Mutex
	mode  action.Mode
	point *action.Point

	onComplete func(error)
}

func NewExecutor(performer Performer, mode action.Mode) *Executor {
	if mode == "" {
		mode = action.ModeClick
	}
	return &Executor{performer: performer, mode: mode}
}

// OnComplete sets the callback run after every trigger that was accepted,
// including ones that failed.
func (e *Executor) OnComplete(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

func (e *Executor) SetMode(mode action.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	log.Info().Str("mode", string(mode)).Msg("action mode set")
}

func (e *Executor) Mode() action.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Executor) SetPoint(p action.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.point = &p
	log.Info().Int("x", p.X).Int("y", p.Y).Msg("target point locked")
}

func (e *Executor) ClearPoint() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.point = nil
}

func (e *Executor) Point() (action.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.point == nil {
		return action.Point{}, false
	}
	return *e.point, true
}

func (e *Executor) Busy() bool { return e.busy.Load() }

// Trigger starts one action and reports whether it was accepted.
func (e *Executor) Trigger(ctx context.Context) bool {
	if !e.busy.CompareAndSwap(false, true) {
		log.Warn().Msg("trigger ignored: action already in progress")
		observability.RecordAction(string(e.Mode()), observability.ActionIgnored)
		return false
	}
	e.mu.Lock()
	mode, point, done := e.mode, e.point, e.onComplete
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.run(ctx, mode, point)
		e.busy.Store(false)
		if done != nil {
			done(err)
		}
	}()
	return true
}

func (e *Executor) run(ctx context.Context, mode action.Mode, point *action.Point) error {
	if point == nil {
		observability.RecordAction(string(mode), observability.ActionFailed)
		log.Warn().Err(action.ErrNoCapturedPoint).Msg("trigger received before a target point was locked")
		return action.ErrNoCapturedPoint
	}
	if err := e.performer.Perform(ctx, mode, *point); err != nil {
		observability.RecordAction(string(mode), observability.ActionFailed)
		log.Error().Err(err).Str("mode", string(mode)).Msg("action failed")
		return err
	}
	observability.RecordAction(string(mode), observability.ActionOK)
	log.Info().Str("mode", string(mode)).Int("x", point.X).Int("y", point.Y).Msg("action performed")
	return nil
}

// Wait blocks until in-flight actions finish.
func (e *Executor) Wait() {
	e.wg.Wait()
}
