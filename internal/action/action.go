package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownMode     = errors.New("action: unknown mode")
	ErrNoCapturedPoint = errors.New("action: no captured point")
	ErrStepFailed      = errors.New("action: step failed")
)

// Mode selects which sequence a trigger performs.
type Mode string

const (
	ModeClick  Mode = "click"
	ModeScroll Mode = "scroll"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeClick:
		return ModeClick, nil
	case ModeScroll:
		return ModeScroll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// Toggle flips between click and scroll.
func (m Mode) Toggle() Mode {
	if m == ModeScroll {
		return ModeClick
	}
	return ModeScroll
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Offset returns p moved by dx, dy.
func (p Point) Offset(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Driver synthesizes pointer input.
type Driver interface {
	Position() (Point, error)
	Click(at Point) error
	MouseDown(at Point) error
	MouseUp(at Point) error
	MoveTo(at Point) error
	Scroll(amount int) error
}

type StepKind uint8

const (
	StepClick StepKind = iota + 1
	StepMouseDown
	StepMouseUp
	StepMoveTo
	StepScroll
	StepWait
)

func (k StepKind) String() string {
	switch k {
	case StepClick:
		return "click"
	case StepMouseDown:
		return "mouse_down"
	case StepMouseUp:
		return "mouse_up"
	case StepMoveTo:
		return "move_to"
	case StepScroll:
		return "scroll"
	case StepWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Step is one entry of an action sequence.
type Step struct {
	Kind   StepKind
	At     Point
	Amount int
	Wait   time.Duration
}

const (
	// RefocusLift is how far above the original pointer the refocus click lands.
	RefocusLift  = 50
	ScrollAmount = -120
	settleDelay  = 100 * time.Millisecond
	stepDelay    = 50 * time.Millisecond
)

// Sequence builds the ordered steps for mode at target, returning the pointer
// to origin afterwards.
func Sequence(mode Mode, target, origin Point) ([]Step, error) {
	refocus := origin.Offset(0, -RefocusLift)
	var body []Step
	switch mode {
	case ModeClick:
		body = []Step{
			{Kind: StepClick, At: target},
			{Kind: StepWait, Wait: settleDelay},
			{Kind: StepMouseDown, At: target},
			{Kind: StepWait, Wait: stepDelay},
			{Kind: StepMouseUp, At: target},
			{Kind: StepWait, Wait: stepDelay},
		}
	case ModeScroll:
		body = []Step{
			{Kind: StepClick, At: target},
			{Kind: StepWait, Wait: settleDelay},
			{Kind: StepMoveTo, At: target},
			{Kind: StepWait, Wait: stepDelay},
			{Kind: StepScroll, Amount: ScrollAmount},
			{Kind: StepWait, Wait: stepDelay},
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return append(body,
		Step{Kind: StepClick, At: refocus},
		Step{Kind: StepWait, Wait: stepDelay},
		Step{Kind: StepMoveTo, At: origin},
	), nil
}

// Performer runs action sequences against a Driver.
type Performer struct {
	driver Driver
	sleep  func(context.Context, time.Duration) error
}

func NewPerformer(driver Driver) *Performer {
	return &Performer{driver: driver, sleep: sleepContext}
}

// Perform executes one instance of mode at target. A failed click sequence
// returns the pointer to where it started.
func (p *Performer) Perform(ctx context.Context, mode Mode, target Point) error {
	origin, err := p.driver.Position()
	if err != nil {
		return fmt.Errorf("%w: read pointer: %v", ErrStepFailed, err)
	}
	steps, err := Sequence(mode, target, origin)
	if err != nil {
		return err
	}
	for i, step := range steps {
		if err := p.run(ctx, step); err != nil {
			if mode == ModeClick {
				_ = p.driver.MoveTo(origin)
			}
			return fmt.Errorf("%w: step %d %s: %v", ErrStepFailed, i, step.Kind, err)
		}
	}
	return nil
}

func (p *Performer) run(ctx context.Context, step Step) error {
	switch step.Kind {
	case StepClick:
		return p.driver.Click(step.At)
	case StepMouseDown:
		return p.driver.MouseDown(step.At)
	case StepMouseUp:
		return p.driver.MouseUp(step.At)
	case StepMoveTo:
		return p.driver.MoveTo(step.At)
	case StepScroll:
		return p.driver.Scroll(step.Amount)
	case StepWait:
		return p.sleep(ctx, step.Wait)
	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
