package action

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogDriver is a dry-run Driver: it tracks a virtual pointer and logs each
// input it would synthesize.
type LogDriver struct {
	mu     sync.Mutex
	pos    Point
	logger zerolog.Logger
}

func NewLogDriver(logger zerolog.Logger, start Point) *LogDriver {
	return &LogDriver{pos: start, logger: logger}
}

func (d *LogDriver) Position() (Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos, nil
}

func (d *LogDriver) Click(at Point) error {
	d.moveAndLog("click", at)
	return nil
}

func (d *LogDriver) MouseDown(at Point) error {
	d.moveAndLog("mouse_down", at)
	return nil
}

func (d *LogDriver) MouseUp(at Point) error {
	d.moveAndLog("mouse_up", at)
	return nil
}

func (d *LogDriver) MoveTo(at Point) error {
	d.moveAndLog("move_to", at)
	return nil
}

func (d *LogDriver) Scroll(amount int) error {
	d.mu.Lock()
	at := d.pos
	d.mu.Unlock()
	d.logger.Info().Str("input", "scroll").Int("amount", amount).Int("x", at.X).Int("y", at.Y).Msg("synthesized input")
	return nil
}

// SetPosition moves the virtual pointer without logging, standing in for the user moving the mouse.
func (d *LogDriver) SetPosition(p Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = p
}

func (d *LogDriver) moveAndLog(input string, at Point) {
	d.mu.Lock()
	d.pos = at
	d.mu.Unlock()
	d.logger.Info().Str("input", input).Int("x", at.X).Int("y", at.Y).Msg("synthesized input")
}
