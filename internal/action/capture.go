package action

import (
	"context"
	"time"
)

// Capturer reads the pointer position after a delay so the user can move the
// mouse to the target first.
type Capturer struct {
	driver Driver
	sleep  func(context.Context, time.Duration) error
}

func NewCapturer(driver Driver) *Capturer {
	return &Capturer{driver: driver, sleep: sleepContext}
}

func (c *Capturer) CaptureAfter(ctx context.Context, delay time.Duration) (Point, error) {
	if err := c.sleep(ctx, delay); err != nil {
		return Point{}, err
	}
	return c.driver.Position()
}
