package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/actor"
	"github.com/rs/zerolog/log"
)

const (
	keyCtrlC = 0x03
	keyCtrlK = 0x0b
	keyCtrlP = 0x10
	keyCtrlT = 0x14
)

const rawHelp = "trigger key sends ready; ctrl-p capture point; ctrl-t toggle click/scroll; ctrl-k rebind trigger key; ctrl-c quit"
const lineHelp = "empty line or trigger key name sends ready; :capture, :mode, :hotkey <KEY>, :quit"

// console turns terminal input into host actions.
type console struct {
	host       *actor.Host
	configPath string
	quit       func()

	keys action.KeyDecoder

	mu        sync.Mutex
	rebinding bool
	captures  sync.WaitGroup
}

func newConsole(host *actor.Host, configPath string, quit func()) *console {
	return &console{host: host, configPath: configPath, quit: quit}
}

// runRaw reads key input from a terminal in raw mode.
func (c *console) runRaw(ctx context.Context, in io.Reader) {
	log.Info().Str("trigger_key", string(c.host.TriggerKey())).Msg(rawHelp)
	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := in.Read(buf)
		if n > 0 {
			c.handleInput(ctx, buf[:n])
		}
		if err != nil {
			c.quit()
			return
		}
	}
}

// runLines reads line commands, for stdin that is not a terminal.
func (c *console) runLines(ctx context.Context, in io.Reader) {
	log.Info().Str("trigger_key", string(c.host.TriggerKey())).Msg(lineHelp)
	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil && scanner.Scan() {
		c.handleLine(ctx, scanner.Text())
	}
}

// handleInput decodes one raw read.
func (c *console) handleInput(ctx context.Context, chunk []byte) {
	for _, ks := range c.keys.Decode(chunk) {
		if ks.Key != "" {
			c.handleKey(ks.Key)
			continue
		}
		c.handleControl(ctx, ks.Ctrl)
	}
}

func (c *console) handleControl(ctx context.Context, b byte) {
	switch b {
	case keyCtrlC:
		c.quit()
	case keyCtrlP:
		c.capture(ctx)
	case keyCtrlT:
		c.toggleMode()
	case keyCtrlK:
		c.mu.Lock()
		c.rebinding = true
		c.mu.Unlock()
		log.Info().Msg("press the new trigger key")
	}
}

func (c *console) handleLine(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	switch {
	case line == "":
		c.handleKey(action.DefaultTriggerKey)
	case fields[0] == ":quit":
		c.quit()
	case fields[0] == ":capture":
		c.capture(ctx)
	case fields[0] == ":mode":
		c.toggleMode()
	case fields[0] == ":hotkey":
		if len(fields) != 2 {
			log.Warn().Msg("usage: :hotkey <KEY>")
			return
		}
		key, err := action.ParseKey(fields[1])
		if err != nil {
			log.Warn().Err(err).Msg("hotkey unchanged")
			return
		}
		c.rebind(key)
	default:
		key, err := action.ParseKey(line)
		if err != nil {
			log.Warn().Err(err).Msg("ignored input")
			return
		}
		c.handleKey(key)
	}
}

func (c *console) handleKey(key action.Key) {
	c.mu.Lock()
	rebinding := c.rebinding
	c.rebinding = false
	c.mu.Unlock()
	if rebinding {
		c.rebind(key)
		return
	}
	if c.host.PressKey(key) {
		log.Info().Str("key", string(key)).Msg("ready sent")
	}
}

func (c *console) rebind(key action.Key) {
	c.host.SetTriggerKey(key)
	if err := SaveHotkey(c.configPath, key); err != nil {
		log.Error().Err(err).Msg("persist hotkey")
		return
	}
	log.Info().Str("trigger_key", string(key)).Msg("trigger key saved")
}

func (c *console) toggleMode() {
	exec := c.host.Executor()
	exec.SetMode(exec.Mode().Toggle())
}

func (c *console) capture(ctx context.Context) {
	if !c.host.Client().Connected() {
		log.Warn().Msg("capture refused while disconnected")
		return
	}
	c.captures.Add(1)
	go func() {
		defer c.captures.Done()
		if _, err := c.host.CapturePoint(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("capture point")
		}
	}()
}

// wait blocks until captures started by the console finish.
func (c *console) wait() {
	c.captures.Wait()
}
