package page

import (
	"context"
	"fmt"

	"github.com/AlfredBerg/optionstrip-monitor/internal/js"
	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

const binding = "__optionstripControl"

// Handler receives button actions. Calls happen on their own goroutine.
type Handler interface {
	Toggle(ctx context.Context)
	SelfTest()
}

// Controls is the in-page toggle button.
type Controls struct {
	page    *rod.Page
	handler Handler
	log     *zap.Logger
	stop    []func() error
}

// InstallControls exposes the binding, injects the button now and on every
// future document of the page.
func InstallControls(ctx context.Context, page *rod.Page, h Handler, logger *zap.Logger) (*Controls, error) {
	c := &Controls{page: page, handler: h, log: logger}

	stopExpose, err := page.Expose(binding, func(arg gson.JSON) (interface{}, error) {
		action := arg.Get("action").Str()
		// The binding callback runs on rod's event loop; anything that talks
		// back to the page has to happen elsewhere.
		go c.dispatch(ctx, action)
		return action, nil
	})
	if err != nil {
		return nil, fmt.Errorf("exposing %s: %w", binding, err)
	}
	c.stop = append(c.stop, stopExpose)

	removeScript, err := page.EvalOnNewDocument(fmt.Sprintf("(%s)(%q)", js.INSTALL_CONTROLS, binding))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("registering controls script: %w", err)
	}
	c.stop = append(c.stop, removeScript)

	if _, err := page.Context(ctx).Eval(js.INSTALL_CONTROLS, binding); err != nil {
		c.Close()
		return nil, fmt.Errorf("injecting controls: %w", err)
	}
	return c, nil
}

func (c *Controls) dispatch(ctx context.Context, action string) {
	switch action {
	case "toggle":
		c.handler.Toggle(ctx)
	case "selftest":
		c.handler.SelfTest()
	default:
		c.log.Warn("unknown control action", zap.String("action", action))
	}
}

// SetRunning repaints the button.
func (c *Controls) SetRunning(ctx context.Context, running bool) {
	if _, err := c.page.Context(ctx).Eval(js.SET_BUTTON_STATE, running); err != nil {
		c.log.Warn("failed updating control button", zap.Error(err))
	}
}

func (c *Controls) Close() {
	for _, stop := range c.stop {
		if err := stop(); err != nil {
			c.log.Debug("removing control hook", zap.Error(err))
		}
	}
	c.stop = nil
}
