package page

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

type BrowserOptions struct {
	Headless    bool
	Devtools    bool
	Bin         string
	UserDataDir string
}

// Launch starts a browser and connects to it. The returned cleanup closes the
// browser and removes the launcher's temporary profile.
func Launch(o BrowserOptions, logger *zap.Logger) (*rod.Browser, func(), error) {
	// Headless(false) lets the operator log in to the trading site in the
	// launched window. A user data dir keeps that login between runs.
	l := launcher.New().
		Headless(o.Headless).
		Devtools(o.Devtools)
	if o.Bin != "" {
		l = l.Bin(o.Bin)
	}
	if o.UserDataDir != "" {
		l = l.UserDataDir(o.UserDataDir)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}

	//Don't download files in the browser
	err = proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorDeny,
		BrowserContextID: browser.BrowserContextID,
	}.Call(browser)
	if err != nil {
		logger.Warn("failed denying downloads", zap.Error(err))
	}

	//Avoid alerts blocking the page and close popup tabs
	go browser.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		logger.Info("dismissing javascript dialog", zap.String("message", e.Message))
		_ = proto.PageHandleJavaScriptDialog{Accept: false, PromptText: ""}.Call(browser)
	},
		func(e *proto.PageWindowOpen) {
			logger.Info("new window opened, trying to close it", zap.String("url", e.URL))
			time.Sleep(time.Millisecond * 500)
			pages, err := browser.Pages()
			if err != nil {
				logger.Warn("failed getting pages in tab closer", zap.Error(err))
				return
			}
			for _, p := range pages {
				info, err := p.Info()
				if err != nil {
					logger.Warn("failed getting page info in tab closer", zap.Error(err))
					return
				}
				if info.URL == e.URL && info.OpenerID != "" {
					if err := p.Close(); err != nil {
						logger.Warn("failed closing popup", zap.Error(err))
					}
				}
			}
		},
	)()

	cleanup := func() {
		if err := browser.Close(); err != nil {
			logger.Warn("closing browser", zap.Error(err))
		}
		l.Cleanup()
	}
	return browser, cleanup, nil
}
