package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/config"
	"github.com/AlfredBerg/optionstrip-monitor/internal/monitor"
	"github.com/AlfredBerg/optionstrip-monitor/internal/outputHandlers/discord"
	"github.com/AlfredBerg/optionstrip-monitor/internal/outputHandlers/mqtt"
	"github.com/AlfredBerg/optionstrip-monitor/internal/outputHandlers/sqlite"
	"github.com/AlfredBerg/optionstrip-monitor/internal/page"
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Open the options page and publish new rows (default command)",
	PreRunE: bindWatchFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd.Context())
	},
}

// flag name -> config key
var watchFlagKeys = map[string]string{
	"url":            "page.url",
	"headless":       "page.headless",
	"user-data-dir":  "page.user_data_dir",
	"autostart":      "monitor.autostart",
	"screenshots":    "monitor.screenshots",
	"enforce-window": "window.enforce",
	"broker":         "mqtt.broker",
	"topic":          "mqtt.topic",
	"journal":        "journal.path",
}

func addWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("url", "u", "", "The page holding the options table.")
	f.Bool("headless", false, "Run the browser without a window. Logging in to the site needs a saved profile then.")
	f.String("user-data-dir", "", "Browser profile directory, keeps the site login between runs.")
	f.Bool("autostart", false, "Start monitoring as soon as the page is loaded instead of waiting for the button.")
	f.Bool("screenshots", false, "Post a screenshot of every published row to the Discord webhook.")
	f.Bool("enforce-window", false, "Skip rows whose time is more than the tolerance away from now.")
	f.StringP("broker", "b", "", "MQTT broker url, e.g. wss://host:8084/mqtt")
	f.StringP("topic", "t", "", "MQTT topic for row envelopes.")
	f.String("journal", "", "Also append every envelope to this sqlite file.")
}

func bindWatchFlags(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := watchFlagKeys[f.Name]; ok && err == nil {
			err = viper.BindPFlag(key, f)
		}
	})
	return err
}

func watch(ctx context.Context) error {
	c, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if c.Page.URL == "" {
		return errors.New("no page url, set page.url or --url")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter, err := timewindow.Load(c.Window.Timezone, c.Window.Tolerance, nil)
	if err != nil {
		return err
	}

	publisher, closePublishers, err := buildPublishers(ctx, c, logger, false)
	if err != nil {
		return err
	}
	defer closePublishers()

	browser, cleanup, err := page.Launch(page.BrowserOptions{
		Headless:    c.Page.Headless,
		Devtools:    c.Page.Devtools,
		Bin:         c.Page.Bin,
		UserDataDir: c.Page.UserDataDir,
	}, logger.Named("browser"))
	if err != nil {
		return err
	}
	defer cleanup()

	job := page.Job{
		Browser:    browser,
		Target:     c.Page.URL,
		NavTimeout: c.Page.NavTimeout,
		FocusEvery: 30 * time.Second,
		Logger:     logger.Named("page"),
	}
	p, err := job.Open(ctx)
	if err != nil {
		return err
	}
	logger.Info("page opened", zap.String("url", c.Page.URL))

	table := &page.Table{Page: p, RowSelector: c.Page.RowSelector, TimeSelector: c.Page.TimeSelector}
	opts := monitorOptions(c)
	monOpts := []monitor.Option{monitor.WithOptions(opts), monitor.WithLogger(logger.Named("monitor"))}
	if c.Monitor.Screenshots {
		if c.Discord.WebhookURL == "" {
			return errors.New("screenshots need discord.webhook_url")
		}
		hook, err := discord.NewWebhook(c.Discord.WebhookURL, logger.Named("discord"))
		if err != nil {
			return err
		}
		monOpts = append(monOpts, monitor.WithScreenshots(hook))
	}
	mon := monitor.New(table, publisher, filter, monOpts...)
	ctl := &controller{mon: mon, filter: filter, log: logger}

	if c.Page.Controls {
		controls, err := page.InstallControls(ctx, p, ctl, logger.Named("controls"))
		if err != nil {
			return err
		}
		defer controls.Close()
		mon.OnStateChange = func(running bool) {
			go controls.SetRunning(ctx, running)
		}
	}

	if c.Monitor.Autostart {
		ctl.Toggle(ctx)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	logger.Info("ready; use the page button, SIGUSR1 to toggle monitoring or SIGUSR2 to test the time window")
	for {
		select {
		case <-ctx.Done():
			shutdown(mon)
			logger.Info("shutting down")
			return nil
		case sig := <-sigs:
			if sig == syscall.SIGUSR1 {
				ctl.Toggle(ctx)
			} else {
				ctl.SelfTest()
			}
		}
	}
}

// shutdown stops monitoring and waits for the loop to finish its row. The
// signal context may already have ended the session, so the wait does not
// depend on Running.
func shutdown(mon *monitor.Monitor) {
	_ = mon.Stop()
	if s := mon.Session(); s != nil {
		<-s.Done()
	}
}

func monitorOptions(c config.Config) monitor.Options {
	return monitor.Options{
		Topic:               c.MQTT.Topic,
		Source:              c.MQTT.Source,
		PassInterval:        c.Monitor.PassInterval,
		PublishDelay:        c.Monitor.PublishDelay,
		RetryDelay:          c.Monitor.RetryDelay,
		DiagnosticsInterval: c.Monitor.DiagnosticsInterval,
		EnforceWindow:       c.Window.Enforce,
		Screenshots:         c.Monitor.Screenshots,
	}
}

// buildPublishers connects MQTT and, when configured, the sqlite journal.
// With await set it blocks until the broker accepted the connection.
func buildPublishers(ctx context.Context, c config.Config, logger *zap.Logger, await bool) (monitor.Publisher, func(), error) {
	if c.MQTT.Broker == "" {
		return nil, nil, errors.New("no mqtt broker, set mqtt.broker or --broker")
	}
	broker := mqtt.New(mqtt.Config{
		Broker:         c.MQTT.Broker,
		Username:       c.MQTT.Username,
		Password:       c.MQTT.Password,
		ClientPrefix:   c.MQTT.ClientPrefix,
		KeepAlive:      c.MQTT.KeepAlive,
		ConnectTimeout: c.MQTT.ConnectTimeout,
		ReconnectDelay: c.MQTT.ReconnectDelay,
		PublishTimeout: c.MQTT.PublishTimeout,
	}, logger.Named("mqtt"))
	if err := broker.Connect(ctx); err != nil {
		return nil, nil, err
	}
	closeBroker := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := broker.Close(ctx); err != nil {
			logger.Warn("closing mqtt connection", zap.Error(err))
		}
	}
	if await {
		awaitCtx, cancel := context.WithTimeout(ctx, c.MQTT.ConnectTimeout+c.MQTT.ReconnectDelay)
		err := broker.AwaitConnection(awaitCtx)
		cancel()
		if err != nil {
			closeBroker()
			return nil, nil, err
		}
	}

	if c.Journal.Path == "" {
		return broker, closeBroker, nil
	}

	journal := &sqlite.Journal{Database: c.Journal.Path, Session: time.Now().Format(time.RFC3339), Logger: logger.Named("journal")}
	if err := journal.Init(); err != nil {
		closeBroker()
		return nil, nil, err
	}
	closeAll := func() {
		if err := journal.Cleanup(); err != nil {
			logger.Warn("closing journal", zap.Error(err))
		}
		closeBroker()
	}
	return monitor.MultiPublisher{broker, journal}, closeAll, nil
}
