package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/model"
	"github.com/spf13/viper"
)

const EnvPrefix = "OPTIONSTRIP"

type Config struct {
	Page    Page    `mapstructure:"page"`
	Monitor Monitor `mapstructure:"monitor"`
	Window  Window  `mapstructure:"window"`
	MQTT    MQTT    `mapstructure:"mqtt"`
	Discord Discord `mapstructure:"discord"`
	Journal Journal `mapstructure:"journal"`
	Log     Log     `mapstructure:"log"`
}

type Page struct {
	URL          string        `mapstructure:"url"`
	RowSelector  string        `mapstructure:"row_selector"`
	TimeSelector string        `mapstructure:"time_selector"`
	Headless     bool          `mapstructure:"headless"`
	Devtools     bool          `mapstructure:"devtools"`
	Bin          string        `mapstructure:"bin"`
	UserDataDir  string        `mapstructure:"user_data_dir"`
	NavTimeout   time.Duration `mapstructure:"nav_timeout"`
	Controls     bool          `mapstructure:"controls"`
}

type Monitor struct {
	Autostart           bool          `mapstructure:"autostart"`
	PassInterval        time.Duration `mapstructure:"pass_interval"`
	PublishDelay        time.Duration `mapstructure:"publish_delay"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	DiagnosticsInterval time.Duration `mapstructure:"diagnostics_interval"`
	Screenshots         bool          `mapstructure:"screenshots"`
}

type Window struct {
	Timezone  string        `mapstructure:"timezone"`
	Tolerance time.Duration `mapstructure:"tolerance"`
	Enforce   bool          `mapstructure:"enforce"`
}

type MQTT struct {
	Broker         string        `mapstructure:"broker"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ClientPrefix   string        `mapstructure:"client_prefix"`
	Topic          string        `mapstructure:"topic"`
	Source         string        `mapstructure:"source"`
	KeepAlive      uint16        `mapstructure:"keepalive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type Discord struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type Journal struct {
	Path string `mapstructure:"path"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SetDefaults registers every key so that environment variables are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("page.url", "")
	v.SetDefault("page.row_selector", "#optionStrip .k-master-row")
	v.SetDefault("page.time_selector", "td.time")
	v.SetDefault("page.headless", false)
	v.SetDefault("page.devtools", false)
	v.SetDefault("page.bin", "")
	v.SetDefault("page.user_data_dir", "")
	v.SetDefault("page.nav_timeout", "60s")
	v.SetDefault("page.controls", true)

	v.SetDefault("monitor.autostart", false)
	v.SetDefault("monitor.pass_interval", "1s")
	v.SetDefault("monitor.publish_delay", "3s")
	v.SetDefault("monitor.retry_delay", "1s")
	v.SetDefault("monitor.diagnostics_interval", "30s")
	v.SetDefault("monitor.screenshots", false)

	v.SetDefault("window.timezone", "America/New_York")
	v.SetDefault("window.tolerance", "10m")
	v.SetDefault("window.enforce", false)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_prefix", "t3_listener")
	v.SetDefault("mqtt.topic", model.DefaultTopic)
	v.SetDefault("mqtt.source", model.DefaultSource)
	v.SetDefault("mqtt.keepalive", 60)
	v.SetDefault("mqtt.connect_timeout", "4s")
	v.SetDefault("mqtt.reconnect_delay", "5s")
	v.SetDefault("mqtt.publish_timeout", "10s")

	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("journal.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// BindEnv makes OPTIONSTRIP_MQTT_BROKER override mqtt.broker and so on.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// Validate checks what every command needs. The page URL and broker are
// checked by the commands that use them.
func (c Config) Validate() error {
	var errs []error
	if c.Page.RowSelector == "" {
		errs = append(errs, errors.New("page.row_selector is empty"))
	}
	if c.Page.TimeSelector == "" {
		errs = append(errs, errors.New("page.time_selector is empty"))
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, errors.New("mqtt.topic is empty"))
	}
	if c.Monitor.PassInterval <= 0 {
		errs = append(errs, errors.New("monitor.pass_interval must be positive"))
	}
	if c.Monitor.PublishDelay < 0 || c.Monitor.RetryDelay < 0 {
		errs = append(errs, errors.New("monitor delays must not be negative"))
	}
	if c.Window.Tolerance <= 0 {
		errs = append(errs, errors.New("window.tolerance must be positive"))
	}
	if _, err := time.LoadLocation(c.Window.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("window.timezone: %w", err))
	}
	return errors.Join(errs...)
}
