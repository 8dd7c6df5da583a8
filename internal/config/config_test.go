package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestDefaults(t *testing.T) {
	c, err := Load(newViper())
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "#optionStrip .k-master-row", c.Page.RowSelector)
	assert.Equal(t, "td.time", c.Page.TimeSelector)
	assert.Equal(t, time.Second, c.Monitor.PassInterval)
	assert.Equal(t, 3*time.Second, c.Monitor.PublishDelay)
	assert.Equal(t, 10*time.Minute, c.Window.Tolerance)
	assert.Equal(t, "lis-msg/black_box", c.MQTT.Topic)
	assert.Equal(t, uint16(60), c.MQTT.KeepAlive)
	assert.False(t, c.Window.Enforce)
}

func TestYAMLAndEnvOverrides(t *testing.T) {
	t.Setenv("OPTIONSTRIP_MQTT_BROKER", "wss://broker.example:8084/mqtt")
	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
page:
  url: https://example.com/options
monitor:
  publish_delay: 500ms
window:
  enforce: true
`)))

	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/options", c.Page.URL)
	assert.Equal(t, 500*time.Millisecond, c.Monitor.PublishDelay)
	assert.True(t, c.Window.Enforce)
	assert.Equal(t, "wss://broker.example:8084/mqtt", c.MQTT.Broker)
}

func TestValidate(t *testing.T) {
	v := newViper()
	v.Set("page.row_selector", "")
	v.Set("window.timezone", "Mars/Olympus")
	v.Set("monitor.pass_interval", "0s")

	c, err := Load(v)
	require.NoError(t, err)

	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row_selector")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "pass_interval")
}
