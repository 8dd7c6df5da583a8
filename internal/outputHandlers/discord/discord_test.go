package discord

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExec struct {
	id, token string
	params    *discordgo.WebhookParams
	body      []byte
	err       error
}

func (f *fakeExec) WebhookExecute(id, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.id, f.token, f.params = id, token, data
	if len(data.Files) > 0 {
		f.body, _ = io.ReadAll(data.Files[0].Reader)
	}
	return nil, f.err
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := ParseWebhookURL("https://discord.com/api/webhooks/1234567890/abc-DEF_ghi")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", id)
	assert.Equal(t, "abc-DEF_ghi", token)

	for _, bad := range []string{"", "https://discord.com/api/channels/1", "https://discord.com/api/webhooks/123", "::"} {
		_, _, err := ParseWebhookURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestSendScreenshot(t *testing.T) {
	exec := &fakeExec{}
	w := &Webhook{id: "1", token: "tok", exec: exec, log: zap.NewNop(),
		now: func() time.Time { return time.UnixMilli(1720980000000) }}

	require.NoError(t, w.SendScreenshot(context.Background(), "AAPL", []byte("png-bytes")))

	assert.Equal(t, "1", exec.id)
	assert.Equal(t, "tok", exec.token)
	require.Len(t, exec.params.Files, 1)
	assert.Equal(t, "AAPL_1720980000000.png", exec.params.Files[0].Name)
	assert.Equal(t, "image/png", exec.params.Files[0].ContentType)
	assert.Equal(t, []byte("png-bytes"), exec.body)

	exec.err = errors.New("HTTP 429")
	assert.ErrorContains(t, w.SendScreenshot(context.Background(), "AAPL", nil), "429")
}

func TestNewWebhook(t *testing.T) {
	w, err := NewWebhook("https://discord.com/api/webhooks/42/secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", w.id)

	_, err = NewWebhook("https://example.com/hook", nil)
	assert.Error(t, err)
}
