package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sent         []*paho.Publish
	err          error
	disconnected bool
}

func (f *fakeConn) AwaitConnection(ctx context.Context) error {
	return ctx.Err()
}

func (f *fakeConn) Publish(_ context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	f.sent = append(f.sent, p)
	return &paho.PublishResponse{}, f.err
}

func (f *fakeConn) Disconnect(context.Context) error {
	f.disconnected = true
	return nil
}

func TestPublishWithoutConnection(t *testing.T) {
	p := New(Config{}, nil)
	err := p.Publish(context.Background(), "lis-msg/black_box", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPublishWhileLinkDown(t *testing.T) {
	conn := &fakeConn{}
	p := New(Config{}, nil)
	p.conn = conn

	err := p.Publish(context.Background(), "t", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, conn.sent)
}

func TestPublishQoS1(t *testing.T) {
	conn := &fakeConn{}
	p := New(Config{}, nil)
	p.conn = conn
	p.setConnected(true)

	require.NoError(t, p.Publish(context.Background(), "lis-msg/black_box", []byte(`{"data":[]}`)))
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "lis-msg/black_box", conn.sent[0].Topic)
	assert.Equal(t, byte(1), conn.sent[0].QoS)
	assert.JSONEq(t, `{"data":[]}`, string(conn.sent[0].Payload))

	conn.err = errors.New("timeout")
	assert.ErrorContains(t, p.Publish(context.Background(), "x", nil), "timeout")

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, conn.disconnected)
	assert.False(t, p.Connected())
}

func TestAwaitConnection(t *testing.T) {
	p := New(Config{}, nil)
	assert.ErrorIs(t, p.AwaitConnection(context.Background()), ErrNotConnected)

	p.conn = &fakeConn{}
	require.NoError(t, p.AwaitConnection(context.Background()))
	assert.True(t, p.Connected())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.AwaitConnection(ctx), context.Canceled)
}

func TestConnectionDropClearsConnected(t *testing.T) {
	conn := &fakeConn{}
	p := New(Config{}, nil)
	p.conn = conn

	p.setConnected(true)
	p.onClientError(errors.New("read: connection reset by peer"))
	assert.False(t, p.Connected())
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil), ErrNotConnected)

	p.setConnected(true)
	p.onServerDisconnect(&paho.Disconnect{ReasonCode: 0x8B})
	assert.False(t, p.Connected())
	assert.Empty(t, conn.sent)
}

func TestConnectRejectsBadBroker(t *testing.T) {
	for _, broker := range []string{"", "localhost", "://bad"} {
		p := New(Config{Broker: broker}, nil)
		assert.Error(t, p.Connect(context.Background()), broker)
	}
}

func TestClientID(t *testing.T) {
	id := ClientID("t3_listener")
	assert.True(t, strings.HasPrefix(id, "t3_listener_"))
	assert.Len(t, id, len("t3_listener_")+8)
	assert.NotEqual(t, id, ClientID("t3_listener"))
	assert.Len(t, ClientID(""), 8)
}
