package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("mqtt not connected")

type Config struct {
	Broker         string // e.g. "wss://host:8084/mqtt" or "tcp://localhost:1883"
	Username       string
	Password       string
	ClientPrefix   string
	KeepAlive      uint16
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	PublishTimeout time.Duration
}

type connection interface {
	AwaitConnection(ctx context.Context) error
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(ctx context.Context) error
}

// Publisher sends payloads with QoS 1 over a self-reconnecting connection.
// Payloads published while the link is down are dropped, not queued.
type Publisher struct {
	cfg      Config
	log      *zap.Logger
	clientID string

	mu        sync.RWMutex
	conn      connection
	connected bool
	cancel    context.CancelFunc
}

func New(cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{cfg: cfg, log: logger, clientID: ClientID(cfg.ClientPrefix)}
}

func ClientID(prefix string) string {
	id := uuid.NewString()[:8]
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Connect starts the connection manager. It does not wait for the broker;
// reconnects happen in the background for the lifetime of ctx.
func (p *Publisher) Connect(ctx context.Context) error {
	serverURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parsing broker url: %w", err)
	}
	if serverURL.Scheme == "" || serverURL.Host == "" {
		return fmt.Errorf("broker url %q needs a scheme and host", p.cfg.Broker)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return errors.New("mqtt publisher already connected")
	}

	reconnect := max(p.cfg.ReconnectDelay, time.Second)
	connCtx, cancel := context.WithCancel(ctx)
	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     p.cfg.KeepAlive,
		CleanStartOnInitialConnection: true,
		ConnectUsername:               p.cfg.Username,
		ConnectPassword:               []byte(p.cfg.Password),
		ConnectTimeout:                p.cfg.ConnectTimeout,
		ReconnectBackoff:              autopaho.NewExponentialBackoff(reconnect, 12*reconnect, reconnect, 2.0),

		OnConnectionUp: func(cm *autopaho.ConnectionManager, connack *paho.Connack) {
			p.setConnected(true)
			p.log.Info("connected to mqtt broker", zap.String("client_id", p.clientID), zap.String("username", p.cfg.Username))
		},
		OnConnectError: func(err error) {
			p.log.Warn("mqtt connect error", zap.Error(err))
		},

		ClientConfig: paho.ClientConfig{
			ClientID:           p.clientID,
			OnClientError:      p.onClientError,
			OnServerDisconnect: p.onServerDisconnect,
		},
	}

	cm, err := autopaho.NewConnection(connCtx, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("creating mqtt connection: %w", err)
	}
	p.conn = cm
	p.cancel = cancel
	return nil
}

// onClientError and onServerDisconnect both mean the link is gone; autopaho
// reconnects on its own and OnConnectionUp sets the flag again.
func (p *Publisher) onClientError(err error) {
	p.setConnected(false)
	p.log.Warn("mqtt connection lost, will reconnect", zap.Error(err))
}

func (p *Publisher) onServerDisconnect(d *paho.Disconnect) {
	p.setConnected(false)
	p.log.Warn("mqtt broker disconnected, will reconnect", zap.Uint8("reason", d.ReasonCode))
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil
}

// AwaitConnection blocks until the broker link is up or ctx ends.
func (p *Publisher) AwaitConnection(ctx context.Context) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("waiting for mqtt broker: %w", err)
	}
	p.setConnected(true)
	return nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.RLock()
	conn, connected := p.conn, p.connected
	p.mu.RUnlock()
	if conn == nil || !connected {
		return ErrNotConnected
	}

	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	_, err := conn.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	conn, cancel := p.conn, p.cancel
	p.conn, p.connected, p.cancel = nil, false, nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	if cancel != nil {
		defer cancel()
	}
	return conn.Disconnect(ctx)
}
