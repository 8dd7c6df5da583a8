package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("journal is closed")

type entry struct {
	topic   string
	payload string
	at      time.Time
}

// Journal keeps a copy of every published envelope. It is write only, nothing
// reads it back to decide what has been seen.
type Journal struct {
	Database string
	Session  string
	Logger   *zap.Logger

	db      *sql.DB
	entries chan entry
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func (o *Journal) Init() error {
	if o.Database == "" {
		return errors.New("sqlite database file not set")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", o.Database)
	if err != nil {
		return fmt.Errorf("opening %s: %w", o.Database, err)
	}
	o.db = db

	createEnv := "CREATE TABLE IF NOT EXISTS envelopes (id integer not null primary key, session text, topic text, payload text, created_at integer);"
	if _, err = db.Exec(createEnv); err != nil {
		db.Close()
		return fmt.Errorf("failed to create table %q: %w", createEnv, err)
	}

	//Buffered channel as new rows can come in bursts
	o.entries = make(chan entry, 20)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		insertEnv := "INSERT into envelopes(session, topic, payload, created_at) values(?, ?, ?, ?);"
		for e := range o.entries {
			if _, err := db.Exec(insertEnv, o.Session, e.topic, e.payload, e.at.UnixMilli()); err != nil {
				o.Logger.Error("failed to insert envelope", zap.String("topic", e.topic), zap.Error(err))
			}
		}
	}()
	return nil
}

// Publish queues the payload for the writer goroutine. Safe for concurrent use.
func (o *Journal) Publish(ctx context.Context, topic string, payload []byte) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed || o.entries == nil {
		return ErrClosed
	}

	select {
	case o.entries <- entry{topic: topic, payload: string(payload), at: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup flushes queued entries and closes the database.
func (o *Journal) Cleanup() error {
	o.mu.Lock()
	if o.closed || o.entries == nil {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.entries)
	o.mu.Unlock()

	o.wg.Wait()
	return o.db.Close()
}
