package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
)

const ChangeChannel = "reservation_changes"

// Refresher receives the changes heard on the channel.
type Refresher interface {
	Publish(ctx context.Context, accountIDs ...string)
	RefreshAll(ctx context.Context)
}

// ChangeFeed shares account changes between instances through Postgres
// LISTEN/NOTIFY.
type ChangeFeed struct {
	DB      *sql.DB
	connStr string
}

func NewChangeFeed(db *sql.DB, connStr string) *ChangeFeed {
	return &ChangeFeed{DB: db, connStr: connStr}
}

// Publish emits a notification carrying the comma-separated account ids.
func (f *ChangeFeed) Publish(ctx context.Context, accountIDs ...string) {
	if len(accountIDs) == 0 {
		return
	}
	payload := strings.Join(accountIDs, ",")
	if _, err := f.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, payload); err != nil {
		slog.Error("could not publish change notification", "accounts", payload, "error", err)
	}
}

// Listen forwards notifications to sink until ctx is done.
func (f *ChangeFeed) Listen(ctx context.Context, sink Refresher) error {
	listener := pq.NewListener(f.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("change listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", ChangeChannel, err)
	}
	slog.Info("listening for change notifications", "channel", ChangeChannel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Reconnected: anything could have been missed.
				sink.RefreshAll(ctx)
				continue
			}
			sink.Publish(ctx, ParseChangePayload(n.Extra)...)
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					slog.Warn("change listener ping failed", "error", err)
				}
			}()
		}
	}
}

func ParseChangePayload(payload string) []string {
	var ids []string
	for _, id := range strings.Split(payload, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
