package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-finance/config"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pingInterval = 90 * time.Second

var ErrBadPayload = errors.New("malformed change notification")

type Publisher interface {
	Publish(change Change)
}

// Listener relays NOTIFY payloads from one channel to a Publisher.
type Listener struct {
	pl      *pq.Listener
	channel string
	hub     Publisher
	log     *zap.Logger
}

func NewListener(dsn string, cfg config.RealtimeConfig, hub Publisher, log *zap.Logger) (*Listener, error) {
	log = log.Named("realtime.listener")

	pl := pq.NewListener(dsn, cfg.MinReconnect, cfg.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Info("listening", zap.String("channel", cfg.Channel))
		case pq.ListenerEventDisconnected:
			log.Warn("connection lost", zap.Error(err))
		case pq.ListenerEventReconnected:
			log.Info("reconnected", zap.String("channel", cfg.Channel))
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("reconnect attempt failed", zap.Error(err))
		}
	})
	if err := pl.Listen(cfg.Channel); err != nil {
		pl.Close()
		return nil, fmt.Errorf("listening on %s: %w", cfg.Channel, err)
	}

	return &Listener{pl: pl, channel: cfg.Channel, hub: hub, log: log}, nil
}

// Run blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	defer l.pl.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.pl.Notify:
			// nil after a reconnect; anything sent meanwhile is lost
			if n == nil {
				continue
			}
			change, err := Decode(n.Extra)
			if err != nil {
				l.log.Warn("skipping notification", zap.Error(err), zap.String("payload", n.Extra))
				continue
			}
			l.hub.Publish(change)
		case <-time.After(pingInterval):
			go func() {
				if err := l.pl.Ping(); err != nil {
					l.log.Warn("ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// Decode parses a trigger payload.
func Decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if c.CompanyID == "" || c.Collection == "" {
		return Change{}, ErrBadPayload
	}
	return c, nil
}
