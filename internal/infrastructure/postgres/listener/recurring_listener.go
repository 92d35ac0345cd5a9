package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	applog "fintrack/internal/shared/log"
)

var errInvalidUser = errors.New("notification has no user id")

const (
	ChannelRecurringDue = "recurring_due"
	reconnectInterval   = 5 * time.Second
	pingInterval        = 90 * time.Second
)

// DueNotification is the payload the recurring_templates insert trigger
// sends when a template is created already due.
type DueNotification struct {
	UserID     int64  `json:"user_id"`
	TemplateID string `json:"template_id"`
	NextDate   string `json:"next_date"`
}

// DueHandler is called once per notification. It must not block for long.
type DueHandler func(ctx context.Context, userID int64, asOf civil.Date)

// RecurringListener listens for PostgreSQL notifications about newly due
// recurring templates so they can be materialized without waiting for the
// next scheduled run.
type RecurringListener struct {
	connStr    string
	handle     DueHandler
	today      func() civil.Date
	logger     zerolog.Logger
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewRecurringListener(connStr string, handle DueHandler, logger zerolog.Logger) *RecurringListener {
	return &RecurringListener{
		connStr:    connStr,
		handle:     handle,
		today:      func() civil.Date { return civil.DateOf(time.Now()) },
		logger:     applog.Component(logger, applog.ComponentListener),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *RecurringListener) Start(ctx context.Context) {
	go l.listen(ctx)
	l.logger.Info().Str("channel", ChannelRecurringDue).Msg("notification listener started")
}

// Stop shuts the listener down and waits for it to exit.
func (l *RecurringListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	l.logger.Info().Msg("notification listener stopped")
}

func (l *RecurringListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			l.logger.Info().Msg("reconnecting to PostgreSQL for notifications")
		}
	}
}

func (l *RecurringListener) connectAndListen(ctx context.Context) {
	pl := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.logger.Debug().Msg("connected to notification channel")
		case pq.ListenerEventDisconnected:
			l.logger.Warn().Err(err).Msg("disconnected from notification channel")
		case pq.ListenerEventReconnected:
			l.logger.Info().Msg("reconnected to notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			l.logger.Error().Err(err).Msg("notification connection attempt failed")
		}
	})
	defer pl.Close()

	if err := pl.Listen(ChannelRecurringDue); err != nil {
		l.logger.Error().Err(err).Str("channel", ChannelRecurringDue).Msg("failed to listen")
		return
	}

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-pl.Notify:
			if n == nil {
				// connection lost; reconnect
				return
			}
			l.handleNotification(ctx, n)
		case <-time.After(pingInterval):
			go func() {
				if err := pl.Ping(); err != nil {
					l.logger.Warn().Err(err).Msg("listener ping failed")
				}
			}()
		}
	}
}

func (l *RecurringListener) handleNotification(ctx context.Context, n *pq.Notification) {
	payload, err := parseDueNotification(n.Extra)
	if err != nil {
		l.logger.Warn().Err(err).Str("payload", n.Extra).Msg("failed to parse notification payload")
		return
	}

	l.logger.Debug().
		Int64(applog.FieldUserID, payload.UserID).
		Str(applog.FieldTemplateID, payload.TemplateID).
		Msg("recurring template due")
	l.handle(ctx, payload.UserID, l.today())
}

func parseDueNotification(extra string) (DueNotification, error) {
	var p DueNotification
	if err := json.Unmarshal([]byte(extra), &p); err != nil {
		return DueNotification{}, err
	}
	if p.UserID <= 0 {
		return DueNotification{}, errInvalidUser
	}
	return p, nil
}
