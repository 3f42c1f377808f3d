package imapsync

import (
	"context"
	"time"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
)

// idleTimeout is how long one IDLE command is left outstanding before it's
// renewed, one minute under the 30-minute server-side inactivity limit.
const idleTimeout = 29 * time.Minute

// idleReconnectDelay is how long StartIdle sleeps before reconnecting
// after a connection error.
const idleReconnectDelay = 60 * time.Second

// NewMailNotifier is called once per IDLE cycle that ends with a mailbox
// change (EXISTS/RECENT), so the caller can trigger an incremental sync.
type NewMailNotifier func(accountID string)

// StartIdle runs the IDLE loop until ctx is cancelled: SELECT INBOX, enter
// IDLE, wait up to idleTimeout for a mailbox notification, end IDLE,
// repeat. Any error ends the current connection; the loop then sleeps
// idleReconnectDelay and obtains a fresh Conn from reconnect. Failed
// reconnects are retried the same way, without limit.
func StartIdle(ctx context.Context, accountID string, reconnect func(ctx context.Context) (*Conn, error), onNewMail NewMailNotifier) error {
	var conn *Conn
	for {
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return ctx.Err()
		}

		if conn == nil {
			var err error
			conn, err = reconnect(ctx)
			if err != nil {
				logger.Warn("imap idle: reconnect failed, backing off", "account", accountID, "error", err)
				if !sleepOrDone(ctx, idleReconnectDelay) {
					return ctx.Err()
				}
				continue
			}
		}

		if err := conn.idleOnce(ctx, accountID, onNewMail); err != nil {
			conn.Close()
			conn = nil
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("imap idle: session ended, reconnecting", "account", accountID, "error", err)
			if !sleepOrDone(ctx, idleReconnectDelay) {
				return ctx.Err()
			}
		}
	}
}

// idleOnce selects INBOX and blocks in IDLE until a mailbox notification
// arrives, idleTimeout elapses (a routine renewal, not an error), or ctx
// is cancelled.
func (c *Conn) idleOnce(ctx context.Context, accountID string, onNewMail NewMailNotifier) error {
	if _, err := c.selectInbox(ctx); err != nil {
		return err
	}

	notified := make(chan struct{}, 1)
	c.setMailboxHandler(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	defer c.setMailboxHandler(nil)

	cmd, err := c.client.Idle()
	if err != nil {
		return geerrors.Imap("IDLE: " + err.Error())
	}

	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	select {
	case <-notified:
		logger.Info("imap idle: mailbox changed", "account", accountID)
		onNewMail(accountID)
	case <-timer.C:
		// Routine renewal, not a notification.
	case <-ctx.Done():
		_ = cmd.Close()
		return ctx.Err()
	}

	if err := cmd.Close(); err != nil {
		return geerrors.Imap("IDLE DONE: " + err.Error())
	}
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
