// Package imapsync is the IMAP sync worker: it authenticates to Gmail's
// IMAP server over XOAUTH2, fetches messages since a floor date in
// descending-UID pages, and idles for new-mail notifications, grounded on
// original_source's sync/imap.rs connection lifecycle.
package imapsync

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
)

const (
	gmailIMAPAddr = "imap.gmail.com:993"
	authTimeout   = 30 * time.Second
	dialTimeout   = 30 * time.Second
)

// Conn wraps an authenticated IMAP session for one account.
type Conn struct {
	client    *imapclient.Client
	accountID string
	tap       *gmailExtensionTap

	mailboxMu     sync.Mutex
	onMailboxData func()
}

// setMailboxHandler installs the callback invoked when the server reports
// an unsolicited mailbox change (EXISTS/RECENT), used by idleOnce to know
// when to end the current IDLE early. A nil handler disarms it.
func (c *Conn) setMailboxHandler(f func()) {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	c.onMailboxData = f
}

func (c *Conn) fireMailboxHandler() {
	c.mailboxMu.Lock()
	f := c.onMailboxData
	c.mailboxMu.Unlock()
	if f != nil {
		f()
	}
}

// ConnectAndAuthenticate dials imap.gmail.com:993 over TLS, waits for the
// server greeting before issuing any command (some servers misbehave if a
// command races the greeting), then authenticates via XOAUTH2 using a
// fresh access token from coordinator. limiter is acquired once, before
// dialing.
func ConnectAndAuthenticate(ctx context.Context, account *models.Account, coordinator *oauth.Coordinator, limiter *ratelimit.Limiter) (*Conn, error) {
	if err := limiter.Acquire(ctx); err != nil {
		return nil, geerrors.Imap(fmt.Sprintf("rate limit wait cancelled: %v", err))
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	rawConn, err := tls.DialWithDialer(dialer, "tcp", gmailIMAPAddr, &tls.Config{ServerName: "imap.gmail.com"})
	if err != nil {
		return nil, geerrors.Imap(fmt.Sprintf("dial %s: %v", gmailIMAPAddr, err))
	}

	tap := newGmailExtensionTap()
	conn := &Conn{accountID: account.ID, tap: tap}
	options := &imapclient.Options{
		DebugWriter: tap,
		UnilateralDataHandler: imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages != nil || data.Recent != nil {
					conn.fireMailboxHandler()
				}
			},
		},
	}
	// imapclient.New reads the server greeting as part of connection setup
	// before any command can be issued, satisfying the dialect quirk where
	// a command racing the greeting confuses some IMAP servers.
	client := imapclient.New(rawConn, options)
	conn.client = client
	if ctx.Err() != nil {
		client.Close()
		return nil, geerrors.Imap("connect cancelled before greeting")
	}

	accessToken, err := coordinator.GetValidToken(ctx, account.ID)
	if err != nil {
		client.Close()
		return nil, err
	}

	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	saslClient := sasl.NewXoauth2Client(account.ID, accessToken)
	authErr := make(chan error, 1)
	go func() { authErr <- client.Authenticate(saslClient) }()

	select {
	case err := <-authErr:
		if err != nil {
			client.Close()
			return nil, geerrors.TokenExpired(account.ID)
		}
	case <-authCtx.Done():
		client.Close()
		return nil, geerrors.Imap("authentication timed out")
	}

	logger.Info("imap authenticated", "account", account.ID)
	return conn, nil
}

// Close ends the IMAP session.
func (c *Conn) Close() error {
	return c.client.Close()
}

// selectInbox issues SELECT INBOX, used by both the historical fetch and
// the IDLE loop.
func (c *Conn) selectInbox(ctx context.Context) (*imap.SelectData, error) {
	data, err := c.client.Select("INBOX", nil).Wait()
	if err != nil {
		return nil, geerrors.Imap(fmt.Sprintf("SELECT INBOX: %v", err))
	}
	return data, nil
}
