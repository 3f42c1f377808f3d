package imapsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
)

// fetchOptions is the attribute set every FETCH in this package requests:
// the standard items go-imap models as typed fields, plus the Gmail
// X-GM-MSGID/X-GM-THRID extension atoms via the Raw escape hatch (see
// gmailExtensionItems in parse.go) so a single round trip carries
// everything needed to fix the known id-parsing bug.
var fetchOptions = &imap.FetchOptions{
	UID:         true,
	Flags:       true,
	Envelope:    true,
	BodySection: []*imap.FetchItemBodySection{{Peek: true}},
	Raw:         gmailExtensionItems,
}

// Progress reports batch-level sync progress back to the caller (the sync
// manager, which turns these into SyncProgress events).
type Progress struct {
	Fetched int
	Total   int
}

// FetchSince selects INBOX, searches for messages since the given floor
// date, and fetches them in UID-descending pages of batchSize, invoking
// onBatch after each page is parsed so callers can embed/upsert/emit
// progress incrementally rather than waiting for the whole backfill.
func (c *Conn) FetchSince(ctx context.Context, since time.Time, batchSize int, limiter *ratelimit.Limiter, onBatch func([]*models.Message) error) error {
	if _, err := c.selectInbox(ctx); err != nil {
		return err
	}

	if err := limiter.Acquire(ctx); err != nil {
		return geerrors.Imap(fmt.Sprintf("rate limit wait cancelled: %v", err))
	}
	criteria := &imap.SearchCriteria{
		Since: since,
	}
	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return geerrors.Imap(fmt.Sprintf("UID SEARCH SINCE %s: %v", since.Format("02-Jan-2006"), err))
	}

	uids := searchData.AllUIDs()
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })

	for start := 0; start < len(uids); start += batchSize {
		end := start + batchSize
		if end > len(uids) {
			end = len(uids)
		}
		page := uids[start:end]

		if err := limiter.Acquire(ctx); err != nil {
			return geerrors.Imap(fmt.Sprintf("rate limit wait cancelled: %v", err))
		}

		messages, err := c.fetchUIDs(ctx, page)
		if err != nil {
			return err
		}
		if err := onBatch(messages); err != nil {
			return err
		}
		logger.Info("imap batch fetched", "account", c.accountID, "fetched", len(messages), "remaining", len(uids)-end)
	}
	return nil
}

// fetchUIDs issues one UID FETCH for the given UIDs, requesting the
// standard attribute set together with the Gmail extension items. The
// server's X-GM-MSGID/X-GM-THRID values come back on the same untagged
// FETCH response line, captured by the DebugWriter tap installed in
// ConnectAndAuthenticate; parseMessage looks them up by UID afterward
// rather than defaulting them to the UID itself.
func (c *Conn) fetchUIDs(ctx context.Context, uids []imap.UID) ([]*models.Message, error) {
	set := imap.UIDSetNum(uids...)

	cmd := c.client.Fetch(set, fetchOptions)
	bufs, err := cmd.Collect()
	if err != nil {
		return nil, geerrors.Imap(fmt.Sprintf("UID FETCH: %v", err))
	}

	messages := make([]*models.Message, 0, len(bufs))
	for _, buf := range bufs {
		m, err := parseMessage(c.accountID, buf, c.tap)
		if err != nil {
			logger.Warn("failed to parse fetched message, skipping", "account", c.accountID, "uid", buf.UID, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}
