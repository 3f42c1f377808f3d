package syncmanager

import (
	"context"
	"sync"
	"time"

	"github.com/jamiequint/groundeffect/internal/calsync"
	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/embedding"
	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/imapsync"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
)

// eventBusCapacity matches original_source's mpsc(1000) sync-event channel.
const eventBusCapacity = 1000

// recentBackfillWindow is how far back the first phase of an initial sync
// reaches before handing off to the full calendar phase, per spec.md §4.9.
const recentBackfillWindow = 90 * 24 * time.Hour

// imapBatchSize is the page size passed to imapsync.Conn.FetchSince.
const imapBatchSize = 50

// Manager owns per-account sync state, the IMAP/Calendar workers, and the
// event bus every sync pass publishes to, grounded on original_source's
// sync/mod.rs SyncManager.
type Manager struct {
	store       *columnstore.Store
	coordinator *oauth.Coordinator
	embedder    embedding.Provider
	limiter     *ratelimit.Limiter

	mu     sync.RWMutex
	states map[string]*AccountSyncState

	events chan SyncEvent
}

// New builds a Manager. The embedder may be nil if degraded (BM25-only)
// mode is in effect; UpsertEmail/UpsertEvents skip the vector column when
// an embedding call fails or returns embedding.ErrNoVectorProvider.
func New(store *columnstore.Store, coordinator *oauth.Coordinator, embedder embedding.Provider, limiter *ratelimit.Limiter) *Manager {
	return &Manager{
		store:       store,
		coordinator: coordinator,
		embedder:    embedder,
		limiter:     limiter,
		states:      make(map[string]*AccountSyncState),
		events:      make(chan SyncEvent, eventBusCapacity),
	}
}

// Events returns the event bus for consumers (the progress writer, any
// reactive trigger) to drain. Never closed during normal operation.
func (m *Manager) Events() <-chan SyncEvent { return m.events }

func (m *Manager) publish(evt SyncEvent) {
	evt.At = time.Now()
	select {
	case m.events <- evt:
	default:
		logger.Warn("sync event bus full, dropping event", "kind", evt.Kind, "account", evt.AccountID)
	}
}

func (m *Manager) stateFor(accountID string) *AccountSyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[accountID]
	if !ok {
		st = newAccountSyncState()
		m.states[accountID] = st
	}
	return st
}

// State returns a copy of accountID's current sync state for read-only
// consumers (get_sync_status), or nil if the account has no known state.
func (m *Manager) State(accountID string) *AccountSyncState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[accountID]
	if !ok {
		return nil
	}
	cp := *st
	return &cp
}

// InitAccount verifies the account's tokens are usable, refreshing them if
// they're already expired, and emits AuthRequired if refresh fails.
func (m *Manager) InitAccount(ctx context.Context, account *models.Account) error {
	if _, err := m.coordinator.GetValidToken(ctx, account.ID); err != nil {
		st := m.stateFor(account.ID)
		m.mu.Lock()
		st.LastError = err.Error()
		m.mu.Unlock()
		m.publish(SyncEvent{Kind: EventAuthRequired, AccountID: account.ID})
		return err
	}
	return nil
}

// InitialSync runs the two-phase first-time backfill: a 90-day-bounded
// email fetch+embed+upsert, then a full calendar sync, emitting
// SyncStarted/SyncCompleted around each phase.
func (m *Manager) InitialSync(ctx context.Context, account *models.Account) error {
	st := m.stateFor(account.ID)

	m.mu.Lock()
	st.IsSyncing = true
	st.InitialSync = InitialSyncProgress{Phase: PhaseEmail, StartedAt: time.Now(), EstimatedTotal: account.EstimatedTotal}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		st.IsSyncing = false
		m.mu.Unlock()
	}()

	since := time.Now().Add(-recentBackfillWindow)
	if account.SyncSinceFloor != nil && account.SyncSinceFloor.After(since) {
		since = *account.SyncSinceFloor
	}

	m.publish(SyncEvent{Kind: EventSyncStarted, AccountID: account.ID, SyncKind: SyncKindEmail})
	emailCount, err := m.syncEmail(ctx, account, since)
	if err != nil {
		m.recordError(st, err)
		return err
	}
	m.publish(SyncEvent{Kind: EventSyncCompleted, AccountID: account.ID, SyncKind: SyncKindEmail, Count: emailCount})

	m.mu.Lock()
	st.InitialSync.Phase = PhaseCalendar
	m.mu.Unlock()

	m.publish(SyncEvent{Kind: EventSyncStarted, AccountID: account.ID, SyncKind: SyncKindCalendar})
	eventCount, err := m.syncCalendar(ctx, account, time.Time{})
	if err != nil {
		m.recordError(st, err)
		return err
	}
	m.publish(SyncEvent{Kind: EventSyncCompleted, AccountID: account.ID, SyncKind: SyncKindCalendar, Count: eventCount})

	m.mu.Lock()
	st.InitialSync.Phase = PhaseDone
	m.mu.Unlock()
	return nil
}

// TriggerSync runs an incremental sync of kind for every listed account,
// anchored at the account's last_sync_<kind> timestamp (falling back to
// one hour ago when no prior sync is recorded).
func (m *Manager) TriggerSync(ctx context.Context, accounts []*models.Account, kind SyncKind) {
	for _, account := range accounts {
		if account.Status != models.AccountActive {
			continue
		}

		st := m.stateFor(account.ID)
		m.mu.Lock()
		if st.IsSyncing {
			m.mu.Unlock()
			continue
		}
		st.IsSyncing = true
		m.mu.Unlock()

		floor := time.Now().Add(-time.Hour)
		var last *time.Time
		if kind == SyncKindEmail {
			last = account.LastSyncEmail
		} else {
			last = account.LastSyncCalendar
		}
		if last != nil {
			floor = *last
		}

		m.publish(SyncEvent{Kind: EventSyncStarted, AccountID: account.ID, SyncKind: kind})

		var count int
		var err error
		if kind == SyncKindEmail {
			count, err = m.syncEmail(ctx, account, floor)
		} else {
			count, err = m.syncCalendar(ctx, account, floor)
		}

		m.mu.Lock()
		st.IsSyncing = false
		if err != nil {
			st.LastError = err.Error()
		} else {
			now := time.Now()
			if kind == SyncKindEmail {
				st.LastSyncEmail = &now
			} else {
				st.LastSyncCalendar = &now
			}
		}
		m.mu.Unlock()

		if err != nil {
			m.publish(SyncEvent{Kind: EventSyncError, AccountID: account.ID, ErrorText: err.Error()})
			continue
		}
		m.publish(SyncEvent{Kind: EventSyncCompleted, AccountID: account.ID, SyncKind: kind, Count: count})
	}
}

// ExtendSync runs an email sync anchored at an explicit floor rather than
// the account's last_sync_email, used by the extend_sync_range tool to
// widen a backfill further into the past than the original initial sync
// reached.
func (m *Manager) ExtendSync(ctx context.Context, account *models.Account, since time.Time) (int, error) {
	st := m.stateFor(account.ID)
	m.mu.Lock()
	if st.IsSyncing {
		m.mu.Unlock()
		return 0, geerrors.Sync(account.ID, "a sync is already in progress for this account")
	}
	st.IsSyncing = true
	m.mu.Unlock()

	m.publish(SyncEvent{Kind: EventSyncStarted, AccountID: account.ID, SyncKind: SyncKindEmail})
	count, err := m.syncEmail(ctx, account, since)

	m.mu.Lock()
	st.IsSyncing = false
	if err != nil {
		st.LastError = err.Error()
	} else {
		now := time.Now()
		st.LastSyncEmail = &now
	}
	m.mu.Unlock()

	if err != nil {
		m.publish(SyncEvent{Kind: EventSyncError, AccountID: account.ID, ErrorText: err.Error()})
		return 0, err
	}
	m.publish(SyncEvent{Kind: EventSyncCompleted, AccountID: account.ID, SyncKind: SyncKindEmail, Count: count})
	return count, nil
}

func (m *Manager) recordError(st *AccountSyncState, err error) {
	m.mu.Lock()
	st.LastError = err.Error()
	m.mu.Unlock()
}

// syncEmail connects, fetches everything since floor, embeds and upserts
// each batch, and returns the number of messages ingested. A token-refresh
// failure surfaces as AuthRequired and aborts the pass (spec.md §7); a
// storage failure also aborts the pass.
func (m *Manager) syncEmail(ctx context.Context, account *models.Account, floor time.Time) (int, error) {
	conn, err := imapsync.ConnectAndAuthenticate(ctx, account, m.coordinator, m.limiter)
	if err != nil {
		if ge, ok := err.(*geerrors.Error); ok && ge.RequiresReauth() {
			m.publish(SyncEvent{Kind: EventAuthRequired, AccountID: account.ID})
		}
		return 0, err
	}
	defer conn.Close()

	total := 0
	err = conn.FetchSince(ctx, floor, imapBatchSize, m.limiter, func(messages []*models.Message) error {
		for _, msg := range messages {
			if err := m.embedAndUpsertEmail(ctx, msg); err != nil {
				return err
			}
			m.publish(SyncEvent{Kind: EventNewEmail, AccountID: account.ID, EmailID: msg.ID})
		}
		total += len(messages)

		st := m.stateFor(account.ID)
		m.mu.Lock()
		st.EmailCount += int64(len(messages))
		st.InitialSync.EmailsIngested += int64(len(messages))
		st.InitialSync.LastProgressAt = time.Now()
		m.mu.Unlock()
		return nil
	})
	return total, err
}

func (m *Manager) embedAndUpsertEmail(ctx context.Context, msg *models.Message) error {
	if m.embedder != nil {
		vec, err := m.embedder.Embed(ctx, msg.SearchableText(nil))
		if err != nil {
			logger.Warn("embedding failed, upserting without a vector", "message", msg.ID, "error", err)
		} else {
			msg.Embedding = vec
		}
	}
	return m.store.UpsertEmail(ctx, msg)
}

// syncCalendar connects, fetches every calendar's events since floor, and
// upserts/deletes them, returning the number of events upserted.
func (m *Manager) syncCalendar(ctx context.Context, account *models.Account, floor time.Time) (int, error) {
	client, err := calsync.NewClient(ctx, account.ID, m.coordinator, m.limiter)
	if err != nil {
		if ge, ok := err.(*geerrors.Error); ok && ge.RequiresReauth() {
			m.publish(SyncEvent{Kind: EventAuthRequired, AccountID: account.ID})
		}
		return 0, err
	}

	result, err := calsync.SyncAccount(ctx, client, account.ID, account.Alias, floor,
		func(events []*models.CalendarEvent) error {
			for _, e := range events {
				if m.embedder != nil {
					vec, embedErr := m.embedder.Embed(ctx, e.SearchableText())
					if embedErr != nil {
						logger.Warn("embedding failed, upserting without a vector", "event", e.ID, "error", embedErr)
					} else {
						e.Embedding = vec
					}
				}
			}
			if err := m.store.UpsertEvents(ctx, events); err != nil {
				return err
			}
			st := m.stateFor(account.ID)
			m.mu.Lock()
			st.EventCount += int64(len(events))
			st.InitialSync.EventsIngested += int64(len(events))
			st.InitialSync.LastProgressAt = time.Now()
			m.mu.Unlock()
			for _, e := range events {
				m.publish(SyncEvent{Kind: EventNewEvent, AccountID: account.ID, EventID: e.ID})
			}
			return nil
		},
		func(calendarID string, googleEventIDs []string) error {
			for _, id := range googleEventIDs {
				if err := m.store.DeleteEvent(ctx, account.ID, id); err != nil {
					return err
				}
				m.publish(SyncEvent{Kind: EventEventDeleted, AccountID: account.ID, EventID: id})
			}
			return nil
		},
	)
	if err != nil {
		return 0, err
	}
	return result.Upserted, nil
}

// StartIdleForAccount runs imapsync's IDLE loop for account, forwarding
// new-mail notifications onto the event bus and, on notification, kicking
// off one incremental email sync. Blocks until ctx is cancelled.
func (m *Manager) StartIdleForAccount(ctx context.Context, account *models.Account) error {
	reconnect := func(ctx context.Context) (*imapsync.Conn, error) {
		return imapsync.ConnectAndAuthenticate(ctx, account, m.coordinator, m.limiter)
	}
	return imapsync.StartIdle(ctx, account.ID, reconnect, func(accountID string) {
		m.publish(SyncEvent{Kind: EventNewEmail, AccountID: accountID})
		m.TriggerSync(ctx, []*models.Account{account}, SyncKindEmail)
	})
}
