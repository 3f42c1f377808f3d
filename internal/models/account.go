// Package models holds the entity types shared across the sync workers,
// the columnar store, and the search engine.
package models

import "time"

// AccountStatus is the lifecycle state of a connected account.
type AccountStatus string

const (
	AccountActive      AccountStatus = "active"
	AccountNeedsReauth AccountStatus = "needs_reauth"
	AccountDisabled    AccountStatus = "disabled"
	AccountSyncing     AccountStatus = "syncing"
)

// Account is a user's credential record for one remote mailbox/calendar.
type Account struct {
	ID      string // email address, unique per install
	Alias   string // optional user-defined alias
	Name    string // display name from userinfo
	Status  AccountStatus
	AddedAt time.Time

	LastSyncEmail    *time.Time
	LastSyncCalendar *time.Time

	// SyncSinceFloor is the earliest date to ingest ("unbounded" when nil).
	SyncSinceFloor *time.Time
	// OldestEmailSynced / OldestEventSynced track how far a backfill has
	// reached so far.
	OldestEmailSynced *time.Time
	OldestEventSynced *time.Time

	IngestAttachments bool
	EstimatedTotal    int64
}

// DisplayName returns the alias if set, else the account id.
func (a *Account) DisplayName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.ID
}

// TokenBundle is the live OAuth credential set for one account.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // seconds since epoch
	Scopes       []string
}

// expiringWindowSecs is how far ahead of expiry a token is considered
// "expiring" and eligible for proactive refresh.
const expiringWindowSecs = 300

// IsExpiring reports whether the token will expire within the next 300s.
func (t *TokenBundle) IsExpiring(now time.Time) bool {
	return now.Unix()+expiringWindowSecs >= t.ExpiresAt
}

// IsExpired reports whether the token has already passed its expiry.
func (t *TokenBundle) IsExpired(now time.Time) bool {
	return now.Unix() >= t.ExpiresAt
}
