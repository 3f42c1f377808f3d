package calsync

import (
	"context"
	"time"

	googlecal "google.golang.org/api/calendar/v3"

	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
)

// SyncResult summarizes one account's calendar sync pass.
type SyncResult struct {
	Upserted int
	Deleted  []string // GoogleEventIDs to remove from the store
}

// SyncAccount fetches every calendar on the account and every event
// changed since floor, invoking onUpsert/onDelete incrementally per page
// so callers (the sync manager) can persist and emit progress without
// buffering the whole account in memory.
func SyncAccount(ctx context.Context, client *Client, accountID, accountAlias string, floor time.Time, onUpsert func([]*models.CalendarEvent) error, onDelete func(calendarID string, googleEventIDs []string) error) (*SyncResult, error) {
	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for _, cal := range calendars {
		calID := cal.ID
		err := client.FetchEventsSince(ctx, calID, floor, func(items []*googlecal.Event) error {
			var upserts []*models.CalendarEvent
			var deletes []string
			for _, raw := range items {
				if IsTombstone(raw) {
					deletes = append(deletes, raw.Id)
					continue
				}
				upserts = append(upserts, ParseEvent(accountID, accountAlias, calID, raw))
			}
			if len(upserts) > 0 {
				if err := onUpsert(upserts); err != nil {
					return err
				}
				result.Upserted += len(upserts)
			}
			if len(deletes) > 0 {
				if err := onDelete(calID, deletes); err != nil {
					return err
				}
				result.Deleted = append(result.Deleted, deletes...)
			}
			return nil
		})
		if err != nil {
			logger.Warn("calendar sync failed for one calendar, continuing with others", "account", accountID, "calendar", calID, "error", err)
			continue
		}
	}
	return result, nil
}
