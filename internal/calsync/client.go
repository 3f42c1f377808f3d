// Package calsync is the Calendar sync worker: it fetches events from
// every one of an account's Google calendars via the Calendar v3 JSON
// HTTP API (spec.md §4.8's primary-source choice over original_source's
// CalDAV client), grounded on diane's google/calendar client idiom.
package calsync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
)

// Client is a per-account Calendar API client.
type Client struct {
	srv       *calendar.Service
	accountID string
	limiter   *ratelimit.Limiter
}

// coordinatorTokenSource adapts oauth.Coordinator.GetValidToken to
// oauth2.TokenSource so the generated Calendar client can refresh
// transparently through the same coordinator every other worker uses.
type coordinatorTokenSource struct {
	ctx         context.Context
	accountID   string
	coordinator *oauth.Coordinator
}

func (s coordinatorTokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := s.coordinator.GetValidToken(s.ctx, s.accountID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}

// NewClient builds a Calendar API client for accountID, refreshing tokens
// through coordinator on demand.
func NewClient(ctx context.Context, accountID string, coordinator *oauth.Coordinator, limiter *ratelimit.Limiter) (*Client, error) {
	ts := coordinatorTokenSource{ctx: ctx, accountID: accountID, coordinator: coordinator}
	srv, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, geerrors.Network(fmt.Errorf("calendar service: %w", err))
	}
	return &Client{srv: srv, accountID: accountID, limiter: limiter}, nil
}

// CalendarRef is one of the account's calendars.
type CalendarRef struct {
	ID      string
	Summary string
	Primary bool
	Color   string
}

// ListCalendars enumerates every calendar on the account's calendar list,
// not just the primary one (spec.md §9's multi-calendar supplement).
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarRef, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, geerrors.Sync(c.accountID, "rate limit wait cancelled")
	}

	resp, err := c.srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, geerrors.Network(fmt.Errorf("CalendarList.List: %w", err))
	}

	refs := make([]CalendarRef, 0, len(resp.Items))
	for _, item := range resp.Items {
		refs = append(refs, CalendarRef{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
			Color:   item.BackgroundColor,
		})
	}
	return refs, nil
}

// FetchEventsSince pages through every event on calendarID modified since
// a floor (zero time means "all events"), calling onPage once per page so
// callers can embed/upsert/emit progress incrementally. Uses
// updatedMin+showDeleted so cancellations surface as tombstone events
// (spec.md §4.8's delete-propagation requirement).
func (c *Client) FetchEventsSince(ctx context.Context, calendarID string, since time.Time, onPage func([]*calendar.Event) error) error {
	req := c.srv.Events.List(calendarID).
		SingleEvents(true).
		ShowDeleted(true).
		OrderBy("updated").
		MaxResults(250)
	if !since.IsZero() {
		req = req.UpdatedMin(since.Format(time.RFC3339))
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return geerrors.Sync(c.accountID, "rate limit wait cancelled")
	}

	pageErr := onPage
	return req.Pages(ctx, func(page *calendar.Events) error {
		if err := c.limiter.Acquire(ctx); err != nil {
			return geerrors.Sync(c.accountID, "rate limit wait cancelled")
		}
		logger.Info("calendar page fetched", "account", c.accountID, "calendar", calendarID, "count", len(page.Items))
		return pageErr(page.Items)
	})
}

// CreateEvent inserts a new event on calendarID (defaulting to "primary"),
// used by the create_event tool.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, geerrors.Sync(c.accountID, "rate limit wait cancelled")
	}
	created, err := c.srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, geerrors.Network(fmt.Errorf("Events.Insert: %w", err))
	}
	return created, nil
}
