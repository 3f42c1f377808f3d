package calsync

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/jamiequint/groundeffect/internal/models"
)

// ParseEvent maps one Calendar API event to groundeffect's domain model.
// It always returns an event; callers check IsTombstone first to turn
// cancelled/deleted events into deletes rather than upserts.
func ParseEvent(accountID, accountAlias, calendarID string, evt *calendar.Event) *models.CalendarEvent {
	e := &models.CalendarEvent{
		AccountID:      accountID,
		AccountAlias:   accountAlias,
		CalendarID:     calendarID,
		GoogleEventID:  evt.Id,
		ICalUID:        evt.ICalUID,
		Etag:           evt.Etag,
		Summary:        evt.Summary,
		Description:    evt.Description,
		Location:       evt.Location,
		RecurrenceID:   evt.RecurringEventId,
		Status:         models.EventConfirmed,
		Transparency:   models.TransparencyOpaque,
	}
	switch s := models.EventStatus(evt.Status); s {
	case models.EventTentative, models.EventCancelled:
		e.Status = s
	}
	if evt.Transparency == string(models.TransparencyTransparent) {
		e.Transparency = models.TransparencyTransparent
	}
	if len(evt.Recurrence) > 0 {
		e.RecurrenceRule = evt.Recurrence[0]
	}

	e.Start, e.Timezone = parseEventTime(evt.Start)
	e.End, _ = parseEventTime(evt.End)
	e.AllDay = e.Start.AllDay

	if evt.Organizer != nil {
		e.Organizer = &models.Attendee{
			Email: evt.Organizer.Email,
			Name:  evt.Organizer.DisplayName,
		}
	}
	for _, a := range evt.Attendees {
		e.Attendees = append(e.Attendees, models.Attendee{
			Email:          a.Email,
			Name:           a.DisplayName,
			ResponseStatus: models.AttendeeStatus(a.ResponseStatus),
			Optional:       a.Optional,
		})
	}
	if evt.Reminders != nil {
		for _, r := range evt.Reminders.Overrides {
			e.Reminders = append(e.Reminders, models.Reminder{
				Method:  models.ReminderMethod(r.Method),
				Minutes: int32(r.Minutes),
			})
		}
	}

	e.SyncedAt = time.Now().UTC()
	return e
}

// IsTombstone reports whether evt represents a deletion that should be
// propagated as a store delete rather than an upsert.
func IsTombstone(evt *calendar.Event) bool {
	return evt.Status == "cancelled"
}

func parseEventTime(t *calendar.EventDateTime) (models.EventTime, string) {
	if t == nil {
		return models.EventTime{}, ""
	}
	if t.Date != "" {
		d, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return models.EventTime{AllDay: true}, t.TimeZone
		}
		return models.EventTime{Date: d, AllDay: true}, t.TimeZone
	}
	dt, err := time.Parse(time.RFC3339, t.DateTime)
	if err != nil {
		return models.EventTime{}, t.TimeZone
	}
	return models.EventTime{DateTime: dt.UTC()}, t.TimeZone
}
