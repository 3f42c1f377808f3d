package rpc

import "google.golang.org/api/calendar/v3"

// gcalEvent is the minimal create_event argument shape accepted by the
// create_event tool: a summary plus RFC3339 start/end timestamps. All-day
// events and richer fields (attendees, reminders) aren't exposed through
// this tool; spec.md §6.4 names create_event only as a basic write path.
type gcalEvent struct {
	Summary    string
	Start, End string
}

func (g *gcalEvent) toAPI() *calendar.Event {
	return &calendar.Event{
		Summary: g.Summary,
		Start:   &calendar.EventDateTime{DateTime: g.Start},
		End:     &calendar.EventDateTime{DateTime: g.End},
	}
}
