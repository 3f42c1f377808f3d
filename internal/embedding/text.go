package embedding

import (
	"github.com/jamiequint/groundeffect/internal/models"
)

// CanonicalEmailText returns the exact text a Message's embedding is
// computed from.
func CanonicalEmailText(m *models.Message, htmlToText models.HTMLToTextFunc) string {
	return m.SearchableText(htmlToText)
}

// CanonicalEventText returns the exact text a CalendarEvent's embedding is
// computed from.
func CanonicalEventText(e *models.CalendarEvent) string {
	return e.SearchableText()
}
