package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	searchableBodyMaxChars = 16_000
	searchableBodyTailChars = 2_000
	snippetMaxChars         = 200
)

// Address is an email address with an optional display name.
type Address struct {
	Name  string
	Email string
}

// String formats the address as "Name <email>" or just "email".
func (a Address) String() string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Email)
	}
	return a.Email
}

// Message is one email message.
//
// Primary key: "{AccountID}:{MessageIDHeader}" (see StableMessageID), guaranteeing
// idempotent upserts across re-syncs of the same message.
type Message struct {
	ID        string // stable content-derived id
	AccountID string
	AccountAlias string

	MessageIDHeader string // RFC 5322 Message-ID
	GmailMessageID  uint64 // parsed from X-GM-MSGID
	GmailThreadID   uint64 // parsed from X-GM-THRID
	UID             uint32

	InReplyTo  string
	References []string

	Folder string
	Labels []string
	Flags  []string

	From    Address
	To      []Address
	CC      []Address
	BCC     []Address
	Subject string
	Date    time.Time // envelope date, UTC

	BodyPlain string
	BodyHTML  string
	Snippet   string

	Attachments []Attachment

	Embedding []float32 // nil when no vector has been computed yet

	SyncedAt time.Time
	RawSize  uint64
}

// StableMessageID computes "{accountID}:{messageIDHeader}", falling back to
// "<uid@unknown>" when the Message-ID header is absent.
func StableMessageID(accountID, messageIDHeader string, uid uint32) string {
	if messageIDHeader == "" {
		messageIDHeader = fmt.Sprintf("<%d@unknown>", uid)
	}
	return accountID + ":" + messageIDHeader
}

// sanitizeBodyText strips control characters below 0x20 (except \t \n \r)
// and 0x7F, matching the source's sanitize_body_text.
func sanitizeBodyText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HTMLToTextFunc is the contract for the out-of-core HTML→text conversion
// collaborator (spec.md §1: "a library call; only its contract is
// relevant"). Injected so callers can supply a real converter without this
// package depending on one directly.
type HTMLToTextFunc func(html string) (string, error)

// BodyForIndexingAndDisplay resolves the canonical body text: the plain
// body when non-empty, else the HTML body converted to text. htmlToText
// may be nil, in which case a non-empty HTML body with no usable plain
// text falls back to an empty string (degraded, not an error).
func BodyForIndexingAndDisplay(bodyPlain, bodyHTML string, htmlToText HTMLToTextFunc) string {
	plain := sanitizeBodyText(bodyPlain)
	if strings.TrimSpace(plain) != "" {
		return plain
	}
	if strings.TrimSpace(bodyHTML) == "" {
		return ""
	}
	sanitizedHTML := sanitizeBodyText(bodyHTML)
	if strings.TrimSpace(sanitizedHTML) == "" {
		return ""
	}
	if htmlToText == nil {
		return ""
	}
	text, err := htmlToText(sanitizedHTML)
	if err != nil {
		return ""
	}
	return sanitizeBodyText(text)
}

// ResolvedBody resolves m's canonical display/search body text.
func (m *Message) ResolvedBody(htmlToText HTMLToTextFunc) string {
	return BodyForIndexingAndDisplay(m.BodyPlain, m.BodyHTML, htmlToText)
}

// EmbeddingBodyExcerpt truncates body to at most searchableBodyMaxChars
// characters: unchanged if short enough, else head + " [truncated] " +
// tail, reproducing the 16000/2000/32-char arithmetic of the source.
func EmbeddingBodyExcerpt(body string) string {
	runes := []rune(body)
	total := len(runes)
	if total <= searchableBodyMaxChars {
		return body
	}

	tailChars := searchableBodyTailChars
	if tailChars > total {
		tailChars = total
	}
	headChars := searchableBodyMaxChars - tailChars - 32
	if headChars < 0 {
		headChars = 0
	}

	head := string(runes[:headChars])
	tail := string(runes[total-tailChars:])
	return head + " [truncated] " + tail
}

// Snippet produces a <=200-char prefix of the indexable body.
func Snippet(body string) string {
	runes := []rune(body)
	if len(runes) <= snippetMaxChars {
		return body
	}
	return string(runes[:snippetMaxChars])
}

// IsRead reports whether the \Seen flag is present.
func (m *Message) IsRead() bool { return hasFlag(m.Flags, `\Seen`) }

// IsFlagged reports whether the \Flagged flag is present.
func (m *Message) IsFlagged() bool { return hasFlag(m.Flags, `\Flagged`) }

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

// HasAttachments reports whether m carries any attachments.
func (m *Message) HasAttachments() bool { return len(m.Attachments) > 0 }

// SearchableText builds the canonical text used to compute m's embedding:
// subject (doubled for weight), "From: <address>", a body excerpt of at
// most 16000 chars, then attachment filenames.
func (m *Message) SearchableText(htmlToText HTMLToTextFunc) string {
	var b strings.Builder
	b.WriteString(m.Subject)
	b.WriteString(". ")
	b.WriteString(m.Subject)
	b.WriteString(". ")
	b.WriteString("From: ")
	b.WriteString(m.From.String())
	b.WriteString(". ")
	b.WriteString(EmbeddingBodyExcerpt(m.ResolvedBody(htmlToText)))
	if len(m.Attachments) > 0 {
		b.WriteString(" Attachments: ")
		for _, a := range m.Attachments {
			b.WriteString(a.Filename)
			b.WriteString(" ")
		}
	}
	return b.String()
}

// MarkdownSummary renders a short markdown summary for LLM consumption.
func (m *Message) MarkdownSummary() string {
	accountDisplay := m.AccountID
	if m.AccountAlias != "" {
		accountDisplay = fmt.Sprintf("%s (%s)", m.AccountID, m.AccountAlias)
	}
	return fmt.Sprintf(
		"**Account:** %s\n**From:** %s\n**Subject:** %s\n**Date:** %s\n\n%s",
		accountDisplay, m.From.String(), m.Subject,
		m.Date.Format("Jan 02, 2006 03:04 PM"), m.Snippet,
	)
}

// stripForSnippet is used by callers that need to guarantee the snippet
// contains only printable/whitespace runes (defensive against malformed
// envelope subjects feeding into a display snippet).
func stripForSnippet(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}
