package imapsync

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/jamiequint/groundeffect/internal/models"
)

// gmailExtensionItems requests Gmail's non-standard X-GM-MSGID/X-GM-THRID
// FETCH attributes. go-imap's typed FetchOptions has no dedicated field for
// vendor extensions it doesn't model, so these are built the same way the
// library builds any bare IMAP fetch-attribute atom, via FetchItemKeyword.
var gmailExtensionItems = []imap.FetchItem{
	imap.FetchItemKeyword("X-GM-MSGID"),
	imap.FetchItemKeyword("X-GM-THRID"),
}

// gmailExtensionRe recovers X-GM-MSGID/X-GM-THRID from the raw untagged
// FETCH response line. This is the single point of risk in this package:
// go-imap's typed FetchMessageBuffer has no field for attributes it
// doesn't recognize, so rather than silently defaulting these to UID (the
// bug spec.md flags), every FETCH response line is tapped via the client's
// DebugWriter hook and scanned here for the two extension tokens, keyed by
// the UID on the same line. If a future go-imap release exposes these as
// typed FetchItemData, this function is the only place that needs to
// change.
var gmailExtensionRe = regexp.MustCompile(`X-GM-(MSGID|THRID)\s+(\d+)`)
var fetchUIDRe = regexp.MustCompile(`UID\s+(\d+)`)

// gmailExtensionTap scans the client's raw wire trace for FETCH response
// lines carrying X-GM-MSGID/X-GM-THRID and records them by UID, safe for
// concurrent use since imapclient serializes command/response pairs but
// may write the trace from its own read goroutine.
type gmailExtensionTap struct {
	mu     sync.Mutex
	byUID  map[uint32]gmailIDs
	buf    strings.Builder
}

type gmailIDs struct {
	msgID, thrID uint64
}

func newGmailExtensionTap() *gmailExtensionTap {
	return &gmailExtensionTap{byUID: make(map[uint32]gmailIDs)}
}

// Write implements io.Writer, fed as imapclient.Options.DebugWriter so we
// observe every line the server sends without altering what go-imap parses.
func (t *gmailExtensionTap) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	for {
		s := t.buf.String()
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			break
		}
		line := s[:idx]
		t.buf.Reset()
		t.buf.WriteString(s[idx+1:])
		t.scanLine(line)
	}
	return len(p), nil
}

func (t *gmailExtensionTap) scanLine(line string) {
	if !strings.Contains(line, "FETCH") {
		return
	}
	uidMatch := fetchUIDRe.FindStringSubmatch(line)
	if uidMatch == nil {
		return
	}
	uid, err := strconv.ParseUint(uidMatch[1], 10, 32)
	if err != nil {
		return
	}
	var ids gmailIDs
	for _, m := range gmailExtensionRe.FindAllStringSubmatch(line, -1) {
		val, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			continue
		}
		switch m[1] {
		case "MSGID":
			ids.msgID = val
		case "THRID":
			ids.thrID = val
		}
	}
	if ids.msgID != 0 || ids.thrID != 0 {
		t.byUID[uint32(uid)] = ids
	}
}

func (t *gmailExtensionTap) lookup(uid uint32) (msgID, thrID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.byUID[uid]
	return ids.msgID, ids.thrID
}

// parseMessage turns one FetchMessageBuffer into a models.Message,
// resolving the Gmail extension ids from tap rather than defaulting them
// to the UID.
func parseMessage(accountID string, buf *imapclient.FetchMessageBuffer, tap *gmailExtensionTap) (*models.Message, error) {
	uid := uint32(buf.UID)

	var bodyPlain, bodyHTML string
	var attachments []models.Attachment
	for _, data := range buf.BodySection {
		plain, html, atts := parseMailBody(data)
		if plain != "" {
			bodyPlain = plain
		}
		if html != "" {
			bodyHTML = html
		}
		attachments = append(attachments, atts...)
	}

	var from models.Address
	var to, cc, bcc []models.Address
	var subject, messageID, inReplyTo string
	var date time.Time
	if buf.Envelope != nil {
		if len(buf.Envelope.From) > 0 {
			from = addressFromEnvelope(buf.Envelope.From[0])
		}
		to = addressesFromEnvelope(buf.Envelope.To)
		cc = addressesFromEnvelope(buf.Envelope.Cc)
		bcc = addressesFromEnvelope(buf.Envelope.Bcc)
		subject = buf.Envelope.Subject
		messageID = buf.Envelope.MessageID
		inReplyTo = buf.Envelope.InReplyTo
		date = buf.Envelope.Date
	}

	flags := make([]string, 0, len(buf.Flags))
	for _, f := range buf.Flags {
		flags = append(flags, string(f))
	}

	msgID, thrID := tap.lookup(uid)

	m := &models.Message{
		AccountID:       accountID,
		MessageIDHeader: messageID,
		GmailMessageID:  msgID,
		GmailThreadID:   thrID,
		UID:             uid,
		InReplyTo:       inReplyTo,
		Folder:          "INBOX",
		Flags:           flags,
		From:            from,
		To:              to,
		CC:              cc,
		BCC:             bcc,
		Subject:         subject,
		Date:            date,
		BodyPlain:       bodyPlain,
		BodyHTML:        bodyHTML,
		Attachments:     attachments,
	}
	m.ID = models.StableMessageID(accountID, m.MessageIDHeader, uid)
	m.Snippet = models.Snippet(m.ResolvedBody(nil))
	return m, nil
}

func addressFromEnvelope(a imap.Address) models.Address {
	email := a.Mailbox
	if a.Host != "" {
		email += "@" + a.Host
	}
	return models.Address{Name: a.Name, Email: email}
}

func addressesFromEnvelope(addrs []imap.Address) []models.Address {
	out := make([]models.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, addressFromEnvelope(a))
	}
	return out
}

// parseMailBody walks a full RFC 5322 message (as returned by
// BODY.PEEK[]) via go-message/mail, extracting the plain/HTML bodies and
// attachment metadata.
func parseMailBody(raw []byte) (plain, html string, attachments []models.Attachment) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", nil
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/plain":
				if plain == "" {
					plain = string(body)
				}
			case "text/html":
				if html == "" {
					html = string(body)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			attachments = append(attachments, models.Attachment{
				Filename: filename,
				MimeType: contentType,
				Size:     int64(len(body)),
			})
		}
	}
	return plain, html, attachments
}
