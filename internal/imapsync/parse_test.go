package imapsync

import (
	"testing"

	"github.com/emersion/go-imap/v2"
)

func TestGmailExtensionTapParsesMsgidAndThrid(t *testing.T) {
	tap := newGmailExtensionTap()
	line := "* 12 FETCH (UID 345 X-GM-MSGID 1498262111783218878 X-GM-THRID 1498262111783218879 FLAGS (\\Seen))\r\n"
	if _, err := tap.Write([]byte(line)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	msgID, thrID := tap.lookup(345)
	if msgID != 1498262111783218878 {
		t.Fatalf("msgID = %d, want 1498262111783218878", msgID)
	}
	if thrID != 1498262111783218879 {
		t.Fatalf("thrID = %d, want 1498262111783218879", thrID)
	}
}

func TestGmailExtensionTapIgnoresUnrelatedLines(t *testing.T) {
	tap := newGmailExtensionTap()
	if _, err := tap.Write([]byte("* OK [CAPABILITY IMAP4rev1] Gimap ready\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	msgID, thrID := tap.lookup(1)
	if msgID != 0 || thrID != 0 {
		t.Fatalf("expected zero values for untouched UID, got msgID=%d thrID=%d", msgID, thrID)
	}
}

func TestGmailExtensionTapHandlesSplitWrites(t *testing.T) {
	tap := newGmailExtensionTap()
	part1 := "* 1 FETCH (UID 9 X-GM-MSGID 42 X"
	part2 := "-GM-THRID 99)\r\n"
	if _, err := tap.Write([]byte(part1)); err != nil {
		t.Fatalf("Write part1: %v", err)
	}
	if _, err := tap.Write([]byte(part2)); err != nil {
		t.Fatalf("Write part2: %v", err)
	}
	msgID, thrID := tap.lookup(9)
	if msgID != 42 || thrID != 99 {
		t.Fatalf("msgID=%d thrID=%d, want 42/99", msgID, thrID)
	}
}

func TestParseMailBodyExtractsPlainText(t *testing.T) {
	raw := []byte("From: a@example.com\r\n" +
		"To: b@example.com\r\n" +
		"Subject: hi\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hello world\r\n")

	plain, html, attachments := parseMailBody(raw)
	if plain != "hello world\r\n" {
		t.Fatalf("plain = %q", plain)
	}
	if html != "" {
		t.Fatalf("expected empty html, got %q", html)
	}
	if len(attachments) != 0 {
		t.Fatalf("expected no attachments, got %d", len(attachments))
	}
}

func TestAddressFromEnvelope(t *testing.T) {
	a := addressFromEnvelope(imap.Address{Name: "Alice", Mailbox: "alice", Host: "example.com"})
	if a.Name != "Alice" || a.Email != "alice@example.com" {
		t.Fatalf("got %+v", a)
	}
}
