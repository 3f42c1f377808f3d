package oauth

import "testing"

func TestGenerateXOAUTH2(t *testing.T) {
	got := GenerateXOAUTH2("alice@example.com", "ya29.token")
	want := "user=alice@example.com\x01auth=Bearer ya29.token\x01\x01"
	if got != want {
		t.Fatalf("unexpected XOAUTH2 string: %q", got)
	}
}

func TestParseSecretsFile(t *testing.T) {
	contents := `
# comment
export GROUNDEFFECT_CLIENT_ID="abc123.apps.googleusercontent.com"
export GROUNDEFFECT_CLIENT_SECRET='super-secret'
export UNRELATED_VAR=ignored
`
	id, secret := parseSecretsFile(contents)
	if id != "abc123.apps.googleusercontent.com" {
		t.Fatalf("unexpected client id: %q", id)
	}
	if secret != "super-secret" {
		t.Fatalf("unexpected client secret: %q", secret)
	}
}

func TestParseSecretsFileAcceptsLegacyAliases(t *testing.T) {
	contents := `export GROUNDEFFECT_GOOGLE_CLIENT_ID="x"
export GROUNDEFFECT_GOOGLE_CLIENT_SECRET="y"`
	id, secret := parseSecretsFile(contents)
	if id != "x" || secret != "y" {
		t.Fatalf("expected legacy alias names to be recognized, got id=%q secret=%q", id, secret)
	}
}
