package privacy

import (
	"testing"
)

func TestApply_LiteralSecret(t *testing.T) {
	r := New("https://discord.com/api/webhooks/1/secret")
	got := r.Apply(`Post "https://discord.com/api/webhooks/1/secret": dial tcp: timeout`)
	want := `Post "[REDACTED]": dial tcp: timeout`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApply_BotTokenShape(t *testing.T) {
	var r *Redactor
	got := r.Apply("https://api.telegram.org/bot123456789:AAHfiqksKZ8WmR2zSjiQ7_v4TMAKdiHm9T0/sendMessage")
	want := "https://api.telegram.org/bot[REDACTED]/sendMessage"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApply_MultipleSecrets(t *testing.T) {
	r := New("alpha", "", "beta")
	got := r.Apply("alpha and beta and gamma")
	want := "[REDACTED] and [REDACTED] and gamma"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApply_NoMatch(t *testing.T) {
	r := New("secret")
	if got := r.Apply("nothing to hide"); got != "nothing to hide" {
		t.Errorf("got %q", got)
	}
}
