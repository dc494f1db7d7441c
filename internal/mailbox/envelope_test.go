package mailbox

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseHeader_PlainText(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: Jane Editor <jane@wire.org>",
		"To: desk@newsroom.example",
		"Subject: Morning briefing",
		"Date: Mon, 02 Jan 2006 15:04:05 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Markets opened higher.",
	}, "\r\n"))

	env, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(env.Senders) != 1 {
		t.Fatalf("Senders: got %d, want 1", len(env.Senders))
	}
	if env.Senders[0].Address != "jane@wire.org" {
		t.Errorf("Address: got %q", env.Senders[0].Address)
	}
	if env.Senders[0].Name != "Jane Editor" {
		t.Errorf("Name: got %q", env.Senders[0].Name)
	}
	if env.SenderErr != nil {
		t.Errorf("SenderErr: got %v", env.SenderErr)
	}
	if env.Subject != "Morning briefing" {
		t.Errorf("Subject: got %q", env.Subject)
	}
	if env.Date.IsZero() || env.Date.Year() != 2006 {
		t.Errorf("Date: got %v", env.Date)
	}

	body, err := ReadBody(raw)
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	if strings.TrimSpace(body) != "Markets opened higher." {
		t.Errorf("Body: got %q", body)
	}
}

func TestParseHeader_Senders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    []string
		wantErr bool
	}{
		{"list", "From: a@x.com, Bee <b@y.org>", []string{"a@x.com", "b@y.org"}, false},
		{"sender fallback", "Sender: relay@x.com", []string{"relay@x.com"}, false},
		{"from wins over sender", "From: a@x.com\r\nSender: relay@x.com", []string{"a@x.com"}, false},
		{"bad entry kept out", "From: a@x.com, undisclosed", []string{"a@x.com"}, true},
		{"quoted comma", `From: "Smith, Jane" <jane@x.com>, junk@@, b@y.org`, []string{"jane@x.com", "b@y.org"}, true},
		{"nothing parses", "From: undisclosed-recipients", nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := ParseHeader([]byte(tt.header + "\r\nSubject: s\r\n\r\nbody"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, a := range env.Senders {
				got = append(got, a.Address)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Senders: got %v, want %v", got, tt.want)
			}
			if (env.SenderErr != nil) != tt.wantErr {
				t.Errorf("SenderErr: got %v, wantErr %v", env.SenderErr, tt.wantErr)
			}
		})
	}
}

func TestParseHeader_IgnoresBrokenBody(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: b@x.com",
		"Subject: Broken",
		"Content-Transfer-Encoding: base64",
		"",
		"!!!not base64***",
	}, "\r\n"))

	env, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if len(env.Senders) != 1 || env.Senders[0].Address != "b@x.com" {
		t.Errorf("Senders: got %v", env.Senders)
	}

	if _, err := ReadBody(raw); err == nil {
		t.Error("ReadBody: expected decoding error")
	}
}

func TestReadBody_MultipartPrefersPlainText(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: a@x.com",
		"Subject: Multipart",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/html",
		"",
		"<p>html body</p>",
		"--b1",
		"Content-Type: text/plain",
		"",
		"plain body",
		"--b1--",
	}, "\r\n"))

	body, err := ReadBody(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(body) != "plain body" {
		t.Errorf("Body: got %q, want plain body", body)
	}
}

func TestReadBody_HTMLOnly(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: a@x.com",
		"Subject: html",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=b2",
		"",
		"--b2",
		"Content-Type: text/html",
		"",
		"<p>only html</p>",
		"--b2--",
	}, "\r\n"))

	body, err := ReadBody(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "only html") {
		t.Errorf("Body: got %q", body)
	}
}

func TestReadMarks_Persist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "desk.read")
	m, err := OpenReadMarks(path)
	if err != nil {
		t.Fatalf("OpenReadMarks: %v", err)
	}
	first := time.Unix(1700000000, 0)
	m.now = func() time.Time { return first }

	if err := m.Mark("uid-1"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	m.now = func() time.Time { return first.Add(time.Hour) }
	if err := m.Mark("uid-1"); err != nil {
		t.Fatalf("Mark twice: %v", err)
	}
	if err := m.Mark("uid-2"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	reopened, err := OpenReadMarks(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Count() != 2 {
		t.Errorf("Count: got %d, want 2", reopened.Count())
	}
	if at, ok := reopened.MarkedAt("uid-1"); !ok || !at.Equal(first) {
		t.Errorf("MarkedAt(uid-1): got %v %v, want first mark time", at, ok)
	}
	if _, ok := reopened.MarkedAt("uid-3"); ok {
		t.Error("uid-3 was never marked")
	}
}

func TestReadMarks_EntryWithoutTime(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "desk.read")
	if err := os.WriteFile(path, []byte("uid-legacy\n\nuid-7\t1700000000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := OpenReadMarks(path)
	if err != nil {
		t.Fatalf("OpenReadMarks: %v", err)
	}
	if at, ok := m.MarkedAt("uid-legacy"); !ok || !at.IsZero() {
		t.Errorf("uid-legacy: got %v %v", at, ok)
	}
	if m.Count() != 2 {
		t.Errorf("Count: got %d, want 2", m.Count())
	}
}
