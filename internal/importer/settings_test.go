package importer

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tracyhatemice/mailimport/internal/mailbox"
	"github.com/tracyhatemice/mailimport/internal/whitelist"
)

func TestResolveSettings_Defaults(t *testing.T) {
	t.Parallel()

	s := ResolveSettings(map[string]string{}, "/srv/import", discardLogger())

	if s.Protocol != mailbox.ProtocolPOP3 {
		t.Errorf("Protocol: got %q", s.Protocol)
	}
	if s.Security != SecurityNone || s.UseTLS() {
		t.Errorf("Security: got %q", s.Security)
	}
	if s.PostAction != PostActionMark {
		t.Errorf("PostAction: got %q", s.PostAction)
	}
	if s.WhitelistFormat != whitelist.FormatNormal {
		t.Errorf("WhitelistFormat: got %q", s.WhitelistFormat)
	}
	if s.Port != 110 {
		t.Errorf("Port: got %d, want 110", s.Port)
	}
	if s.DialTimeout != defaultDialTimeout {
		t.Errorf("DialTimeout: got %s", s.DialTimeout)
	}
	if s.TrustAll || s.ReadFormat || s.SendReport || s.AuditLog {
		t.Errorf("flags should default off: %+v", s)
	}
}

func TestResolveSettings_BadEnumKeepsDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key   string
		value string
		check func(Settings) bool
	}{
		{KeyPostAction, "ARCHIVE", func(s Settings) bool { return s.PostAction == PostActionMark }},
		{KeySecurity, "TLS", func(s Settings) bool { return s.Security == SecurityNone }},
		{KeyWhitelistFormat, "extended", func(s Settings) bool { return s.WhitelistFormat == whitelist.FormatNormal }},
		{KeyProtocol, "SMTP", func(s Settings) bool { return s.Protocol == mailbox.ProtocolPOP3 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			s := ResolveSettings(map[string]string{tt.key: tt.value}, "", logger)

			if !tt.check(s) {
				t.Errorf("%s=%s: default not kept, got %+v", tt.key, tt.value, s)
			}
			out := buf.String()
			if !strings.Contains(out, "cannot set parameter") || !strings.Contains(out, "key="+tt.key) {
				t.Errorf("warning not logged for %s, log: %s", tt.key, out)
			}
		})
	}
}

func TestResolveSettings_ValidEnums(t *testing.T) {
	t.Parallel()

	s := ResolveSettings(map[string]string{
		KeyProtocol:        "IMAP",
		KeySecurity:        "SSL",
		KeyPostAction:      "DELETE",
		KeyWhitelistFormat: "EXTENDED",
	}, "", discardLogger())

	if s.Protocol != mailbox.ProtocolIMAP || s.Security != SecuritySSL ||
		s.PostAction != PostActionDelete || s.WhitelistFormat != whitelist.FormatExtended {
		t.Errorf("got %+v", s)
	}
}

func TestResolveSettings_Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		props    map[string]string
		wantHost string
		wantPort int
	}{
		{"pop3 default", map[string]string{KeyAddress: "pop.example.com"}, "pop.example.com", 110},
		{"pop3s default", map[string]string{KeyAddress: "pop.example.com", KeySecurity: "SSL"}, "pop.example.com", 995},
		{"imap default", map[string]string{KeyAddress: "imap.example.com", KeyProtocol: "IMAP"}, "imap.example.com", 143},
		{"imaps default", map[string]string{KeyAddress: "imap.example.com", KeyProtocol: "IMAP", KeySecurity: "SSL"}, "imap.example.com", 993},
		{"explicit port", map[string]string{KeyAddress: "pop.example.com:1110"}, "pop.example.com", 1110},
		{"bad port", map[string]string{KeyAddress: "pop.example.com:99999"}, "pop.example.com", 110},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := ResolveSettings(tt.props, "", discardLogger())
			if s.Host != tt.wantHost || s.Port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", s.Host, s.Port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestResolveSettings_SendReportNeedsReadFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		readFormat string
		sendReport string
		want       bool
	}{
		{"", "1", false},
		{"0", "1", false},
		{"1", "1", true},
		{"1", "0", false},
	}

	for _, tt := range tests {
		s := ResolveSettings(map[string]string{
			KeyReadFormat: tt.readFormat,
			KeySendReport: tt.sendReport,
		}, "", discardLogger())
		if s.SendReport != tt.want {
			t.Errorf("read_format=%q send_report=%q: got %v, want %v", tt.readFormat, tt.sendReport, s.SendReport, tt.want)
		}
	}
}

func TestResolveSettings_PathsAndTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	abs := filepath.Join(dir, "abs.txt")

	s := ResolveSettings(map[string]string{
		KeyWhitelist:   "lists/senders.txt",
		KeyArchive:     abs,
		KeyDialTimeout: "5",
		KeyTrustAll:    "1",
		KeyAuditLog:    "1",
	}, dir, discardLogger())

	if want := filepath.Join(dir, "lists", "senders.txt"); s.WhitelistPath != want {
		t.Errorf("WhitelistPath: got %q, want %q", s.WhitelistPath, want)
	}
	if s.ArchivePath != abs {
		t.Errorf("ArchivePath: got %q, want %q", s.ArchivePath, abs)
	}
	if s.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout: got %s", s.DialTimeout)
	}
	if !s.TrustAll || !s.AuditLog {
		t.Errorf("flags: got %+v", s)
	}

	opt := s.MailboxOptions()
	if !opt.TrustAll || opt.DialTimeout != 5*time.Second {
		t.Errorf("MailboxOptions: got %+v", opt)
	}
}

func TestResolveSettings_BadTimeoutKeepsDefault(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"abc", "0", "-3"} {
		s := ResolveSettings(map[string]string{KeyDialTimeout: v}, "", discardLogger())
		if s.DialTimeout != defaultDialTimeout {
			t.Errorf("%q: got %s", v, s.DialTimeout)
		}
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":               "default",
		"newsroom":       "newsroom",
		"news room/desk": "news_room_desk",
		"wire-1_a":       "wire-1_a",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
