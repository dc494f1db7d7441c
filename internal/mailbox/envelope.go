package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Envelope is the header data an import run decides on.
type Envelope struct {
	Senders []*mail.Address
	Subject string
	Date    time.Time

	// SenderErr is set when the sender header did not parse as a whole and
	// Senders holds only the addresses that parsed on their own.
	SenderErr error
}

// ParseHeader reads senders, subject and date without decoding the body.
// Senders come from From, or from Sender when From yields none.
func ParseHeader(raw []byte) (*Envelope, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	defer mr.Close()

	env := &Envelope{}
	env.Senders, env.SenderErr = addressList(&mr.Header, "From")
	if len(env.Senders) == 0 {
		if senders, serr := addressList(&mr.Header, "Sender"); len(senders) > 0 {
			env.Senders, env.SenderErr = senders, serr
		}
	}

	if env.Subject, err = mr.Header.Subject(); err != nil {
		env.Subject = mr.Header.Get("Subject")
	}
	if date, err := mr.Header.Date(); err == nil {
		env.Date = date
	}
	return env, nil
}

// addressList parses an address header, keeping the addresses that parse
// on their own when the list as a whole is malformed.
func addressList(h *mail.Header, key string) ([]*mail.Address, error) {
	list, err := h.AddressList(key)
	if err == nil {
		return list, nil
	}

	value, terr := h.Text(key)
	if terr != nil {
		value = h.Get(key)
	}
	var out []*mail.Address
	for _, part := range splitAddresses(value) {
		if a, perr := mail.ParseAddress(part); perr == nil {
			out = append(out, a)
		}
	}
	return out, fmt.Errorf("%s header: %w", key, err)
}

// splitAddresses splits on commas outside quotes, comments and angle
// brackets.
func splitAddresses(s string) []string {
	var (
		parts  []string
		start  int
		quoted bool
		depth  int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && quoted:
			i++
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(' || c == '<':
			depth++
		case (c == ')' || c == '>') && depth > 0:
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

// ReadBody returns the first text/plain inline part, or the first inline
// part when there is no plain text.
func ReadBody(raw []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	var fallback string
	haveFallback := false

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if haveFallback {
				return fallback, nil
			}
			return "", fmt.Errorf("read message part: %w", err)
		}
		if p == nil {
			continue
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("read message part: %w", err)
		}

		ct, _, _ := h.ContentType()
		if ct == "" || strings.EqualFold(ct, "text/plain") {
			return string(content), nil
		}
		if !haveFallback {
			fallback, haveFallback = string(content), true
		}
	}
	return fallback, nil
}
