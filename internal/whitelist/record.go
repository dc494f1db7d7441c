package whitelist

import (
	"errors"
	"fmt"
	"strings"
)

const (
	baseFieldCount  = 2
	groupFieldCount = 1
)

var (
	// ErrBaseFields is returned when a record does not carry exactly an
	// address and a copyright field.
	ErrBaseFields = errors.New("wrong number of base fields")
	// ErrGroupFields is returned when a record does not carry exactly one
	// bracketed directory group.
	ErrGroupFields = errors.New("wrong number of group fields")
	// ErrUnterminated is returned for an unclosed { or [ delimiter.
	ErrUnterminated = errors.New("unterminated delimiter")
)

// ParseRecord decodes one extended-format line:
//
//	ADDRESS,{Copyright text},[DIR1,DIR2]
//
// Braces quote a text field and may be omitted when the text has no commas.
// The bracketed group may be empty.
func ParseRecord(line string) (*Entry, error) {
	var (
		base   []string
		groups [][]string
	)

	rest := strings.TrimSpace(line)
	for rest != "" {
		var err error
		switch rest[0] {
		case '[':
			var items []string
			items, rest, err = scanGroup(rest)
			if err != nil {
				return nil, err
			}
			groups = append(groups, items)
		default:
			var field string
			field, rest, err = scanField(rest)
			if err != nil {
				return nil, err
			}
			if len(groups) > 0 {
				return nil, fmt.Errorf("%w: field %q after group", ErrBaseFields, field)
			}
			base = append(base, field)
		}

		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("unexpected %q after field", rest[0])
		}
		rest = strings.TrimLeft(rest[1:], " \t")
	}

	if len(base) != baseFieldCount || base[0] == "" {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBaseFields, len(base), baseFieldCount)
	}
	if len(groups) != groupFieldCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrGroupFields, len(groups), groupFieldCount)
	}

	return &Entry{
		Address:     base[0],
		Copyright:   base[1],
		Directories: groups[0],
	}, nil
}

// scanField reads one scalar field up to the next top-level comma.
func scanField(s string) (field, rest string, err error) {
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", "", fmt.Errorf("%w: missing }", ErrUnterminated)
		}
		return s[1:end], s[end+1:], nil
	}
	end := strings.IndexByte(s, ',')
	if end < 0 {
		return strings.TrimSpace(s), "", nil
	}
	return strings.TrimSpace(s[:end]), s[end:], nil
}

// scanGroup reads a bracketed, comma separated list starting at s[0] == '['.
func scanGroup(s string) (items []string, rest string, err error) {
	items = []string{}
	s = strings.TrimLeft(s[1:], " \t")
	if strings.HasPrefix(s, "]") {
		return items, s[1:], nil
	}
	for {
		var item string
		if strings.HasPrefix(s, "{") {
			end := strings.IndexByte(s, '}')
			if end < 0 {
				return nil, "", fmt.Errorf("%w: missing }", ErrUnterminated)
			}
			item, s = s[1:end], s[end+1:]
		} else {
			end := strings.IndexAny(s, ",]")
			if end < 0 {
				return nil, "", fmt.Errorf("%w: missing ]", ErrUnterminated)
			}
			item, s = strings.TrimSpace(s[:end]), s[end:]
		}
		items = append(items, item)

		s = strings.TrimLeft(s, " \t")
		switch {
		case strings.HasPrefix(s, "]"):
			return items, s[1:], nil
		case strings.HasPrefix(s, ","):
			s = strings.TrimLeft(s[1:], " \t")
		default:
			return nil, "", fmt.Errorf("%w: missing ]", ErrUnterminated)
		}
	}
}
