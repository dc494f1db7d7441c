package whitelist

import (
	"bufio"
	"bytes"
	"log/slog"
	"os"
	"strings"
)

// Load reads the whitelist file at path in the given format. It never fails:
// an unreadable file yields an empty store, and malformed extended records
// are skipped. Both cases are logged.
func Load(format Format, path string, logger *slog.Logger) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("cannot read whitelist, only the mail_read_from address will be accepted",
			"path", path,
			"error", err,
		)
		return New(nil)
	}

	s := Parse(format, data, logger)
	logger.Debug("loaded whitelist", "path", path, "format", format, "addresses", s.Len())
	return s
}

// Parse builds a store from whitelist file contents.
func Parse(format Format, data []byte, logger *slog.Logger) *Store {
	entries := make(map[string]*Entry)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if format != FormatExtended {
			entries[line] = nil
			continue
		}

		entry, err := ParseRecord(line)
		if err != nil {
			logger.Warn("skipping malformed whitelist record",
				"line", lineNo,
				"record", line,
				"error", err,
			)
			continue
		}
		entries[entry.Address] = entry
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("whitelist read stopped early", "line", lineNo, "error", err)
	}

	return &Store{entries: entries}
}
