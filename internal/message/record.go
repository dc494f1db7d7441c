// Package message defines the normalized record an importer hands to the
// downstream message bus.
package message

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SystemAuthor is credited as author of every imported message.
	SystemAuthor = "root"
	// LanguageUnknown marks content whose language was not detected.
	LanguageUnknown = "UKN"
	// NoOriginIndex means the source has no sequence position of its own.
	NoOriginIndex = "-1"
)

// Record is one accepted message, normalized for the message bus.
type Record struct {
	ID          string
	Header      string
	Content     string
	Author      string
	Language    string
	OriginIndex string
	Copyright   string
	Directories []string

	// Sender is the whitelisted address that let the message through.
	Sender     string
	ReceivedAt time.Time
}

// New returns a record with a fresh ID and the fixed system attribution.
func New(header, content string) *Record {
	return &Record{
		ID:          uuid.New().String(),
		Header:      header,
		Content:     content,
		Author:      SystemAuthor,
		Language:    LanguageUnknown,
		OriginIndex: NoOriginIndex,
	}
}
