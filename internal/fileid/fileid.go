// Package fileid generates identifiers for ingested documents and their vector records.
package fileid

import (
	"strings"

	"github.com/google/uuid"
)

// DocumentIDLength is the length of a document ID.
const DocumentIDLength = 12

// NewDocumentID returns a random 12-character lowercase hex ID.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:DocumentIDLength]
}

// NewRecordID returns a fresh UUID for a vector record. Qdrant accepts UUID point IDs.
func NewRecordID() string {
	return uuid.NewString()
}
