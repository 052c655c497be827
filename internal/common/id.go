package common

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewDocumentID generates a random document identifier.
func NewDocumentID() string {
	return uuid.New().String()
}

// DeriveDocumentID builds a stable, readable document id from a source
// file path: the lowercased base name with spaces replaced, suffixed with
// a short random component to avoid collisions across re-ingests.
func DeriveDocumentID(sourceFile string) string {
	base := filepath.Base(sourceFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(strings.ReplaceAll(base, " ", "_"))
	if base == "" || base == "." {
		return NewDocumentID()
	}
	return base + "_" + uuid.New().String()[:8]
}
