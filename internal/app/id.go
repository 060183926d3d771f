package app

import (
	"crypto/rand"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// generateID produces a prefixed random hex identifier, e.g. "inv-3f2a...".
// Isolated here so the ID strategy can evolve independently.
func generateID(prefix string) (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	const hex = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hex[v>>4]
		out[i*2+1] = hex[v&0x0f]
	}
	return prefix + "-" + string(out), nil
}

// idPrefixFor maps a document type to its ID prefix.
func idPrefixFor(docType domain.DocumentType) string {
	switch docType {
	case domain.DocTypeInvoice:
		return "inv"
	case domain.DocTypeQuote:
		return "quo"
	case domain.DocTypeCreditNote:
		return "crn"
	}
	return "doc"
}
