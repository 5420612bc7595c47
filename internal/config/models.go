// internal/config/models.go
// Package config provides configuration loading, validation, and data models.
package config

import "strings"

// BatchRequest is the API payload for a batch VAT check.
type BatchRequest struct {
	// VATNumbers are raw identifiers, country prefix included (e.g. "DE123456789")
	VATNumbers []string `json:"vatNumbers" binding:"required"`
}

// ParseBatchText builds a BatchRequest from one identifier per line.
func ParseBatchText(text string) BatchRequest {
	return BatchRequest{VATNumbers: strings.Split(text, "\n")}
}

// Identifiers returns the trimmed, non-blank entries in submission order.
// Blank lines in pasted lists are dropped before the batch starts.
func (r BatchRequest) Identifiers() []string {
	out := make([]string, 0, len(r.VATNumbers))
	for _, raw := range r.VATNumbers {
		if id := strings.TrimSpace(raw); id != "" {
			out = append(out, id)
		}
	}
	return out
}
