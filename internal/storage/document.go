package storage

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// EncodeDocument serializes a profile for the JSON column backends.
func EncodeDocument(p *core.Profile) ([]byte, error) {
	c := p.Clone()
	c.Normalize()
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.Email, err)
	}
	return b, nil
}

// DecodeDocument is the inverse of EncodeDocument.
func DecodeDocument(b []byte) (*core.Profile, error) {
	var p core.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.Normalize()
	return &p, nil
}
