// Package canon reduces artifact and receipt content to a byte-exact
// canonical form so BLAKE3 hashes stay stable across platforms and
// whitespace noise (spec §4.3). Version tag for the per-type rules below
// is "yaml-v1,md-v1".
package canon

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Type is one of the content classifiers canonicalize understands.
type Type string

const (
	YAML     Type = "yaml"
	Markdown Type = "markdown"
	Text     Type = "text"
	JSON     Type = "json"
)

// Error reports a canonicalization failure for a declared Type. Callers
// in the receipt and artifact layers treat this as fatal for the phase.
type Error struct {
	Type   Type
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("canon: %s: %s", e.Type, e.Reason)
}

// Canonicalize reduces content to its canonical byte form for typ.
func Canonicalize(content []byte, typ Type) ([]byte, error) {
	switch typ {
	case YAML:
		return canonicalizeYAML(content)
	case Markdown:
		return canonicalizeMarkdown(content), nil
	case Text:
		return canonicalizeText(content), nil
	case JSON:
		return nil, &Error{Type: JSON, Reason: "JSON canonicalization takes a value, not raw bytes; use MarshalJCS"}
	default:
		return nil, &Error{Type: typ, Reason: "unknown content type"}
	}
}

// HashCanonical canonicalizes content per typ and returns the
// hex-lowercase BLAKE3 (64 chars) of the canonical bytes.
func HashCanonical(content []byte, typ Type) (string, error) {
	canonical, err := Canonicalize(content, typ)
	if err != nil {
		return "", err
	}
	return HashBytes(canonical), nil
}

// HashBytes returns the hex-lowercase BLAKE3 of raw (already-canonical,
// or otherwise exact) bytes — used by the JCS path, where the canonical
// form is produced by MarshalJCS rather than Canonicalize.
func HashBytes(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
