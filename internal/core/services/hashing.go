package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// chunkIDVersion prefixes the chunk ID preimage so the derivation can change
// without colliding with existing IDs.
const chunkIDVersion = "v1"

// sha256Hex returns the lowercase hex SHA-256 of b.
func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON serialises v with object keys sorted recursively and array
// order preserved. Numbers keep their literal form and HTML is not escaped.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// canonicalSHA256 hashes the canonical JSON form of v.
func canonicalSHA256(v any) (string, error) {
	b, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	return sha256Hex(b), nil
}

// sourceDescriptor is the identity of a source. Label and creation time are
// not part of it.
type sourceDescriptor struct {
	Type   domain.SourceType     `json:"type"`
	Origin domain.EvidenceOrigin `json:"origin"`
}

// ComputeSourceID derives the content-addressed ID of a source descriptor.
func ComputeSourceID(sourceType domain.SourceType, origin domain.EvidenceOrigin) (string, error) {
	return canonicalSHA256(sourceDescriptor{Type: sourceType, Origin: origin})
}

// ComputeChunkID derives the content-addressed ID of a chunk.
func ComputeChunkID(sourceID string, ordinal int, textSHA256 string, meta domain.ChunkMeta) (string, error) {
	metaSHA, err := canonicalSHA256(meta)
	if err != nil {
		return "", err
	}
	preimage := fmt.Sprintf("%s|%s|%d|%s|%s", chunkIDVersion, sourceID, ordinal, textSHA256, metaSHA)
	return sha256Hex([]byte(preimage)), nil
}

// TextSHA256 hashes chunk text.
func TextSHA256(text string) string {
	return sha256Hex([]byte(text))
}

// NormalizeText converts CRLF and lone CR line endings to LF.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Snippet returns the leading maxBytes of the trimmed text, cut on a rune
// boundary, with "..." appended when anything was cut.
func Snippet(text string, maxBytes int) string {
	t := strings.TrimSpace(text)
	if len(t) <= maxBytes {
		return t
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(t[cut]) {
		cut--
	}
	return t[:cut] + "..."
}
