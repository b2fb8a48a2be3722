package application

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// EvidenceHashSize is the fixed length of an evidence digest in bytes.
const EvidenceHashSize = 32

// EvidenceHash references off-core evidence (photos, sensor logs) by digest.
type EvidenceHash [EvidenceHashSize]byte

// DigestEvidence computes the SHA3-256 digest of raw evidence bytes.
func DigestEvidence(data []byte) EvidenceHash {
	return EvidenceHash(sha3.Sum256(data))
}

// ParseEvidenceHash decodes a hex encoded digest, with or without a 0x prefix.
func ParseEvidenceHash(value string) (EvidenceHash, error) {
	var hash EvidenceHash
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 2 && strings.EqualFold(trimmed[:2], "0x") {
		trimmed = trimmed[2:]
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return hash, invalidField("evidence_hash", "evidence hash must be hex encoded")
	}
	if len(raw) != EvidenceHashSize {
		return hash, invalidField("evidence_hash", "evidence hash must be 32 bytes")
	}
	copy(hash[:], raw)
	return hash, nil
}

// EvidenceHashFromBytes copies a stored digest, rejecting values of the wrong length.
func EvidenceHashFromBytes(raw []byte) (EvidenceHash, error) {
	var hash EvidenceHash
	if len(raw) != EvidenceHashSize {
		return hash, invalidField("evidence_hash", "evidence hash must be 32 bytes")
	}
	copy(hash[:], raw)
	return hash, nil
}

// String returns the lowercase hex form of the digest.
func (h EvidenceHash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the digest as a slice.
func (h EvidenceHash) Bytes() []byte {
	out := make([]byte, EvidenceHashSize)
	copy(out, h[:])
	return out
}
