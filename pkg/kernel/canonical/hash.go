package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// HashPrefix is the wire-level prefix for whole-artifact content hashes.
const HashPrefix = "sha256:"

// HashRe matches the wire-level content-hash format.
var HashRe = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ContentHash canonicalizes a value and returns "sha256:" + 64 lowercase
// hex chars of its SHA-256 digest.
func ContentHash(v any) (string, error) {
	s, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return HashBytes([]byte(s)), nil
}

// HashBytes hashes raw bytes into the wire-level content-hash format.
// Used for opaque payloads (output contents, recorded model responses)
// where the bytes themselves are the canonical form.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// MintID derives a content-addressed identifier "{prefix}_{first16hex}"
// from the canonical form of v. Two values with identical content always
// mint the same ID.
func MintID(prefix string, v any) (string, error) {
	s, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(s))
	return prefix + "_" + hex.EncodeToString(sum[:8]), nil
}

// IDRe builds the validation pattern for a content-addressed ID with the
// given prefix.
func IDRe(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s_[0-9a-f]{16}$`, regexp.QuoteMeta(prefix)))
}
