package vault

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/guardianvault/vaultd/internal/common"
)

// maxPrincipalLen is the longest raw principal the identity layer issues.
const maxPrincipalLen = 29

// principalEncoding is unpadded RFC 4648 base32 over the lowercase alphabet
// used by the canonical text form.
var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is an opaque immutable identifier supplied by the identity
// layer. It is used as owner, guardian, and recipient identity throughout
// the vault. Equality is exact byte comparison; the zero value is the
// empty (invalid) principal.
type Principal struct {
	raw string
}

// AnonymousPrincipal is the well-known identity of unauthenticated callers.
var AnonymousPrincipal = Principal{raw: "\x04"}

// PrincipalFromBytes builds a Principal from its raw bytes. The input is
// copied; it must be between 1 and 29 bytes.
func PrincipalFromBytes(b []byte) (Principal, error) {
	if len(b) == 0 || len(b) > maxPrincipalLen {
		return Principal{}, fmt.Errorf("%w: %d bytes", common.ErrInvalidPrincipal, len(b))
	}
	return Principal{raw: string(b)}, nil
}

// PrincipalFromText parses the canonical text form produced by String:
// lowercase base32 of a CRC-32 checksum followed by the raw bytes, in
// dash-separated groups of five characters.
func PrincipalFromText(s string) (Principal, error) {
	compact := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "")
	decoded, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", common.ErrInvalidPrincipal, err)
	}
	if len(decoded) < 5 || len(decoded) > maxPrincipalLen+4 {
		return Principal{}, fmt.Errorf("%w: %d bytes", common.ErrInvalidPrincipal, len(decoded))
	}
	sum := binary.BigEndian.Uint32(decoded[:4])
	raw := decoded[4:]
	if sum != crc32.ChecksumIEEE(raw) {
		return Principal{}, fmt.Errorf("%w: checksum mismatch", common.ErrInvalidPrincipal)
	}
	return Principal{raw: string(raw)}, nil
}

// MustPrincipal parses the canonical text form and panics on failure.
// Intended for tests and fixed well-known identities.
func MustPrincipal(s string) Principal {
	p, err := PrincipalFromText(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Bytes returns a copy of the raw principal bytes.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// IsZero reports whether p is the empty (invalid) principal.
func (p Principal) IsZero() bool {
	return p.raw == ""
}

// String renders the canonical text form. The empty principal renders as
// the empty string.
func (p Principal) String() string {
	if p.IsZero() {
		return ""
	}
	payload := make([]byte, 4+len(p.raw))
	binary.BigEndian.PutUint32(payload, crc32.ChecksumIEEE([]byte(p.raw)))
	copy(payload[4:], p.raw)

	encoded := strings.ToLower(principalEncoding.EncodeToString(payload))
	var sb strings.Builder
	for i, r := range encoded {
		if i > 0 && i%5 == 0 {
			sb.WriteByte('-')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// containsPrincipal reports whether p occurs in the given list.
func containsPrincipal(list []Principal, p Principal) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}
