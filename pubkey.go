package soltoken

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const PublicKeyLength = 32

// PublicKey is a 32-byte ed25519 account address, rendered as base58 on the
// wire and in logs.
type PublicKey [PublicKeyLength]byte

var (
	SystemProgramID          = MustParsePublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParsePublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

func ParsePublicKey(encoded string) (pub PublicKey, err error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode public key '%s'", encoded)
		return
	}

	return PublicKeyFromBytes(decoded)
}

func MustParsePublicKey(encoded string) PublicKey {
	pub, err := ParsePublicKey(encoded)
	if err != nil {
		panic(err)
	}
	return pub
}

func PublicKeyFromBytes(data []byte) (pub PublicKey, err error) {
	if len(data) != PublicKeyLength {
		err = errors.Errorf("expected a %d byte public key, got %d", PublicKeyLength, len(data))
		return
	}
	copy(pub[:], data)
	return
}

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

func (p PublicKey) Bytes() []byte {
	return p[:]
}

func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// IsOnCurve reports whether the bytes decode to a valid ed25519 curve point,
// i.e. whether the address could be controlled by a real keypair. Program
// derived addresses must be off-curve.
func (p PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

func (p PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *PublicKey) UnmarshalJSON(data []byte) (err error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.Errorf("expected a base58 string, got %s", string(data))
	}
	*p, err = ParsePublicKey(string(data[1 : len(data)-1]))
	return
}
