package soltoken

import (
	"bytes"
	"encoding/base64"

	"github.com/pkg/errors"
)

const UserIDLength = 32

// UserID is an opaque fixed-width ledger-side account key. Free-form
// identifiers are zero-padded to 32 bytes; uniqueness is the caller's
// responsibility.
type UserID [UserIDLength]byte

func NewUserID(s string) (id UserID, err error) {
	if len(s) > UserIDLength {
		err = errors.Errorf("user id '%s' is %d bytes, max %d", s, len(s), UserIDLength)
		return
	}
	copy(id[:], s)
	return
}

// ParseUserID decodes the base64 transport form.
func ParseUserID(encoded string) (id UserID, err error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode user id '%s'", encoded)
		return
	}
	if len(decoded) != UserIDLength {
		err = errors.Errorf("expected a %d byte user id, got %d", UserIDLength, len(decoded))
		return
	}
	copy(id[:], decoded)
	return
}

func (u UserID) Base64() string {
	return base64.StdEncoding.EncodeToString(u[:])
}

func (u UserID) String() string {
	return string(bytes.TrimRight(u[:], "\x00"))
}

func (u UserID) IsZero() bool {
	return u == UserID{}
}
