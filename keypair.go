package soltoken

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/pkg/errors"
)

// SecretKeyLength is the one canonical secret key encoding: the 64-byte
// ed25519 private key (seed followed by public key).
const SecretKeyLength = 64

// Keypair owns the signing key for the process lifetime. Immutable after
// load, safe for concurrent read-only use.
type Keypair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

func NewKeypairFromBytes(secret []byte) (kp *Keypair, err error) {
	if len(secret) != SecretKeyLength {
		err = errors.Wrapf(ErrKeyFormat, "expected %d secret key bytes, got %d", SecretKeyLength, len(secret))
		return
	}

	private := ed25519.PrivateKey(append([]byte{}, secret...))
	if !bytes.Equal(ed25519.NewKeyFromSeed(private.Seed()), private) {
		err = errors.Wrap(ErrKeyFormat, "public key half does not match private key half")
		return
	}

	kp = &Keypair{private: private}
	copy(kp.public[:], private.Public().(ed25519.PublicKey))

	return
}

func NewKeypair() (kp *Keypair, err error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	return NewKeypairFromBytes(private)
}

func (k *Keypair) PublicKey() PublicKey {
	return k.public
}

func (k *Keypair) Sign(message []byte) (sig Signature) {
	copy(sig[:], ed25519.Sign(k.private, message))
	return
}

// SecretBytes returns a copy of the canonical 64-byte secret encoding.
func (k *Keypair) SecretBytes() (secret []byte, err error) {
	if len(k.private) != SecretKeyLength {
		err = errors.WithStack(ErrKeyFormat)
		return
	}
	secret = append([]byte{}, k.private...)
	return
}

func (k *Keypair) Verify(message []byte, sig Signature) bool {
	return ed25519.Verify(k.private.Public().(ed25519.PublicKey), message, sig[:])
}
