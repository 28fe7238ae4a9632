package soltoken

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const keystoreSaltLength = 16

// encryptedKeyFile is the envelope written for passphrase-protected keys.
// The plain JSON integer-array format is still accepted for compatibility
// with existing key files.
type encryptedKeyFile struct {
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func deriveKeystoreKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1<<16, 8, 1, chacha20poly1305.KeySize)
}

// LoadKeypairFile reads a secret key file and returns the loaded Keypair.
// A file starting with '[' is the plain 64-integer JSON array; anything else
// must be an encrypted envelope, in which case passphrase is required.
func LoadKeypairFile(path, passphrase string) (kp *Keypair, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read key file: %s", path)
		return
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		err = errors.Wrapf(ErrKeyFormat, "key file %s is empty", path)
		return
	}

	if trimmed[0] == '[' {
		return loadPlainKeyFile(trimmed)
	}

	return loadEncryptedKeyFile(trimmed, passphrase)
}

func loadPlainKeyFile(data []byte) (kp *Keypair, err error) {
	var raw []int
	if err = json.Unmarshal(data, &raw); err != nil {
		err = errors.Wrapf(ErrKeyFormat, "key file is not a json byte array: %v", err)
		return
	}

	secret := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			err = errors.Wrapf(ErrKeyFormat, "key byte %d out of range: %d", i, v)
			return
		}
		secret[i] = byte(v)
	}

	return NewKeypairFromBytes(secret)
}

func loadEncryptedKeyFile(data []byte, passphrase string) (kp *Keypair, err error) {
	envelope := &encryptedKeyFile{}
	if err = json.Unmarshal(data, envelope); err != nil {
		err = errors.Wrapf(ErrKeyFormat, "key file is neither a byte array nor an envelope: %v", err)
		return
	}
	if envelope.KDF != "argon2id" {
		err = errors.Wrapf(ErrKeyFormat, "unsupported kdf '%s'", envelope.KDF)
		return
	}
	if passphrase == "" {
		err = errors.Wrap(ErrKeyFormat, "key file is encrypted, passphrase required")
		return
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		err = errors.Wrapf(ErrKeyFormat, "invalid salt: %v", err)
		return
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		err = errors.Wrapf(ErrKeyFormat, "invalid nonce: %v", err)
		return
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		err = errors.Wrapf(ErrKeyFormat, "invalid ciphertext: %v", err)
		return
	}

	aead, err := chacha20poly1305.New(deriveKeystoreKey(passphrase, salt))
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	secret, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		err = errors.Wrap(ErrKeyFormat, "failed to decrypt key file (wrong passphrase?)")
		return
	}

	return NewKeypairFromBytes(secret)
}

// WriteEncryptedKeyFile encrypts the secret under the passphrase and writes
// the envelope to path with owner-only permissions.
func WriteEncryptedKeyFile(path string, secret []byte, passphrase string) (err error) {
	if len(secret) != SecretKeyLength {
		return errors.Wrapf(ErrKeyFormat, "expected %d secret key bytes, got %d", SecretKeyLength, len(secret))
	}
	if passphrase == "" {
		return errors.New("passphrase required")
	}

	salt := make([]byte, keystoreSaltLength)
	if _, err = rand.Read(salt); err != nil {
		return errors.WithStack(err)
	}

	aead, err := chacha20poly1305.New(deriveKeystoreKey(passphrase, salt))
	if err != nil {
		return errors.WithStack(err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err = rand.Read(nonce); err != nil {
		return errors.WithStack(err)
	}

	envelope := &encryptedKeyFile{
		KDF:        "argon2id",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, secret, nil)),
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.Wrapf(os.WriteFile(path, data, 0o600), "failed to write key file: %s", path)
}
