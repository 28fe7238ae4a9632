package soltoken

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writePlainKeyFile(t *testing.T, secret []byte) string {
	t.Helper()

	raw := make([]int, len(secret))
	for i, b := range secret {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	path := filepath.Join(t.TempDir(), "full.json")
	if err = os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("%+v", err)
	}

	return path
}

func TestLoadKeypairFile_PlainJSONArray(t *testing.T) {
	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	secret, err := kp.SecretBytes()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	loaded, err := LoadKeypairFile(writePlainKeyFile(t, secret), "")
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if loaded.PublicKey() != kp.PublicKey() {
		t.Fatalf("expected %s, got %s", kp.PublicKey(), loaded.PublicKey())
	}
}

func TestLoadKeypairFile_RejectsShortArray(t *testing.T) {
	_, err := LoadKeypairFile(writePlainKeyFile(t, make([]byte, 32)), "")
	if !errors.Is(err, ErrKeyFormat) {
		t.Fatalf("expected ErrKeyFormat for a 32 byte seed, got %+v", err)
	}
}

func TestEncryptedKeyFile_RoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	secret, err := kp.SecretBytes()
	if err != nil {
		t.Fatalf("%+v", err)
	}

	path := filepath.Join(t.TempDir(), "keystore.json")
	if err = WriteEncryptedKeyFile(path, secret, "hunter2"); err != nil {
		t.Fatalf("%+v", err)
	}

	loaded, err := LoadKeypairFile(path, "hunter2")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if loaded.PublicKey() != kp.PublicKey() {
		t.Fatal("decrypted keypair must match the original")
	}

	if _, err = LoadKeypairFile(path, "wrong"); !errors.Is(err, ErrKeyFormat) {
		t.Fatalf("expected ErrKeyFormat for wrong passphrase, got %+v", err)
	}

	if _, err = LoadKeypairFile(path, ""); !errors.Is(err, ErrKeyFormat) {
		t.Fatalf("expected ErrKeyFormat for missing passphrase, got %+v", err)
	}
}
