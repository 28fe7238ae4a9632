package soltoken

import (
	"time"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const DefaultTimeout = 30 * time.Second

// Config carries everything the components need; it is passed in
// explicitly rather than read from ambient globals.
type Config struct {
	RpcURL       string
	BuilderURL   string
	ProgramID    PublicKey
	MintPubkey   PublicKey
	KeystorePath string
	DatabasePath string
	Timeout      time.Duration
}

// LoadConfig reads the toml-sectioned config file:
//
//	[rpc]      url = "http://localhost:8899"
//	[program]  id = "<base58>"
//	[mint]     pubkey = "<base58>"
//	[builder]  url = "http://localhost:5000"
//	           timeout_seconds = 30
//	[keystore] path = "keys/full.json"
//	[database] path = "soltoken.db"
func LoadConfig(path string) (cfg *Config, err error) {
	file, err := ini.Load(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return
	}

	cfg = &Config{Timeout: DefaultTimeout}

	cfg.RpcURL = file.Section("rpc").Key("url").String()
	if cfg.RpcURL == "" {
		err = errors.Errorf("config %s missing [rpc] url", path)
		return
	}

	cfg.BuilderURL = file.Section("builder").Key("url").String()
	if cfg.BuilderURL == "" {
		err = errors.Errorf("config %s missing [builder] url", path)
		return
	}

	programID := file.Section("program").Key("id").String()
	if cfg.ProgramID, err = ParsePublicKey(programID); err != nil {
		err = errors.Wrapf(err, "config %s has invalid [program] id", path)
		return
	}

	mint := file.Section("mint").Key("pubkey").String()
	if cfg.MintPubkey, err = ParsePublicKey(mint); err != nil {
		err = errors.Wrapf(err, "config %s has invalid [mint] pubkey", path)
		return
	}

	if seconds := file.Section("builder").Key("timeout_seconds").MustInt(0); seconds > 0 {
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	cfg.KeystorePath = file.Section("keystore").Key("path").String()
	cfg.DatabasePath = file.Section("database").Key("path").String()

	return
}
