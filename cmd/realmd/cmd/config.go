package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goRealm "github.com/MrEthical07/goRealm"
	"github.com/MrEthical07/goRealm/storage/postgres"
	"gopkg.in/yaml.v3"
)

type serverConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// bootstrapConfig seeds one account when no database is configured.
type bootstrapConfig struct {
	LoginName string   `yaml:"login_name"`
	Password  string   `yaml:"password"`
	Roles     []string `yaml:"roles"`
	Menus     []string `yaml:"menus"`
}

type fileConfig struct {
	Realm     goRealm.Config  `yaml:"realm"`
	Server    serverConfig    `yaml:"server"`
	Database  postgres.Config `yaml:"database"`
	Bootstrap bootstrapConfig `yaml:"bootstrap"`
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		Realm: goRealm.DefaultConfig(),
		Server: serverConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
	}
}

// loadConfig overlays the YAML file at path, or $REALM_CONFIG, onto the
// defaults. Environment variables win over the file for secrets.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultFileConfig()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("REALM_CONFIG"))
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decodeConfig(raw, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("REALM_DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("REALM_REDIS_ADDR")); v != "" {
		cfg.Realm.Store.Addrs = strings.Split(v, ",")
	}
	if v := os.Getenv("REALM_REDIS_PASSWORD"); v != "" {
		cfg.Realm.Store.Password = v
	}

	if err := cfg.Realm.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeConfig(raw []byte, cfg *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
