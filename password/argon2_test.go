package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapConfig is the lowest cost NewArgon2 accepts.
func cheapConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestArgon2HashAndVerify(t *testing.T) {
	h := newArgon2(t, cheapConfig())

	// legacy accounts carry short passwords; there is no minimum length
	for _, pwd := range []string{"x", "123456", "correct-horse", "pässwörd"} {
		hash, err := h.Hash(pwd)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pwd, err)
		}
		if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
			t.Fatalf("unexpected PHC prefix: %s", hash)
		}
		if ok, err := h.Verify(pwd, hash); err != nil || !ok {
			t.Fatalf("Verify(%q): ok=%v err=%v", pwd, ok, err)
		}
		if ok, err := h.Verify(pwd+"!", hash); err != nil || ok {
			t.Fatalf("Verify(%q+!): ok=%v err=%v", pwd, ok, err)
		}
	}
}

func TestArgon2HashesAreSalted(t *testing.T) {
	h := newArgon2(t, cheapConfig())
	a, _ := h.Hash("admin123")
	b, _ := h.Hash("admin123")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestArgon2EmptyPassword(t *testing.T) {
	h := newArgon2(t, cheapConfig())
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}

	hash, _ := h.Hash("a")
	if ok, err := h.Verify("", hash); err != nil || ok {
		t.Fatalf("empty input must not verify: ok=%v err=%v", ok, err)
	}
}

func TestArgon2PasswordLengthCap(t *testing.T) {
	cfg := cheapConfig()
	cfg.MaxPasswordBytes = 64
	h := newArgon2(t, cfg)

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("Hash at the cap: %v", err)
	}
	if ok, err := h.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("Verify at the cap: ok=%v err=%v", ok, err)
	}

	long := strings.Repeat("c", 65)
	if _, err := h.Hash(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash over the cap: %v", err)
	}
	if _, err := h.Verify(long, hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Verify over the cap: %v", err)
	}

	def := newArgon2(t, cheapConfig())
	if _, err := def.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected the default cap of %d bytes, got %v", DefaultMaxPasswordBytes, err)
	}
}

func TestArgon2MalformedHashes(t *testing.T) {
	h := newArgon2(t, cheapConfig())
	good, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	parts := strings.Split(good, "$")

	tests := map[string]string{
		"not phc":         "not-a-phc-hash",
		"md5 hex":         "e10adc3949ba59abbe56e057f20f883e",
		"wrong algorithm": strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"wrong version":   strings.Replace(good, "$v=19$", "$v=18$", 1),
		"weak memory":     strings.Replace(good, "m=8192", "m=1024", 1),
		"missing param":   strings.Replace(good, ",p=1", "", 1),
		"unknown param":   strings.Replace(good, "p=1", "x=1", 1),
		"short salt":      strings.Join([]string{"", parts[1], parts[2], parts[3], "c2FsdA==", parts[5]}, "$"),
		"bad hash b64":    strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], "!!"}, "$"),
	}
	for name, hash := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Verify("correct-horse", hash); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("Verify: expected ErrMalformedHash, got %v", err)
			}
			if _, err := h.NeedsUpgrade(hash); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("NeedsUpgrade: expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	stored := newArgon2(t, cheapConfig())
	hash, err := stored.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"same parameters", func(*Config) {}, false},
		{"more memory", func(c *Config) { c.Memory = 16 * 1024 }, true},
		{"more passes", func(c *Config) { c.Time = 2 }, true},
		{"more lanes", func(c *Config) { c.Parallelism = 2 }, true},
		{"different key length", func(c *Config) { c.KeyLength = 16 }, true},
		{"longer salt only", func(c *Config) { c.SaltLength = 32 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := cheapConfig()
			tc.mutate(&cfg)
			got, err := newArgon2(t, cfg).NeedsUpgrade(hash)
			if err != nil {
				t.Fatalf("NeedsUpgrade: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NeedsUpgrade = %v, want %v", got, tc.want)
			}
		})
	}

	// a stored hash stronger than the current policy is left alone
	strong := cheapConfig()
	strong.Memory = 16 * 1024
	strongHash, _ := newArgon2(t, strong).Hash("correct-horse")
	if up, err := stored.NeedsUpgrade(strongHash); err != nil || up {
		t.Fatalf("stronger hash flagged: up=%v err=%v", up, err)
	}
}

func TestMultiUpgradesWeakerArgon2(t *testing.T) {
	old := newArgon2(t, cheapConfig())
	weak, err := old.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	cfg := cheapConfig()
	cfg.Time = 2
	m, err := NewMulti(newArgon2(t, cfg), LegacyMD5{})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}

	if ok, err := m.Verify("correct-horse", weak); err != nil || !ok {
		t.Fatalf("Verify: ok=%v err=%v", ok, err)
	}
	if up, err := m.NeedsUpgrade(weak); err != nil || !up {
		t.Fatalf("expected weaker argon2 hash upgraded: up=%v err=%v", up, err)
	}

	rehashed, err := m.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if up, err := m.NeedsUpgrade(rehashed); err != nil || up {
		t.Fatalf("rehashed value must be current: up=%v err=%v", up, err)
	}
	if s, _ := m.Detect(rehashed); s != SchemeArgon2id {
		t.Fatalf("Detect = %q", s)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	tests := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 4096 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, mutate := range tests {
		cfg := cheapConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected weak config rejected", name)
		}
	}
}
