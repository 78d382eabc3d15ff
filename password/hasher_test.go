package password

import (
	"errors"
	"testing"
)

func testMulti(t *testing.T) (*Multi, *Bcrypt) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	argon, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	bc, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	m, err := NewMulti(argon, bc, LegacyMD5{})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}
	return m, bc
}

func TestMultiVerifiesLegacyMD5AndFlagsUpgrade(t *testing.T) {
	m, _ := testMulti(t)
	// md5("123456")
	const stored = "e10adc3949ba59abbe56e057f20f883e"

	ok, err := m.Verify("123456", stored)
	if err != nil || !ok {
		t.Fatalf("expected md5 match, ok=%v err=%v", ok, err)
	}
	if ok, _ := m.Verify("654321", stored); ok {
		t.Fatal("expected md5 mismatch")
	}
	if up, _ := m.NeedsUpgrade(stored); !up {
		t.Fatal("md5 hashes must always need upgrade")
	}
	if s, _ := m.Detect("E10ADC3949BA59ABBE56E057F20F883E"); s != SchemeMD5Hex {
		t.Fatalf("expected uppercase hex detected as md5, got %q", s)
	}
}

func TestMultiHashesWithPrimary(t *testing.T) {
	m, _ := testMulti(t)

	hash, err := m.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if s, _ := m.Detect(hash); s != SchemeArgon2id {
		t.Fatalf("expected argon2id, got %q", s)
	}
	if ok, err := m.Verify("correct horse", hash); err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if up, err := m.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("fresh primary hash must not need upgrade, up=%v err=%v", up, err)
	}
}

func TestMultiVerifiesBcrypt(t *testing.T) {
	m, bc := testMulti(t)

	hash, err := bc.Hash("s3cret")
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}
	if ok, err := m.Verify("s3cret", hash); err != nil || !ok {
		t.Fatalf("expected bcrypt match, ok=%v err=%v", ok, err)
	}
	if up, _ := m.NeedsUpgrade(hash); !up {
		t.Fatal("non-primary scheme must need upgrade")
	}
}

func TestMultiUnknownScheme(t *testing.T) {
	m, _ := testMulti(t)
	if _, err := m.Verify("x", "plaintext-in-db"); !errors.Is(err, ErrUnknownScheme) {
		t.Fatalf("expected ErrUnknownScheme, got %v", err)
	}
}

func TestLegacyMD5RefusesToHash(t *testing.T) {
	if _, err := (LegacyMD5{}).Hash("x"); err == nil {
		t.Fatal("expected md5 hashing to be refused")
	}
}
