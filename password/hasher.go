package password

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnknownScheme is returned when no configured hasher recognizes a stored hash.
	ErrUnknownScheme = errors.New("unknown password hash scheme")
)

// Scheme names a hash encoding.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeMD5Hex   Scheme = "md5"
)

// Hasher hashes new passwords and verifies stored ones.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

type schemeHasher interface {
	Hasher
	Scheme() Scheme
	recognizes(encodedHash string) bool
}

// Multi hashes with a primary scheme and verifies any of the configured
// ones, picked by the shape of the stored hash. Hashes in a non-primary
// scheme always need an upgrade.
type Multi struct {
	primary schemeHasher
	others  []schemeHasher
}

var _ Hasher = (*Multi)(nil)

// NewMulti returns a Multi hashing with primary and also accepting others.
func NewMulti(primary Hasher, others ...Hasher) (*Multi, error) {
	p, ok := primary.(schemeHasher)
	if !ok {
		return nil, fmt.Errorf("password: primary hasher %T has no scheme", primary)
	}
	m := &Multi{primary: p}
	for _, o := range others {
		sh, ok := o.(schemeHasher)
		if !ok {
			return nil, fmt.Errorf("password: hasher %T has no scheme", o)
		}
		m.others = append(m.others, sh)
	}
	return m, nil
}

// Hash uses the primary scheme.
func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the stored hash format.
func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	h, err := m.pick(encodedHash)
	if err != nil {
		return false, err
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for any hash outside the primary scheme, and
// otherwise defers to the primary hasher's parameter check.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := m.pick(encodedHash)
	if err != nil {
		return false, err
	}
	if h != m.primary {
		return true, nil
	}
	return h.NeedsUpgrade(encodedHash)
}

// Detect reports the scheme of encodedHash among the configured hashers.
func (m *Multi) Detect(encodedHash string) (Scheme, error) {
	h, err := m.pick(encodedHash)
	if err != nil {
		return "", err
	}
	return h.Scheme(), nil
}

func (m *Multi) pick(encodedHash string) (schemeHasher, error) {
	if m.primary.recognizes(encodedHash) {
		return m.primary, nil
	}
	for _, h := range m.others {
		if h.recognizes(encodedHash) {
			return h, nil
		}
	}
	return nil, ErrUnknownScheme
}
