package password

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// LegacyMD5 verifies unsalted MD5 hex digests carried over from older
// account stores. It refuses to create new ones.
type LegacyMD5 struct{}

var errLegacyHash = errors.New("password: md5 hashes are verify-only")

func (LegacyMD5) Hash(string) (string, error) {
	return "", errLegacyHash
}

func (LegacyMD5) Verify(password, encodedHash string) (bool, error) {
	if len(encodedHash) != md5.Size*2 {
		return false, ErrMalformedHash
	}
	sum := md5.Sum([]byte(password))
	want := strings.ToLower(encodedHash)
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(want)) == 1, nil
}

// NeedsUpgrade is always true.
func (LegacyMD5) NeedsUpgrade(string) (bool, error) {
	return true, nil
}

func (LegacyMD5) Scheme() Scheme { return SchemeMD5Hex }

func (LegacyMD5) recognizes(encodedHash string) bool {
	if len(encodedHash) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(encodedHash)
	return err == nil
}
