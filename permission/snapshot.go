package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is the computed role and permission set of one principal.
// Both slices are sorted and free of duplicates.
type Snapshot struct {
	Roles       []string
	Permissions []string
}

// NewSnapshot normalizes roles and permissions into a Snapshot, dropping
// blanks and duplicates.
func NewSnapshot(roles, permissions []string) Snapshot {
	return Snapshot{
		Roles:       normalizeSet(roles),
		Permissions: normalizeSet(permissions),
	}
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// HasRole reports whether role is one of s.Roles.
func (s Snapshot) HasRole(role string) bool {
	i := sort.SearchStrings(s.Roles, role)
	return i < len(s.Roles) && s.Roles[i] == role
}

// IsPermitted reports whether any granted permission implies required.
func (s Snapshot) IsPermitted(required string) bool {
	want, err := ParseWildcard(required)
	if err != nil {
		return false
	}
	for _, granted := range s.Permissions {
		g, err := ParseWildcard(granted)
		if err != nil {
			continue
		}
		if g.Implies(want) {
			return true
		}
	}
	return false
}

const snapshotSchemaVersion uint8 = 1

var errSnapshotSchema = errors.New("unsupported snapshot schema version")

var snapshotEncMode cbor.EncMode

func init() {
	var err error
	snapshotEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("permission: CBOR encoder initialization failed: " + err.Error())
	}
}

type wireSnapshot struct {
	Roles       []string `cbor:"1,keyasint"`
	Permissions []string `cbor:"2,keyasint"`
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	payload, err := snapshotEncMode.Marshal(wireSnapshot{Roles: s.Roles, Permissions: s.Permissions})
	if err != nil {
		return nil, err
	}
	return append([]byte{snapshotSchemaVersion}, payload...), nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 || data[0] != snapshotSchemaVersion {
		return Snapshot{}, errSnapshotSchema
	}
	var w wireSnapshot
	if err := cbor.Unmarshal(data[1:], &w); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return NewSnapshot(w.Roles, w.Permissions), nil
}
