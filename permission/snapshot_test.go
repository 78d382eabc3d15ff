package permission

import "testing"

func TestSnapshotIsPermitted(t *testing.T) {
	tests := []struct {
		name  string
		perms []string
		want  bool
	}{
		{"wildcard grant", []string{"user:*"}, true},
		{"exact grant", []string{"user:list"}, true},
		{"unrelated only", []string{"order:list", "report:*"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewSnapshot(nil, tt.perms)
			if got := snap.IsPermitted("user:list"); got != tt.want {
				t.Fatalf("IsPermitted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSnapshotNormalizes(t *testing.T) {
	snap := NewSnapshot([]string{"admin", " ", "admin", "ops"}, []string{"b", "a", "b", ""})

	if len(snap.Roles) != 2 || snap.Roles[0] != "admin" || snap.Roles[1] != "ops" {
		t.Fatalf("unexpected roles %v", snap.Roles)
	}
	if len(snap.Permissions) != 2 || snap.Permissions[0] != "a" {
		t.Fatalf("unexpected permissions %v", snap.Permissions)
	}
	if !snap.HasRole("ops") || snap.HasRole("guest") {
		t.Fatalf("HasRole mismatch")
	}
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	in := NewSnapshot([]string{"admin"}, []string{"user:*", "/admin/menu"})
	data, err := encodeSnapshot(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Roles) != 1 || len(out.Permissions) != 2 || !out.IsPermitted("user:list") {
		t.Fatalf("unexpected snapshot %+v", out)
	}
}
