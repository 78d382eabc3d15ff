package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable reports that the backend could not serve the call.
var ErrUnavailable = errors.New("kv store unavailable")

// Store is the contract the session store and authorization cache depend on.
//
// Get reports a missing or expired key as (nil, false, nil). A ttl of zero
// on Set means the entry does not expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func prefixPattern(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}
