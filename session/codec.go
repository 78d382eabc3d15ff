package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CurrentSchemaVersion is written as the first byte of every encoded session.
const CurrentSchemaVersion uint8 = 1

var (
	// ErrUnsupportedSchema is returned by Decode for an unknown leading version byte.
	ErrUnsupportedSchema = errors.New("unsupported session schema version")
	// ErrCorruptSession is returned by Decode when the payload cannot be parsed.
	ErrCorruptSession = errors.New("corrupt session payload")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels: 8,
		MaxMapPairs:     1024,
	}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

type wirePrincipal struct {
	ID        int64  `cbor:"1,keyasint"`
	LoginName string `cbor:"2,keyasint"`
}

type wireSession struct {
	ID         string            `cbor:"1,keyasint"`
	Principal  *wirePrincipal    `cbor:"2,keyasint,omitempty"`
	Attributes map[string]string `cbor:"3,keyasint,omitempty"`
	CreatedAt  int64             `cbor:"4,keyasint"`
	LastAccess int64             `cbor:"5,keyasint"`
	TTLSeconds int               `cbor:"6,keyasint"`
}

// Encode serializes s with the current schema.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session: nil session")
	}
	w := wireSession{
		ID:         s.ID,
		Attributes: s.Attributes,
		CreatedAt:  s.CreatedAt.UnixMilli(),
		LastAccess: s.LastAccess.UnixMilli(),
		TTLSeconds: s.TTLSeconds,
	}
	if s.Principal != nil {
		w.Principal = &wirePrincipal{ID: s.Principal.ID, LoginName: s.Principal.LoginName}
	}

	payload, err := encMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, CurrentSchemaVersion)
	return append(out, payload...), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorruptSession)
	}
	if data[0] != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, data[0])
	}

	var w wireSession
	if err := decMode.Unmarshal(data[1:], &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	s := &Session{
		ID:            w.ID,
		Attributes:    w.Attributes,
		CreatedAt:     time.UnixMilli(w.CreatedAt),
		LastAccess:    time.UnixMilli(w.LastAccess),
		TTLSeconds:    w.TTLSeconds,
		SchemaVersion: data[0],
	}
	if w.Principal != nil {
		s.Principal = &Principal{ID: w.Principal.ID, LoginName: w.Principal.LoginName}
	}
	return s, nil
}
