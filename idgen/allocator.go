package idgen

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	sequenceBits = 12
	workerBits   = 5
	siteBits     = 5

	workerShift    = sequenceBits
	siteShift      = sequenceBits + workerBits
	timestampShift = sequenceBits + workerBits + siteBits

	// MaxSiteID is the largest accepted site id.
	MaxSiteID    = -1 ^ (-1 << siteBits)
	// MaxWorkerID is the largest accepted worker id.
	MaxWorkerID  = -1 ^ (-1 << workerBits)
	sequenceMask = -1 ^ (-1 << sequenceBits)
)

// DefaultEpoch is the custom epoch IDs are offset from (2016-04-13T02:44:22.699Z).
var DefaultEpoch = time.UnixMilli(1460515462699)

var (
	// ErrInvalidConfiguration is returned by New for out-of-range ids or an epoch in the future.
	ErrInvalidConfiguration = errors.New("idgen: invalid configuration")
	// ErrClockRegression matches every *ClockRegressionError.
	ErrClockRegression = errors.New("idgen: clock moved backwards")
)

// ClockRegressionError reports that the wall clock went behind the last
// timestamp used. The allocator that returned it refuses all later calls.
type ClockRegressionError struct {
	Last    int64
	Current int64
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards, refusing to generate id for %d ms", e.Last-e.Current)
}

// Is makes errors.Is(err, ErrClockRegression) hold.
func (e *ClockRegressionError) Is(target error) bool {
	return target == ErrClockRegression
}

// Config selects the allocator identity. Zero Epoch means DefaultEpoch, nil
// Clock means time.Now.
type Config struct {
	SiteID   int64
	WorkerID int64
	Epoch    time.Time
	Clock    func() time.Time
}

// Allocator hands out unique ids for one (site, worker) pair.
type Allocator struct {
	siteID   int64
	workerID int64
	epochMS  int64
	clock    func() time.Time

	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64
	poisoned      *ClockRegressionError
}

// New validates cfg and returns an allocator ready for concurrent use.
func New(cfg Config) (*Allocator, error) {
	if cfg.SiteID < 0 || cfg.SiteID > MaxSiteID {
		return nil, fmt.Errorf("%w: site id %d not in [0,%d]", ErrInvalidConfiguration, cfg.SiteID, MaxSiteID)
	}
	if cfg.WorkerID < 0 || cfg.WorkerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: worker id %d not in [0,%d]", ErrInvalidConfiguration, cfg.WorkerID, MaxWorkerID)
	}

	epoch := cfg.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if clock().Before(epoch) {
		return nil, fmt.Errorf("%w: epoch %s is in the future", ErrInvalidConfiguration, epoch.UTC().Format(time.RFC3339))
	}

	return &Allocator{
		siteID:        cfg.SiteID,
		workerID:      cfg.WorkerID,
		epochMS:       epoch.UnixMilli(),
		clock:         clock,
		lastTimestamp: -1,
	}, nil
}

// NextID returns an id never returned before by this allocator.
//
// A backwards clock step fails the call with *ClockRegressionError and
// leaves the allocator permanently failed; the operator has to fix the
// clock and restart the process.
func (a *Allocator) NextID() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.poisoned != nil {
		return 0, a.poisoned
	}

	ts := a.now()
	if ts < a.lastTimestamp {
		a.poisoned = &ClockRegressionError{Last: a.lastTimestamp, Current: ts}
		return 0, a.poisoned
	}

	if ts == a.lastTimestamp {
		a.sequence = (a.sequence + 1) & sequenceMask
		if a.sequence == 0 {
			ts = a.waitNextMillis(a.lastTimestamp)
		}
	} else {
		a.sequence = 0
	}
	a.lastTimestamp = ts

	id := (ts-a.epochMS)<<timestampShift |
		a.siteID<<siteShift |
		a.workerID<<workerShift |
		a.sequence
	return uint64(id), nil
}

// SiteID reports the configured site id.
func (a *Allocator) SiteID() int64 { return a.siteID }

// WorkerID reports the configured worker id.
func (a *Allocator) WorkerID() int64 { return a.workerID }

func (a *Allocator) now() int64 {
	return a.clock().UnixMilli()
}

func (a *Allocator) waitNextMillis(last int64) int64 {
	ts := a.now()
	for ts <= last {
		ts = a.now()
	}
	return ts
}

// Parts is an id split back into its fields.
type Parts struct {
	Time     time.Time
	SiteID   int64
	WorkerID int64
	Sequence int64
}

// Decompose splits id using epoch (zero means DefaultEpoch).
func Decompose(id uint64, epoch time.Time) Parts {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	v := int64(id)
	return Parts{
		Time:     time.UnixMilli(epoch.UnixMilli() + v>>timestampShift),
		SiteID:   (v >> siteShift) & MaxSiteID,
		WorkerID: (v >> workerShift) & MaxWorkerID,
		Sequence: v & sequenceMask,
	}
}
