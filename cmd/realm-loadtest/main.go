// Command realm-loadtest measures session and authorization cache latency
// against Redis (or miniredis) and checks id allocation for duplicates.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goRealm/idgen"
	"github.com/MrEthical07/goRealm/kv"
	"github.com/MrEthical07/goRealm/permission"
	"github.com/MrEthical07/goRealm/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const realmName = "authorizationCache"

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", session.DefaultKeyPrefix, "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	cleanup := func() {}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	backend := kv.NewRedisFromOptions(&redis.UniversalOptions{Addrs: []string{addr}}, kv.RedisConfig{})
	defer backend.Close()

	store := session.NewStore(backend, session.Config{KeyPrefix: *prefix, TTL: 24 * time.Hour})
	cache := permission.NewCache(backend, permission.CacheConfig{TTL: time.Hour})

	ids := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		userID := int64(i + 1)
		id, err := store.Create(ctx, &session.Session{
			Principal: &session.Principal{ID: userID, LoginName: fmt.Sprintf("user-%d", i)},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = id
		snap := permission.NewSnapshot([]string{"member"}, []string{"/orders/list", "report:view"})
		if err := cache.Put(ctx, realmName, userID, snap); err != nil {
			fmt.Fprintf(os.Stderr, "cache put failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, ok, err := store.Read(ctx, ids[r.Intn(len(ids))])
		if err == nil && !ok {
			return fmt.Errorf("session vanished")
		}
		return err
	})
	touchStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		_, ok, err := store.Touch(ctx, ids[r.Intn(len(ids))])
		if err == nil && !ok {
			return fmt.Errorf("session vanished")
		}
		return err
	})
	authzStats := runPhase(*ops, *concurrency, 4513, func(r *rand.Rand) error {
		snap, ok, err := cache.Get(ctx, realmName, int64(r.Intn(len(ids))+1))
		if err == nil && (!ok || !snap.IsPermitted("report:view")) {
			return fmt.Errorf("snapshot missing")
		}
		return err
	})
	idStats, duplicates := runIDPhase(*ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("read", readStats)
	printStats("touch", touchStats)
	printStats("authorize", authzStats)
	printStats("nextid", idStats)
	fmt.Printf("nextid duplicates=%d\n", duplicates)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runIDPhase(ops, concurrency int) (phaseStats, int) {
	alloc, err := idgen.New(idgen.Config{SiteID: 1, WorkerID: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "allocator: %v\n", err)
		os.Exit(1)
	}

	var (
		seenMu sync.Mutex
		seen   = make(map[uint64]struct{}, ops)
		dups   int
	)
	stats := runPhase(ops, concurrency, 3301, func(*rand.Rand) error {
		id, err := alloc.NextID()
		if err != nil {
			return err
		}
		seenMu.Lock()
		if _, ok := seen[id]; ok {
			dups++
		}
		seen[id] = struct{}{}
		seenMu.Unlock()
		return nil
	})
	return stats, dups
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
