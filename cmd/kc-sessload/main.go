// Command kc-sessload benchmarks the authentication-session engine against a
// Redis backend. It seeds a population of authenticated sessions, then runs
// two timed phases: cookie resolution (decode + liveness read) and full
// required-action sequences (enqueue, begin, complete).
//
// With no -redis-addr and no REDIS_ADDR env it runs against an embedded
// miniredis, which measures engine overhead rather than network latency.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mathrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	keycloak "github.com/tullisdebbi6/keycloak"
	"github.com/tullisdebbi6/keycloak/action"
)

const realmID = "load"

type sessionState struct {
	rootID string
	cookie string
	tabID  string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadsess", "session key prefix")
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

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate secret: %v\n", err)
		os.Exit(1)
	}

	engine, err := keycloak.New().
		WithConfig(keycloak.Config{
			Session: keycloak.SessionConfig{RedisPrefix: *prefix, MaxLifespan: time.Hour},
			Token:   keycloak.TokenConfig{Secret: secret},
			// Events off: measure session plumbing, not sink throughput.
			Events: keycloak.EventsConfig{Enabled: false},
		}).
		WithRedis(client).
		WithActionProvider(action.TypeUpdateProfile, func() (action.Provider, error) {
			return action.NewUpdateProfile(noopProfileUpdater{})
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		root, cookie, err := engine.CreateSession(ctx, realmID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		tabID, err := engine.CreateTab(ctx, realmID, root.RootID, "load-client")
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		if err := engine.MarkAuthenticated(ctx, realmID, root.RootID, tabID, "load-client", fmt.Sprintf("user-%d", i)); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{rootID: root.RootID, cookie: cookie, tabID: tabID}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, engine, states, *ops, *concurrency)
	sequenceStats := runSequencePhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("sequence", sequenceStats)
}

func runResolvePhase(ctx context.Context, engine *keycloak.Engine, states []sessionState, ops, concurrency int) phaseStats {
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
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				_, err := engine.ResolveSession(ctx, realmID, state.cookie)
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
	return computeStats(time.Since(start), latencies, failures)
}

// runSequencePhase drives a full enqueue/begin/complete cycle per operation.
// Each worker owns a disjoint shard of the population so two workers never
// race on one tab's queue.
func runSequencePhase(ctx context.Context, engine *keycloak.Engine, states []sessionState, ops, concurrency int) phaseStats {
	if concurrency > len(states) {
		concurrency = len(states)
	}
	shard := len(states) / concurrency

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
			for k := 0; ; k++ {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[worker*shard+k%shard]

				t0 := time.Now()
				err := runSequence(ctx, engine, state)
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
	return computeStats(time.Since(start), latencies, failures)
}

func runSequence(ctx context.Context, engine *keycloak.Engine, state *sessionState) error {
	if err := engine.EnqueueAction(ctx, realmID, state.rootID, state.tabID, action.TypeUpdateProfile, keycloak.OriginApplicationInitiated); err != nil {
		return err
	}
	if _, err := engine.BeginAction(ctx, realmID, state.rootID, state.tabID, keycloak.BeginOptions{}); err != nil {
		return err
	}
	_, err := engine.CompleteAction(ctx, realmID, state.rootID, state.tabID, keycloak.OutcomeSuccess,
		map[string]string{"profile.locale": "en"})
	return err
}

type noopProfileUpdater struct{}

func (noopProfileUpdater) UpdateProfile(ctx context.Context, realmID, userID string, attributes map[string]string) error {
	return nil
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
	fmt.Printf("%-9s ops=%d failures=%d total=%s rate=%.0f/s p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
