package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	sessions    int
	concurrency int
	ops         int
	miniredis   bool
	scope       string
}

type benchSession struct {
	id      string
	access  string
	mu      sync.Mutex
	refresh string
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

func newBenchCmd(flags *globalFlags) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load test authenticate and rotate against the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return errors.New("sessions, concurrency and ops must be > 0")
			}

			fc, err := flags.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if opts.miniredis {
				mr, err := miniredis.Run()
				if err != nil {
					return fmt.Errorf("start miniredis: %w", err)
				}
				defer mr.Close()
				fc.Store.URL = "redis://" + mr.Addr()
				fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
			}
			// The pool must cover every worker or the bench measures pool waits.
			if fc.Store.PoolSize < opts.concurrency {
				fc.Store.PoolSize = opts.concurrency
			}

			s, err := openSession(fc, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			return runBench(cmd.Context(), out, s, opts)
		},
	}

	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of token pairs to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().BoolVar(&opts.miniredis, "miniredis", false, "run against an in-process miniredis")
	cmd.Flags().StringVar(&opts.scope, "scope", "bench", "scope to issue tokens in")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, s *session, opts *benchOptions) error {
	scope, err := s.scope(opts.scope)
	if err != nil {
		return err
	}

	states := make([]benchSession, opts.sessions)
	fmt.Fprintf(out, "seeding %d sessions...\n", opts.sessions)
	startSeed := time.Now()
	for i := range states {
		id := strconv.Itoa(i)
		pair, err := s.engine.IssueTokens(ctx, scope, id)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		states[i].id, states[i].access, states[i].refresh = id, pair.AccessToken, pair.RefreshToken
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(opts, 7919, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		auth := s.engine.NewAuthentication(scope, goWarden.StaticCredentials{ID: st.id, AccessToken: st.access})
		return auth.Authenticate(ctx)
	})

	rotateStats := runPhase(opts, 6151, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()

		auth := s.engine.NewAuthentication(scope, goWarden.StaticCredentials{ID: st.id, RefreshToken: st.refresh})
		pair, err := s.engine.Rotate(ctx, auth)
		if err != nil {
			return err
		}
		st.refresh = pair.RefreshToken
		return nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authenticate", authStats)
	printStats(out, "rotate", rotateStats)
	return nil
}

func runPhase(opts *benchOptions, seed int64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1))-1 >= opts.ops {
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
	return computeStats(time.Since(start), latencies, failures)
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
