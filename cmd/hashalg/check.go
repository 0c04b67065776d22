package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/hashalg/algebra"
	"github.com/chazu/hashalg/algebra/notation"
	"github.com/chazu/hashalg/manifest"
	"github.com/chazu/hashalg/memo"
	"github.com/chazu/hashalg/store"
)

type fixtureResult struct {
	name   string
	tree   algebra.Hash
	digest int64
	err    error
}

func newCheckCmd(opts *options) *cobra.Command {
	var (
		workers     int
		showMetrics bool
		record      bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the fixtures in " + manifest.FileName + " and verify their expectations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := opts.manifest
			if m == nil {
				return fmt.Errorf("no %s found from %s", manifest.FileName, opts.dir)
			}
			if workers <= 0 {
				workers = m.Check.Workers
			}

			reg := prometheus.NewRegistry()
			digester, err := memo.NewDigester(reg)
			if err != nil {
				return err
			}

			results, err := evalFixtures(cmd, m, digester, workers)
			if err != nil {
				return err
			}
			failed := reportFixtures(cmd.OutOrStdout(), m, results)

			if showMetrics {
				if err := printMetrics(cmd.OutOrStdout(), reg); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fixtures failed", failed, len(results))
			}

			if record {
				return recordFixtures(cmd, opts.resolveStorePath(), results)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "parallel evaluations (default from manifest)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print memo counters after the run")
	cmd.Flags().BoolVar(&record, "record", false, "store every fixture in the digest store when all pass")
	return cmd
}

// evalFixtures parses and digests every fixture concurrently. Per-fixture
// problems are reported in the result; only cancellation aborts the run.
func evalFixtures(cmd *cobra.Command, m *manifest.Manifest, d *memo.Digester, workers int) ([]fixtureResult, error) {
	names := m.FixtureNames()
	results := make([]fixtureResult, len(names))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = evalFixture(name, m.Fixtures[name], d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Infof("evaluated %d fixtures with %d workers", len(names), workers)
	return results, nil
}

func evalFixture(name string, f manifest.Fixture, d *memo.Digester) fixtureResult {
	h, err := notation.Parse(f.Expr)
	if err != nil {
		return fixtureResult{name: name, err: err}
	}
	if err := algebra.Check(h); err != nil {
		return fixtureResult{name: name, err: err}
	}
	return fixtureResult{name: name, tree: h, digest: d.Digest(h)}
}

var errExpectation = errors.New("expectation failed")

// reportFixtures prints one line per fixture and returns the number of
// failures.
func reportFixtures(out io.Writer, m *manifest.Manifest, results []fixtureResult) int {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()

	byName := make(map[string]fixtureResult, len(results))
	for _, r := range results {
		byName[r.name] = r
	}

	failed := 0
	for _, r := range results {
		err := r.err
		if err == nil {
			err = checkExpectations(r, m.Fixtures[r.name], byName)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", fail("FAIL"), r.name, err)
			continue
		}
		fmt.Fprintf(out, "%s %s %d\n", pass("PASS"), r.name, r.digest)
	}
	return failed
}

func checkExpectations(r fixtureResult, f manifest.Fixture, byName map[string]fixtureResult) error {
	if f.Digest != nil && *f.Digest != r.digest {
		return fmt.Errorf("%w: digest %d, want %d", errExpectation, r.digest, *f.Digest)
	}
	if f.SameAs != "" {
		other := byName[f.SameAs]
		if other.err != nil {
			return fmt.Errorf("%w: same_as %s did not evaluate", errExpectation, f.SameAs)
		}
		if other.digest != r.digest {
			return fmt.Errorf("%w: digest %d differs from %s (%d)", errExpectation, r.digest, f.SameAs, other.digest)
		}
	}
	if f.DiffersFrom != "" {
		other := byName[f.DiffersFrom]
		if other.err != nil {
			return fmt.Errorf("%w: differs_from %s did not evaluate", errExpectation, f.DiffersFrom)
		}
		if other.digest == r.digest {
			return fmt.Errorf("%w: digest %d equals %s", errExpectation, r.digest, f.DiffersFrom)
		}
	}
	return nil
}

func recordFixtures(cmd *cobra.Command, path string, results []fixtureResult) error {
	s, err := store.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range results {
		if _, err := s.Put(cmd.Context(), r.name, r.tree); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recorded %d fixtures in %s\n", len(results), path)
	return nil
}

func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), c.GetValue())
			}
		}
	}
	return nil
}
