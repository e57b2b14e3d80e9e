// Package montecarlo prices arithmetic-average Asian and arithmetic-mean
// basket options by simulation under geometric Brownian motion, optionally
// reduced with the geometric-average control variate.
//
// Paths are generated in fixed-size chunks. Chunk c always draws from the
// stream derived from (Seed, c) and chunk summaries are merged in chunk order,
// so an estimate depends only on its inputs and Config, never on the number
// of workers or how they were scheduled.
package montecarlo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/random"
	"github.com/atmx/pricing-engine/internal/stats"
)

// DefaultChunkSize is the number of paths simulated per chunk.
const DefaultChunkSize = 8192

// Config controls a simulation run.
type Config struct {
	Paths          int
	Seed           uint64
	ControlVariate model.ControlVariate
	Averaging      model.Averaging
	// Workers bounds the goroutines used; zero means GOMAXPROCS.
	Workers int
	// ChunkSize is the paths per chunk; zero means DefaultChunkSize.
	ChunkSize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Validate rejects configurations that cannot produce an estimate.
func (c Config) Validate() error {
	if c.Paths < 2 {
		return fmt.Errorf("%w: at least 2 paths are required, got %d", model.ErrInvalidInput, c.Paths)
	}
	switch c.ControlVariate {
	case model.ControlNone, model.ControlGeometric:
	default:
		return fmt.Errorf("%w: unknown control variate %d", model.ErrInvalidInput, int(c.ControlVariate))
	}
	switch c.Averaging {
	case model.Arithmetic:
	case model.Geometric:
		if c.ControlVariate == model.ControlGeometric {
			return fmt.Errorf("%w: a geometric payoff cannot use itself as control variate", model.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown averaging %d", model.ErrInvalidInput, int(c.Averaging))
	}
	return nil
}

// chunkFunc simulates len(x) paths from s, writing the discounted target
// payoff of path i to x[i] and the discounted geometric payoff to y[i].
type chunkFunc func(s *random.Stream, x, y []float64)

// simulate runs fn over all chunks and returns the merged joint moments of
// the target and geometric payoffs.
func simulate(ctx context.Context, cfg Config, fn chunkFunc) (stats.CoMoments, error) {
	chunks := (cfg.Paths + cfg.ChunkSize - 1) / cfg.ChunkSize
	partials := make([]stats.CoMoments, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for c := 0; c < chunks; c++ {
		if gctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			size := cfg.ChunkSize
			if rem := cfg.Paths - c*cfg.ChunkSize; rem < size {
				size = rem
			}
			x := make([]float64, size)
			y := make([]float64, size)
			fn(random.NewStream(cfg.Seed, c), x, y)
			partials[c] = stats.SummarizePair(x, y)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats.CoMoments{}, err
	}
	if err := ctx.Err(); err != nil {
		return stats.CoMoments{}, err
	}

	var total stats.CoMoments
	for _, p := range partials {
		total.Merge(p)
	}
	return total, nil
}
