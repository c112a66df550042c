package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

var (
	batchIn    string
	batchOut   string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run advisory turns for every request in a JSONL file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := os.Open(batchIn)
		if err != nil {
			return eris.Wrap(err, "open input")
		}
		defer in.Close() //nolint:errcheck

		reqs, err := readRequests(in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if batchOut != "" && batchOut != "-" {
			f, err := os.Create(batchOut)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return processBatch(ctx, reqs, batchLimit, cfg.Batch.MaxConcurrentRequests, out, env.Pipeline.Run)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "requests.jsonl", "input file, one JSON request per line")
	batchCmd.Flags().StringVar(&batchOut, "out", "-", "output file for JSONL results (- for stdout)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of requests to process (0 for all)")
	rootCmd.AddCommand(batchCmd)
}

// readRequests decodes one request per non-blank line.
func readRequests(r io.Reader) ([]model.Request, error) {
	var reqs []model.Request
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var req model.Request
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return nil, eris.Wrapf(err, "parse request on line %d", line)
		}
		reqs = append(reqs, req)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read input")
	}
	return reqs, nil
}

// runFunc is the callback signature for one advisory turn.
type runFunc func(ctx context.Context, req model.Request) (*model.Result, error)

// batchLine is one line of batch output. Index is the request's position in
// the input; lines are written in completion order.
type batchLine struct {
	Index  int           `json:"index"`
	Result *model.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// processBatch applies limit, then runs requests concurrently and streams
// one JSON line per request to w.
func processBatch(ctx context.Context, reqs []model.Request, limit, concurrency int, w io.Writer, run runFunc) error {
	if len(reqs) == 0 {
		zap.L().Info("no requests found")
		return nil
	}

	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("requests", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	lines := make(chan batchLine)
	writeErr := make(chan error, 1)
	go func() {
		enc := json.NewEncoder(w)
		var err error
		for l := range lines {
			if err == nil {
				err = enc.Encode(l)
			}
		}
		writeErr <- eris.Wrap(err, "write output")
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	start := time.Now()

	for i, req := range reqs {
		g.Go(func() error {
			res, err := run(gctx, req)
			if err != nil {
				failed.Add(1)
				zap.L().Error("advisory run failed", zap.Int("index", i), zap.Error(err))
				lines <- batchLine{Index: i, Error: err.Error()}
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			lines <- batchLine{Index: i, Result: res}
			return nil
		})
	}

	_ = g.Wait()
	close(lines)
	err := <-writeErr

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}
