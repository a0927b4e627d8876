// Command bridgecheck runs an end-to-end self-check of the bridge stack:
// configuration, logging, model load, synchronous and asynchronous
// generation, cancellation, journaling, and shutdown. It is the tool to
// run after changing a deployment's configuration.
//
// Usage:
//
//	bridgecheck [-config bridge.yaml] [-prompt "text"] [-n 8]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"llmbridge/bridge"
	"llmbridge/config"
	"llmbridge/engine"
	"llmbridge/journal"
	"llmbridge/logging"
	"llmbridge/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to bridge.yaml (optional)")
	prompt := flag.String("prompt", "Briefly introduce yourself.", "prompt for the generation checks")
	asyncCount := flag.Int("n", 8, "number of async requests in the batch check")
	timeout := flag.Duration("timeout", 60*time.Second, "per-check timeout")
	flag.Parse()

	runner := newRunner(os.Stdout)
	ok := runner.run(*configPath, *prompt, *asyncCount, *timeout)
	if !ok {
		os.Exit(1)
	}
}

// checker carries the progressively constructed stack through the steps.
type checker struct {
	cfg     config.Config
	log     *zap.Logger
	rt      *bridge.Runtime
	jrnl    *journal.Journal
	met     *metrics.Metrics
	stubbed bool
}

func (r *runner) run(configPath, prompt string, asyncCount int, timeout time.Duration) bool {
	c := &checker{}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r.header("llmbridge self-check")

	r.step("configuration", func() (string, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", err
		}
		c.cfg = cfg
		if cfg.UsesRemoteEngine() {
			return "engine " + cfg.Engine.URL, nil
		}
		return "built-in placeholder engine", nil
	})

	r.step("logger", func() (string, error) {
		log, err := logging.New(logging.Options{
			Level:       c.cfg.Log.Level,
			FilePath:    c.cfg.Log.File,
			Development: c.cfg.Log.Development,
		})
		if err != nil {
			return "", err
		}
		c.log = log
		return "level " + c.cfg.Log.Level, nil
	})
	if c.log == nil {
		return r.summary()
	}
	defer c.log.Sync()

	r.step("journal", func() (string, error) {
		if c.cfg.Journal.Path == "" {
			return "disabled", nil
		}
		j, err := journal.Open(c.cfg.Journal.Path, journal.Options{Logger: c.log})
		if err != nil {
			return "", err
		}
		c.jrnl = j
		return c.cfg.Journal.Path, nil
	})

	r.step("runtime", func() (string, error) {
		var eng bridge.Engine
		if c.cfg.UsesRemoteEngine() {
			var err error
			eng, err = engine.NewOpenAICompat(engine.OpenAICompatConfig{
				BaseURL:      c.cfg.Engine.URL,
				APIKey:       c.cfg.Engine.APIKey,
				Model:        c.cfg.Engine.Model,
				SystemPrompt: c.cfg.Engine.SystemPrompt,
			})
			if err != nil {
				return "", err
			}
		}
		c.met = metrics.New(prometheus.NewRegistry())

		bcfg := bridge.Config{
			Engine:       eng,
			Logger:       c.log,
			Workers:      c.cfg.Runtime.Workers,
			RetentionCap: c.cfg.Runtime.RetentionCap,
			Observer:     c.met,
			CloseTimeout: c.cfg.Runtime.CloseTimeout,
		}
		if c.jrnl != nil {
			bcfg.Completions = c.jrnl
		}
		c.rt = bridge.New(bcfg)
		if err := c.rt.Init(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d workers", c.rt.Workers()), nil
	})
	if c.rt == nil {
		return r.summary()
	}

	r.step("model load", func() (string, error) {
		path := c.cfg.Model.Path
		if path == "" {
			// No model configured: a stub file exercises the load
			// path, which is all the placeholder engine needs.
			stub := filepath.Join(os.TempDir(), "bridgecheck-stub.gguf")
			if err := os.WriteFile(stub, []byte("stub"), 0644); err != nil {
				return "", err
			}
			path = stub
			c.stubbed = true
		}
		if err := c.rt.LoadModel(path, c.cfg.Model.ContextSize, c.cfg.Model.Threads); err != nil {
			return "", err
		}
		note := fmt.Sprintf("context %d tokens", c.rt.ContextSize())
		if c.stubbed {
			note += " (stub model file)"
		}
		return note, nil
	})

	r.step("sync generation", func() (string, error) {
		text, err := c.rt.Generate(ctx, prompt, bridge.DefaultGenerationParams())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes, ~%d tokens", len(text), c.rt.Tokenize(text)), nil
	})

	r.step("async batch", func() (string, error) {
		if asyncCount < 1 {
			asyncCount = 1
		}
		var wg sync.WaitGroup
		wg.Add(asyncCount)
		errs := make(chan error, asyncCount)

		var prev uint64
		for i := 0; i < asyncCount; i++ {
			id, err := c.rt.Submit(bridge.AsyncRequest{
				Prompt:   prompt,
				Params:   bridge.DefaultGenerationParams(),
				OnResult: func(string) { wg.Done() },
				OnError:  func(err error) { errs <- err; wg.Done() },
			})
			if err != nil {
				return "", err
			}
			if id <= prev {
				return "", fmt.Errorf("request ids not ascending: %d then %d", prev, id)
			}
			prev = id
		}

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			return "", fmt.Errorf("batch did not complete: %w", ctx.Err())
		}
		select {
		case err := <-errs:
			return "", err
		default:
		}
		return fmt.Sprintf("%d requests completed", asyncCount), nil
	})

	r.step("cancellation", func() (string, error) {
		id, err := c.rt.GenerateAsync(prompt, bridge.DefaultGenerationParams(), nil)
		if err != nil {
			return "", err
		}
		if err := c.rt.Cancel(id); err != nil && !errors.Is(err, bridge.ErrRequestNotFound) {
			return "", err
		}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			status, err := c.rt.Request(id)
			if err != nil {
				return "", err
			}
			if status.Completed {
				if status.Canceled {
					return "request canceled before execution", nil
				}
				return "request finished before the cancel landed", nil
			}
			time.Sleep(5 * time.Millisecond)
		}
		return "", fmt.Errorf("request %d never reached a terminal state", id)
	})

	r.step("tokenizer", func() (string, error) {
		n := c.rt.Tokenize(prompt)
		if n < 1 {
			return "", fmt.Errorf("token estimate %d for non-empty prompt", n)
		}
		return fmt.Sprintf("~%d tokens, vocab %d", n, c.rt.VocabSize()), nil
	})

	if c.jrnl != nil {
		r.step("journal rows", func() (string, error) {
			// Writes are asynchronous; give the worker a moment.
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				n, err := c.jrnl.Count(ctx)
				if err != nil {
					return "", err
				}
				if n > 0 {
					return fmt.Sprintf("%d completions journaled", n), nil
				}
				time.Sleep(20 * time.Millisecond)
			}
			return "", fmt.Errorf("no completions journaled")
		})
	}

	r.step("shutdown", func() (string, error) {
		start := time.Now()
		if err := c.rt.Close(); err != nil {
			return "", err
		}
		if c.jrnl != nil {
			if err := c.jrnl.Close(); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("closed in %v", time.Since(start).Round(time.Millisecond)), nil
	})

	if c.stubbed {
		os.Remove(filepath.Join(os.TempDir(), "bridgecheck-stub.gguf"))
	}
	return r.summary()
}

// =============================================================================
// Step Runner
// =============================================================================

type runner struct {
	out    *os.File
	passed int
	failed int
	start  time.Time

	headerColor *color.Color
	passColor   *color.Color
	failColor   *color.Color
	dimColor    *color.Color
}

func newRunner(out *os.File) *runner {
	return &runner{
		out:         out,
		start:       time.Now(),
		headerColor: color.New(color.FgCyan, color.Bold),
		passColor:   color.New(color.FgGreen),
		failColor:   color.New(color.FgRed),
		dimColor:    color.New(color.FgHiBlack),
	}
}

func (r *runner) header(title string) {
	r.headerColor.Fprintf(r.out, "=== %s ===\n", title)
}

// step runs one named check, printing a colored PASS/FAIL line with the
// step's note or error.
func (r *runner) step(name string, fn func() (string, error)) {
	begin := time.Now()
	note, err := fn()
	latency := time.Since(begin).Round(time.Millisecond)

	if err != nil {
		r.failed++
		r.failColor.Fprintf(r.out, "  FAIL  %-16s", name)
		fmt.Fprintf(r.out, " %v ", err)
		r.dimColor.Fprintf(r.out, "(%v)\n", latency)
		return
	}
	r.passed++
	r.passColor.Fprintf(r.out, "  PASS  %-16s", name)
	if note != "" {
		fmt.Fprintf(r.out, " %s ", note)
	}
	r.dimColor.Fprintf(r.out, "(%v)\n", latency)
}

// summary prints the final tally and reports overall success.
func (r *runner) summary() bool {
	elapsed := time.Since(r.start).Round(time.Millisecond)
	if r.failed == 0 {
		color.New(color.FgGreen, color.Bold).Fprintf(r.out, "OK ")
		r.dimColor.Fprintf(r.out, "(%d checks passed in %v)\n", r.passed, elapsed)
		return true
	}
	color.New(color.FgRed, color.Bold).Fprintf(r.out, "FAILED ")
	r.dimColor.Fprintf(r.out, "(%d passed, %d failed)\n", r.passed, r.failed)
	return false
}
