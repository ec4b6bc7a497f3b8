//go:build profiling
// +build profiling

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"

	"github.com/meigma/ferry"
)

type profileKind string

const (
	profileCPU     profileKind = "cpu"
	profileFG      profileKind = "fgprof"
	profileTrace   profileKind = "trace"
	profileNone    profileKind = "none"
	defaultPayload             = "tmp/profiledata.bin"
	defaultGetDir              = "tmp/profileget"
)

const (
	modePut  = "put"
	modeGet  = "get"
	modeBoth = "both"
)

func main() {
	var (
		target      = flag.String("url", "oci://localhost:5001/ferry/profile:run", "base URL; a per-transfer suffix is appended")
		payload     = flag.String("payload", defaultPayload, "payload file to upload (generated when missing)")
		payloadSize = flag.Int64("payload-size", 64<<20, "size of a generated payload in bytes")
		getDir      = flag.String("get-dir", defaultGetDir, "destination directory for downloads")
		mode        = flag.String("mode", modeBoth, "mode: put, get, or both")
		parallel    = flag.Int("parallel", 4, "concurrent transfers per iteration")
		profile     = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir      = flag.String("out", "profiles", "output directory for profiles")
		label       = flag.String("label", "", "label suffix for profile files")
		repeat      = flag.Int("repeat", 1, "number of iterations")
		step        = flag.Int64("progress-step", 0, "minimum bytes between progress reports (0 uses the default)")
		creds       = flag.String("credentials", "", "upload credentials as user:password")
		insecure    = flag.Bool("insecure", false, "use plain HTTP (for local registries)")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
		timeout     = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr    = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
	)
	flag.Parse()

	runID := time.Now().UTC().Format("20060102T150405Z")

	modeValue := strings.ToLower(*mode)
	if modeValue != modePut && modeValue != modeGet && modeValue != modeBoth {
		log.Fatalf("invalid mode %q (expected %s, %s, or %s)", *mode, modePut, modeGet, modeBoth)
	}

	profileKindValue := profileKind(strings.ToLower(*profile))
	if !isValidProfile(profileKindValue) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}
	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}
	if *parallel < 1 {
		log.Fatalf("parallel must be >= 1")
	}

	// When Pyroscope is enabled, stream profiles instead of writing locally
	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "ferry-profile",
			ServerAddress:   *pyroAddr,
			// Grafana Cloud requires BasicAuth (AuthToken is deprecated)
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			UploadRate:        5 * time.Second,
			Logger:            pyroscope.StandardLogger,
			Tags: map[string]string{
				"mode":     modeValue,
				"parallel": fmt.Sprint(*parallel),
				"git_sha":  os.Getenv("GITHUB_SHA"),
				"git_ref":  os.Getenv("GITHUB_REF_NAME"),
				"run_id":   runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
				pyroscope.ProfileGoroutines,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	} else if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create profile output dir: %v", err)
	}

	if modeValue != modeGet {
		if err := ensurePayload(*payload, *payloadSize); err != nil {
			log.Fatalf("prepare payload: %v", err)
		}
	}
	if modeValue != modePut {
		if err := recreateDir(*getDir); err != nil {
			log.Fatalf("create get dir: %v", err)
		}
	}

	labelParts := []string{modeValue}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	// Only start local profiling when not streaming to Pyroscope
	var stopProfile func() error
	if *pyroAddr == "" {
		var err error
		stopProfile, err = startProfile(profileKindValue, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	clientOpts := []ferry.ClientOption{ferry.WithInsecure(*insecure)}
	if *step > 0 {
		clientOpts = append(clientOpts, ferry.WithProgressStep(*step))
	}
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		clientOpts = append(clientOpts, ferry.WithLogger(logger))
	}

	ferry.Init()
	defer ferry.Cleanup()

	client, err := ferry.NewClient(clientOpts...)
	if err != nil {
		log.Fatalf("create client: %v", err)
	}

	r := &runner{client: client, parallel: *parallel, target: *target}
	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		if modeValue == modePut || modeValue == modeBoth {
			if err := r.put(ctx, *payload, *creds); err != nil {
				log.Fatalf("put: %v", err)
			}
		}
		if modeValue == modeGet || modeValue == modeBoth {
			dir := filepath.Join(*getDir, fmt.Sprintf("iter-%03d", i+1))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("create get dir: %v", err)
			}
			if err := r.get(ctx, dir); err != nil {
				log.Fatalf("get: %v", err)
			}
		}
	}
	stats := client.Stats()
	log.Printf("transfers spawned: %d, live: %d", stats.Spawned, stats.Live)

	// Stop profiling - either Pyroscope or local
	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
		return
	}
	if stopErr := stopProfile(); stopErr != nil {
		log.Fatalf("stop profile: %v", stopErr)
	}
	if err := writeHeapProfile(*outDir, labelValue); err != nil {
		log.Fatalf("write heap profile: %v", err)
	}
	if err := writeAllocsProfile(*outDir, labelValue); err != nil {
		log.Fatalf("write allocs profile: %v", err)
	}
}

// runner starts batches of concurrent transfers and drives the client's loop
// on the main goroutine until they finish. Callbacks run there too, so the
// counters need no locking.
type runner struct {
	client   *ferry.Client
	parallel int
	target   string
}

// url returns the target for transfer n of a batch.
func (r *runner) url(n int) string {
	return fmt.Sprintf("%s-%d", r.target, n)
}

func (r *runner) put(ctx context.Context, payload, creds string) error {
	var (
		moved    int64
		failures []error
	)
	cb := ferry.UploadCallbacks{
		OnCompleted: func(_, path string, _ any) {
			if info, err := os.Stat(path); err == nil {
				moved += info.Size()
			}
		},
		OnFailed: func(url, _ string, err error, _ any) {
			failures = append(failures, fmt.Errorf("%s: %w", url, err))
		},
	}

	start := time.Now()
	for n := range r.parallel {
		if _, err := r.client.Upload(r.url(n), payload, creds, cb, nil); err != nil {
			return err
		}
	}
	if err := r.client.Wait(ctx); err != nil {
		return err
	}
	report("put", start, moved)
	return errors.Join(failures...)
}

func (r *runner) get(ctx context.Context, dir string) error {
	var (
		moved    int64
		failures []error
	)
	cb := ferry.DownloadCallbacks{
		OnProgress: func(_, _ string, _, downloaded int64, userData any) {
			*userData.(*int64) = downloaded
		},
		OnCompleted: func(_, _ string, userData any) {
			moved += *userData.(*int64)
		},
		OnFailed: func(url, _ string, err error, _ any) {
			failures = append(failures, fmt.Errorf("%s: %w", url, err))
		},
	}

	start := time.Now()
	for n := range r.parallel {
		dest := filepath.Join(dir, fmt.Sprintf("file-%03d.bin", n))
		if _, err := r.client.Download(r.url(n), dest, cb, new(int64)); err != nil {
			return err
		}
	}
	if err := r.client.Wait(ctx); err != nil {
		return err
	}
	report("get", start, moved)
	return errors.Join(failures...)
}

func report(op string, start time.Time, n int64) {
	elapsed := time.Since(start)
	rate := float64(n) / elapsed.Seconds()
	log.Printf("%s complete: %s in %s (%s/s)", op, humanize.IBytes(uint64(n)), elapsed, humanize.IBytes(uint64(rate)))
}

// ensurePayload creates a random payload file of size bytes unless path
// already exists.
func ensurePayload(path string, size int64) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, rand.Reader, size); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	switch kind {
	case profileCPU:
		f, err := os.Create(filepath.Join(outDir, "cpu_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		f, err := os.Create(filepath.Join(outDir, "fgprof_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			return errors.Join(stop(), f.Close())
		}, nil
	case profileTrace:
		f, err := os.Create(filepath.Join(outDir, "trace_"+label+".out"))
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	case profileNone:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

func writeHeapProfile(outDir, label string) error {
	f, err := os.Create(filepath.Join(outDir, "heap_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func writeAllocsProfile(outDir, label string) error {
	f, err := os.Create(filepath.Join(outDir, "allocs_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.Lookup("allocs").WriteTo(f, 0)
}

func recreateDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}
