// Command qatzstd compresses, decompresses and verifies files in the
// qatzstd frame format.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/qatzstd"
	"github.com/arloliu/qatzstd/accel"
	"github.com/arloliu/qatzstd/chunk"
	"github.com/arloliu/qatzstd/internal/hash"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "compress", "c":
		err = cmdCompress(args)
	case "decompress", "d":
		err = cmdDecompress(args)
	case "verify":
		err = cmdVerify(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "qatzstd %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: qatzstd <command> [options] <input> [output]

Commands:
  compress, c     compress input into a frame (output defaults to stdout)
  decompress, d   decompress a frame (output defaults to stdout)
  verify          compress and decompress input, compare digests

Options:
  -level N        zstd level, 1-22 (env QATZSTD_LEVEL)
  -pool N         idle accelerator sessions kept (env QATZSTD_POOL_SIZE)
  -accel          use the emulated accelerator (env QATZSTD_ACCEL_ENABLED)
  -segment N      input segment size in bytes
  -v              debug logging to stderr`)
}

type commonFlags struct {
	fs      *flag.FlagSet
	level   *int
	pool    *int
	accel   *bool
	segment *int
	verbose *bool
}

func newFlags(name string, cfg qatzstd.Config) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = printUsage

	return &commonFlags{
		fs:      fs,
		level:   fs.Int("level", cfg.Level, "zstd compression level"),
		pool:    fs.Int("pool", cfg.PoolSize, "idle accelerator sessions kept for reuse"),
		accel:   fs.Bool("accel", cfg.AccelEnabled, "use the emulated accelerator"),
		segment: fs.Int("segment", chunk.DefaultSegmentSize, "input segment size in bytes"),
		verbose: fs.Bool("v", false, "debug logging"),
	}
}

// setup parses args and builds a compressor. The remaining positional
// arguments are returned.
func setup(name string, args []string) (*qatzstd.Compressor, *commonFlags, *zap.Logger, error) {
	cfg := qatzstd.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, nil, nil, err
	}

	f := newFlags(name, cfg)
	if err := f.fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	logger := zap.NewNop()
	if *f.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, nil, err
		}
		logger = l
	}

	cfg.Level = *f.level
	cfg.PoolSize = *f.pool
	cfg.AccelEnabled = *f.accel

	opts := []qatzstd.Option{qatzstd.WithConfig(cfg), qatzstd.WithLogger(logger)}
	if cfg.AccelEnabled {
		opts = append(opts, qatzstd.WithDriver(accel.NewEmulatedDriver()))
	}

	c, err := qatzstd.New(opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	return c, f, logger, nil
}

func cmdCompress(args []string) error {
	c, f, logger, err := setup("compress", args)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint: errcheck
	defer c.Close()

	src, err := readInput(f.fs.Arg(0), *f.segment)
	if err != nil {
		return err
	}

	frame, err := c.Compress(src.Iterator())
	if err != nil {
		return err
	}

	stats := c.Stats()
	logger.Info("compressed",
		zap.Int("original_bytes", src.Len()),
		zap.Int("frame_bytes", len(frame)),
		zap.Uint64("accelerated_calls", stats.AcceleratedCalls),
		zap.Uint64("fallback_chunks", stats.FallbackChunks),
	)

	return writeOutput(f.fs.Arg(1), frame)
}

func cmdDecompress(args []string) error {
	c, f, logger, err := setup("decompress", args)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint: errcheck
	defer c.Close()

	src, err := readInput(f.fs.Arg(0), *f.segment)
	if err != nil {
		return err
	}

	out, err := c.Decompress(src.Iterator(), src.Len())
	if err != nil {
		return err
	}
	logger.Info("decompressed", zap.Int("frame_bytes", src.Len()), zap.Int("original_bytes", len(out)))

	return writeOutput(f.fs.Arg(1), out)
}

func cmdVerify(args []string) error {
	c, f, logger, err := setup("verify", args)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint: errcheck
	defer c.Close()

	src, err := readInput(f.fs.Arg(0), *f.segment)
	if err != nil {
		return err
	}
	want := hash.DigestSegments(src.Segments())

	frame, err := c.Compress(src.Iterator())
	if err != nil {
		return err
	}

	// Decompress with segments that do not line up with the input ones.
	out, err := c.Decompress(chunk.FromBytes(frame, *f.segment/2+1).Iterator(), len(frame))
	if err != nil {
		return err
	}

	got := hash.Digest(out)
	if got != want {
		return fmt.Errorf("digest mismatch: input %016x, round trip %016x", want, got)
	}

	stats := c.Stats()
	fmt.Printf("ok %d -> %d bytes, xxh64 %016x, accelerated=%d fallback_chunks=%d\n",
		src.Len(), len(frame), got, stats.AcceleratedCalls, stats.FallbackChunks)

	return nil
}

func readInput(path string, segment int) (*chunk.List, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}

	return chunk.ReadFrom(r, segment)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint: gosec
}
