package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/sirupsen/logrus"
)

const (
	EnvPrefix = "XTHI"

	defaultListenAddr      = ":7455"
	defaultCoordinatorAddr = "127.0.0.1:7455"
	defaultDialTimeout     = 2 * time.Minute
	defaultShutdownTimeout = 5 * time.Second
	defaultLogLevel        = "warn"
)

// ErrUsage marks command-line mistakes, as opposed to invalid values.
var ErrUsage = errors.New("usage")

type Config struct {
	// Threads is the number of worker threads every process runs.
	Threads int
	// MaxThreads sizes the record arena.
	MaxThreads      int
	Accelerators    bool
	ListenAddr      string
	CoordinatorAddr string
	DialTimeout     time.Duration
	ShutdownTimeout time.Duration
	// Chew keeps every worker busy for this long after the table is printed.
	Chew     time.Duration
	LogLevel string
	LogJSON  bool
}

// Load parses args (without the program name) layered over XTHI_* environment
// variables and an optional plain config file, then validates the result.
func Load(args []string) (Config, error) {
	return parse(args, os.Stderr)
}

func parse(args []string, output io.Writer) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("xthi", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.Threads, "threads", defaultThreads(), "worker threads per process")
	fs.IntVar(&cfg.MaxThreads, "max-threads", runtime.NumCPU(), "record arena capacity in threads")
	fs.BoolVar(&cfg.Accelerators, "accelerators", false, "report accelerators visible to each process")
	fs.StringVar(&cfg.ListenAddr, "listen", defaultListenAddr, "address rank 0 accepts record blocks on")
	fs.StringVar(&cfg.CoordinatorAddr, "coordinator", defaultCoordinatorAddr, "address other ranks send record blocks to")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", defaultDialTimeout, "how long a rank waits for the coordinator")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "grace period after an interrupt")
	fs.DurationVar(&cfg.Chew, "chew", 0, "burn CPU on every worker for this long after reporting")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (trace, debug, info, warn, error)")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "emit logs as JSON")
	fs.String("config", "", "config file (optional)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: xthi [flags] [cpu_chew_seconds]\n\n")
		fs.PrintDefaults()
	}

	err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return Config{}, err
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		seconds, err := strconv.Atoi(rest[0])
		if err != nil {
			return Config{}, fmt.Errorf("%w: cpu_chew_seconds %q is not an integer", ErrUsage, rest[0])
		}
		if seconds < 0 {
			return Config{}, fmt.Errorf("%w: cpu_chew_seconds must not be negative", ErrUsage)
		}
		cfg.Chew = time.Duration(seconds) * time.Second
	default:
		return Config{}, fmt.Errorf("%w: expected at most one argument, got %d", ErrUsage, len(rest))
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if !explicit["max-threads"] && cfg.MaxThreads < cfg.Threads {
		cfg.MaxThreads = cfg.Threads
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be >= 1, got %d", c.Threads)
	}
	if c.MaxThreads < c.Threads {
		return fmt.Errorf("max-threads %d is below threads %d", c.MaxThreads, c.Threads)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("XTHI_LISTEN is required")
	}
	if strings.TrimSpace(c.CoordinatorAddr) == "" {
		return errors.New("XTHI_COORDINATOR is required")
	}
	if c.DialTimeout <= 0 {
		return errors.New("XTHI_DIAL_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("XTHI_SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.Chew < 0 {
		return errors.New("XTHI_CHEW must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// defaultThreads honors OMP_NUM_THREADS.
func defaultThreads() int {
	return envInt("OMP_NUM_THREADS", runtime.GOMAXPROCS(0))
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	// OMP_NUM_THREADS may list one count per nesting level.
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
