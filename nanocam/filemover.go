package nanocam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const fileMoverStopTimeout = 2 * time.Second

var execCommand = exec.CommandContext

type FileMoverConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Pattern     string `yaml:"pattern"`
	// MinAge is the find -mmin argument; files younger than it may still
	// be written by multifilesink.
	MinAge string `yaml:"min_age"`
	// Interval is passed to watch -n; 0 keeps the watch default.
	Interval time.Duration `yaml:"interval"`
}

func DefaultFileMoverConfig() FileMoverConfig {
	return FileMoverConfig{
		Source:      "/mnt/ramdisk",
		Destination: ".",
		Pattern:     "*.jpg",
		MinAge:      "+0.1",
	}
}

func (c FileMoverConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Destination == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if c.Pattern == "" {
		errs = append(errs, errors.New("pattern is required"))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %s", c.Interval))
	}
	return errors.Join(errs...)
}

// FileMover periodically moves finished image files out of a capture
// directory by running find/mv under watch.
type FileMover struct {
	cfg     FileMoverConfig
	command string

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

func NewFileMover(cfg FileMoverConfig) *FileMover {
	defaults := DefaultFileMoverConfig()
	if cfg.Pattern == "" {
		cfg.Pattern = defaults.Pattern
	}
	if cfg.MinAge == "" {
		cfg.MinAge = defaults.MinAge
	}
	return &FileMover{
		cfg: cfg,
		command: fmt.Sprintf(`find %s -maxdepth 1 -mmin %s -type f -name '%s' -exec mv --backup=numbered "{}" %s \;`,
			shellQuote(cfg.Source), shellQuote(cfg.MinAge), quoteInSingle(cfg.Pattern), shellQuote(cfg.Destination)),
	}
}

// shellQuote returns s unchanged when it holds no shell metacharacters,
// otherwise single-quoted.
func shellQuote(s string) string {
	if s != "" && strings.Trim(s, shellSafe) == "" {
		return s
	}
	return "'" + quoteInSingle(s) + "'"
}

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_./+-"

// quoteInSingle escapes s for use between single quotes.
func quoteInSingle(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

// Command returns the shell command run on every watch interval.
func (f *FileMover) Command() string {
	return f.command
}

func (f *FileMover) args() []string {
	var args []string
	if f.cfg.Interval > 0 {
		args = append(args, "-n", strconv.FormatFloat(f.cfg.Interval.Seconds(), 'f', -1, 64))
	}
	return append(args, f.command)
}

// Start launches the watch process. The process is killed when ctx is done.
func (f *FileMover) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cmd != nil {
		return errors.New("file mover already started")
	}

	cmd := execCommand(ctx, "watch", f.args()...)
	// stdout and stderr left nil go to the null device
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting file mover: %w", err)
	}
	f.cmd = cmd
	f.exited = make(chan struct{})
	go func(exited chan struct{}) {
		if err := cmd.Wait(); err != nil {
			DEBUGLogger.Printf("File mover exited: %v", err)
		}
		close(exited)
	}(f.exited)

	INFOLogger.Printf("File mover started (pid %d): %s -> %s", cmd.Process.Pid, f.cfg.Source, f.cfg.Destination)
	return nil
}

// Running reports whether the watch process is alive.
func (f *FileMover) Running() bool {
	f.mu.Lock()
	exited := f.exited
	f.mu.Unlock()
	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// Close terminates the watch process and waits for it to exit, killing it
// if it ignores SIGTERM. Closing a stopped mover is a no-op.
func (f *FileMover) Close() error {
	f.mu.Lock()
	cmd, exited := f.cmd, f.exited
	f.mu.Unlock()
	if cmd == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminating file mover: %w", err)
	}
	select {
	case <-exited:
	case <-time.After(fileMoverStopTimeout):
		WARNINGLogger.Printf("File mover did not exit after SIGTERM, killing pid %d", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-exited
	}
	INFOLogger.Println("File mover stopped")
	return nil
}
