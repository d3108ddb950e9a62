package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
)

var (
	// ErrCompile is returned when the C compiler rejects a source
	ErrCompile = errors.New("failed to compile native source")
	// ErrArchive is returned when the archiver fails
	ErrArchive = errors.New("failed to archive native objects")
	// ErrScratch is returned when the build directory cannot be prepared
	ErrScratch = errors.New("failed to prepare native build directory")
)

// ExecToolchain drives the host C compiler and archiver as subprocesses
type ExecToolchain struct {
	CC string
	AR string

	logger arbor.ILogger
	mu     sync.Mutex
	checked map[string]bool
}

// NewExecToolchain creates a toolchain; empty names default to cc and ar
func NewExecToolchain(cc, ar string, logger arbor.ILogger) *ExecToolchain {
	if cc == "" {
		cc = "cc"
	}
	if ar == "" {
		ar = "ar"
	}
	return &ExecToolchain{CC: cc, AR: ar, logger: logger, checked: make(map[string]bool)}
}

// SupportsFlag compiles a trivial file with flag and reports whether the
// compiler accepted it. Answers are cached per flag.
func (t *ExecToolchain) SupportsFlag(ctx context.Context, flag string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok, seen := t.checked[flag]; seen {
		return ok
	}

	ok := t.tryFlag(ctx, flag)
	t.checked[flag] = ok
	t.logger.Debug().Str("flag", flag).Bool("supported", ok).Msg("Checked compiler flag")
	return ok
}

func (t *ExecToolchain) tryFlag(ctx context.Context, flag string) bool {
	dir, err := os.MkdirTemp("", "foreigntest-flag-*")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "flag_check.c")
	if err := os.WriteFile(src, []byte("int main(void) { return 0; }\n"), 0o644); err != nil {
		return false
	}
	cmd := exec.CommandContext(ctx, t.CC, flag, "-Werror", "-c", src, "-o", filepath.Join(dir, "flag_check.o"))
	return cmd.Run() == nil
}

// Compile builds obj from src
func (t *ExecToolchain) Compile(ctx context.Context, src, obj string, args []string) error {
	argv := append(append([]string{}, args...), "-c", src, "-o", obj)
	if out, err := t.run(ctx, t.CC, argv); err != nil {
		return fmt.Errorf("%w %s: %v\n%s", ErrCompile, src, err, out)
	}
	return nil
}

// Archive replaces lib with a static library holding objs
func (t *ExecToolchain) Archive(ctx context.Context, lib string, objs []string) error {
	if err := os.Remove(lib); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w %s: %v", ErrArchive, lib, err)
	}
	argv := append([]string{"rcs", lib}, objs...)
	if out, err := t.run(ctx, t.AR, argv); err != nil {
		return fmt.Errorf("%w %s: %v\n%s", ErrArchive, lib, err, out)
	}
	return nil
}

func (t *ExecToolchain) run(ctx context.Context, tool string, argv []string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, argv...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	t.logger.Debug().Str("tool", tool).Strs("args", argv).Msg("Running native tool")
	err := cmd.Run()
	return out.String(), err
}
