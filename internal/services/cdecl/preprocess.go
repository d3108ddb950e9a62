package cdecl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/foreigntest/internal/models"
)

// ErrPreprocess is returned when a header cannot be preprocessed
var ErrPreprocess = errors.New("failed to preprocess header")

// CompilerPreprocessor runs the C compiler's preprocessor, keeping macro
// definitions (-dD) so constants survive into the output
type CompilerPreprocessor struct {
	CC     string
	logger arbor.ILogger
}

// NewCompilerPreprocessor creates a preprocessor driving cc
func NewCompilerPreprocessor(cc string, logger arbor.ILogger) *CompilerPreprocessor {
	if cc == "" {
		cc = "cc"
	}
	return &CompilerPreprocessor{CC: cc, logger: logger}
}

// Preprocess returns the expanded text of req.Header
func (c *CompilerPreprocessor) Preprocess(ctx context.Context, req models.PreprocessRequest) (string, error) {
	args := []string{"-E", "-dD", "-x", "c"}
	for _, dir := range req.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, req.Args...)
	args = append(args, req.Header)

	cmd := exec.CommandContext(ctx, c.CC, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().Str("cc", c.CC).Strs("args", args).Msg("Preprocessing header")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w %s: %v\n%s", ErrPreprocess, req.Header, err, stderr.String())
	}
	return stdout.String(), nil
}

// FilePreprocessor reads the header verbatim. Conditionals and includes are
// not evaluated, so only self-contained headers parse completely.
type FilePreprocessor struct{}

// Preprocess returns the header text behind a line marker naming it
func (FilePreprocessor) Preprocess(ctx context.Context, req models.PreprocessRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(req.Header)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrPreprocess, req.Header, err)
	}
	return "# 1 " + strconv.Quote(req.Header) + "\n" + string(data), nil
}
