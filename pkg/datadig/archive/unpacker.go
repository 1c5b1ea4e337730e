package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Unpacker performs the actual decompression. Implementations must leave
// dest populated on success and may leave it partially populated on error;
// the Extractor cleans up.
type Unpacker interface {
	// Name identifies the unpacker in logs and history.
	Name() string

	// Gunzip decompresses path in place to the same name without its .gz
	// suffix and removes path.
	Gunzip(ctx context.Context, path string) error

	// Unpack extracts a tar, tar.gz or zip archive into the existing
	// directory dest. The archive itself is left in place.
	Unpack(ctx context.Context, kind Kind, archive, dest string) error
}

// ToolError is returned when an external unpack tool fails.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Tool, strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExecUnpacker shells out to gunzip, tar and unzip. No shell is involved;
// paths are passed as separate arguments.
type ExecUnpacker struct {
	Gzip  string
	Tar   string
	Unzip string
}

// NewExecUnpacker returns an ExecUnpacker using the tools found on PATH.
func NewExecUnpacker() *ExecUnpacker {
	return &ExecUnpacker{Gzip: "gunzip", Tar: "tar", Unzip: "unzip"}
}

// Name implements Unpacker.
func (u *ExecUnpacker) Name() string { return "exec" }

// Gunzip implements Unpacker.
func (u *ExecUnpacker) Gunzip(ctx context.Context, path string) error {
	return run(ctx, u.Gzip, path)
}

// Unpack implements Unpacker.
func (u *ExecUnpacker) Unpack(ctx context.Context, kind Kind, archive, dest string) error {
	switch kind {
	case KindTar:
		return run(ctx, u.Tar, "-xf", archive, "-C", dest)
	case KindTarGz:
		return run(ctx, u.Tar, "-xzf", archive, "-C", dest)
	case KindZip:
		return run(ctx, u.Unzip, "-q", archive, "-d", dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

// Tools lists the external programs the unpacker needs.
func (u *ExecUnpacker) Tools() []string {
	return []string{u.Gzip, u.Tar, u.Unzip}
}

func run(ctx context.Context, tool string, args ...string) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = &stderr

	logger.Debug("running unpack tool", "tool", tool, "args", args)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ToolError{
			Tool:     tool,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return nil
}
