package nativehost

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const pickTimeout = 120 * time.Second

func pickFolder(ctx context.Context) Response {
	if runtime.GOOS != "darwin" {
		return failure("unsupported on " + runtime.GOOS)
	}

	ctx, cancel := context.WithTimeout(ctx, pickTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e",
		`POSIX path of (choose folder with prompt "Choose a folder for Markdown notes")`).Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure("timeout")
	}

	path := strings.TrimRight(strings.TrimSpace(string(out)), "/")
	if err != nil || path == "" {
		return failure("cancelled")
	}
	return Response{Success: true, Path: path, Name: filepath.Base(path)}
}
