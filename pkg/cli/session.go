package cli

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
)

const defaultSessionTTL = 24 * time.Hour

// defaultSessionID ties the session to the parent shell. The shell's start
// time is part of the id where the platform exposes it, so a new shell that
// reuses a PID starts a new session.
func defaultSessionID() string {
	ppid := os.Getppid()
	id := "tty-" + strconv.Itoa(ppid)
	if start, ok := processStartTime(ppid); ok {
		id += "-" + start
	}
	return id
}

// processStartTime reads the start time of pid from procfs, in clock ticks
// since boot.
func processStartTime(pid int) (string, bool) {
	raw, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return "", false
	}
	return parseStartTime(string(raw))
}

// parseStartTime extracts field 22 of /proc/<pid>/stat. The command name in
// field 2 may contain spaces and parentheses, so fields are counted from the
// last closing parenthesis.
func parseStartTime(stat string) (string, bool) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return "", false
	}
	fields := strings.Fields(stat[end+1:])
	// fields[0] is field 3 (state)
	const idx = 22 - 3
	if len(fields) <= idx {
		return "", false
	}
	ticks, err := strconv.ParseUint(fields[idx], 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(ticks, 36), true
}

// pruneSessions removes sessions idle for longer than the TTL. Failures are
// logged and never block startup.
func (cfg *config) pruneSessions(ctx context.Context) {
	if cfg.sessionTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-cfg.sessionTTL)
	removed, err := repository.Prune(ctx, repository.Backend(cfg.storage), cfg.storageDir, cutoff)
	if err != nil {
		logging.From(ctx).Warn("failed to prune expired sessions", "error", err)
	}
	if len(removed) > 0 {
		logging.From(ctx).Info("removed expired sessions", "count", len(removed), "ttl", cfg.sessionTTL)
	}
}
