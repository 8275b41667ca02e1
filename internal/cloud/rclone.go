// Package cloud mirrors the staging tree to a remote by shelling out
// to the rclone binary. Every call is bounded by a timeout and degrades
// to a structured result instead of failing: a missing binary or an
// unconfigured remote is a reportable state, never a crash.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	listTimeout  = 10 * time.Second
	countTimeout = 30 * time.Second
	pullTimeout  = 60 * time.Second
	pushTimeout  = 300 * time.Second
)

// Rclone wraps one configured remote target.
type Rclone struct {
	remoteName string
	remotePath string
}

func NewRclone(remoteName, remotePath string) *Rclone {
	return &Rclone{remoteName: remoteName, remotePath: remotePath}
}

// Remote returns the rclone-syntax target, e.g. "gdrive:ai-chat-logs".
func (r *Rclone) Remote() string {
	return r.remoteName + ":" + r.remotePath
}

// SyncResult reports one pull or push operation.
type SyncResult struct {
	Success          bool
	Message          string
	FilesTransferred int
	// Details holds the transfer lines worth echoing to the user.
	Details []string
}

// RemoteStatus is the layered health report used by the status command.
// Each field only means anything when the one before it is true.
type RemoteStatus struct {
	Installed  bool
	Configured bool
	Accessible bool
	FileCount  int
}

// Installed reports whether the rclone binary is on PATH.
func (r *Rclone) Installed() bool {
	_, err := exec.LookPath("rclone")
	return err == nil
}

// RemoteConfigured reports whether the remote name exists in rclone's
// configuration.
func (r *Rclone) RemoteConfigured(ctx context.Context) bool {
	stdout, _, err := runRclone(ctx, listTimeout, "listremotes")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if strings.TrimSpace(line) == r.remoteName+":" {
			return true
		}
	}
	return false
}

// PullIndex copies the remote index.json into destDir. A remote that
// has no index yet (first sync) counts as success.
func (r *Rclone) PullIndex(ctx context.Context, destDir string) SyncResult {
	if !r.Installed() {
		return SyncResult{Message: "rclone is not installed. Install with: brew install rclone (or apt install rclone)"}
	}
	if !r.RemoteConfigured(ctx) {
		return SyncResult{Message: fmt.Sprintf("rclone remote %q not configured. Run: rclone config", r.remoteName)}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return SyncResult{Message: fmt.Sprintf("create staging directory: %v", err)}
	}

	remoteIndex := r.Remote() + "/index.json"
	_, stderr, err := runRclone(ctx, pullTimeout, "copy", remoteIndex, destDir, "--checksum")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return SyncResult{Message: "rclone timed out"}
		}
		if isMissingIndex(stderr) {
			return SyncResult{Success: true, Message: "No remote index found (first sync)"}
		}
		return SyncResult{Message: "rclone error: " + strings.TrimSpace(stderr)}
	}
	return SyncResult{Success: true, Message: "Index pulled successfully"}
}

// PushStaging syncs the staging directory to the remote. With dryRun
// the remote is left untouched and rclone reports what would change.
func (r *Rclone) PushStaging(ctx context.Context, stagingDir string, dryRun bool) SyncResult {
	if !r.Installed() {
		return SyncResult{Message: "rclone is not installed. Install with: brew install rclone (or apt install rclone)"}
	}
	if !r.RemoteConfigured(ctx) {
		return SyncResult{Message: fmt.Sprintf("rclone remote %q not configured. Run: rclone config", r.remoteName)}
	}
	if _, err := os.Stat(stagingDir); err != nil {
		return SyncResult{Message: fmt.Sprintf("staging directory does not exist: %s", stagingDir)}
	}

	args := []string{"sync", stagingDir, r.Remote(), "--checksum", "-v"}
	if dryRun {
		args = append(args, "--dry-run")
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "rclone", args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	runErr := cmd.Run()

	count, details := parsePushOutput(buf.String())
	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return SyncResult{Message: "rclone timed out", Details: details}
		}
		return SyncResult{Message: "rclone sync failed", Details: details}
	}

	action := "Transferred"
	if dryRun {
		action = "Would transfer"
	}
	return SyncResult{
		Success:          true,
		Message:          fmt.Sprintf("%s files to %s", action, r.Remote()),
		FilesTransferred: count,
		Details:          details,
	}
}

// Status checks the remote layer by layer: binary present, remote
// configured, remote listable. FileCount is the recursive file count
// when all three hold.
func (r *Rclone) Status(ctx context.Context) RemoteStatus {
	st := RemoteStatus{Installed: r.Installed()}
	if !st.Installed {
		return st
	}
	st.Configured = r.RemoteConfigured(ctx)
	if !st.Configured {
		return st
	}

	stdout, _, err := runRclone(ctx, countTimeout, "lsf", r.Remote(), "--recursive")
	if err != nil {
		return st
	}
	st.Accessible = true
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			st.FileCount++
		}
	}
	return st
}

func runRclone(ctx context.Context, timeout time.Duration, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rclone", args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	if err != nil && ctx.Err() != nil {
		// The kill signal from an expired context masks the cause.
		err = ctx.Err()
	}
	return outBuf.String(), errBuf.String(), err
}

// isMissingIndex reports whether a failed copy just means the remote
// index does not exist yet.
func isMissingIndex(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"not found", "404", "doesn't exist", "error listing"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// parsePushOutput extracts the transfer summary from rclone -v output.
// The transferred count is the first all-digit field on a
// "Transferred:" line; rclone prints one such line for bytes and one
// for files, and the files line wins because it comes last.
func parsePushOutput(out string) (count int, details []string) {
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		interesting := strings.Contains(line, "Transferred:") ||
			strings.Contains(line, "Copied") ||
			strings.Contains(line, "Deleted")
		if !interesting {
			continue
		}
		details = append(details, line)

		if !strings.Contains(line, "Transferred:") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if n, ok := allDigits(field); ok {
				count = n
				break
			}
		}
	}
	return count, details
}

func allDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
