// Package tunnel manages the cloudflared quick-tunnel process that exposes
// the local webhook ingress publicly.
package tunnel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Provider is the tunnel backend reported on the status endpoint.
const Provider = "cloudflare"

// urlPattern matches the public URL cloudflared prints while starting a
// quick tunnel.
var urlPattern = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.trycloudflare\.com`)

var (
	// ErrAlreadyRunning is returned when Start is called with a live tunnel.
	ErrAlreadyRunning = errors.New("tunnel already running")
	// ErrStartTimeout is returned when no public URL appears in time.
	ErrStartTimeout = errors.New("tunnel start timed out waiting for public URL")
)

// Status is the body of GET /tunnel/status.
type Status struct {
	Active     bool    `json:"active"`
	WebhookURL *string `json:"webhook_url"`
	Provider   string  `json:"provider"`
}

// Tunnel owns zero or one cloudflared process.
type Tunnel struct {
	binary     string
	urlTimeout time.Duration
	logger     *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
	url string
}

// New creates a tunnel manager; the process is not started yet.
func New(binary string, logger *zap.Logger) *Tunnel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tunnel{binary: binary, urlTimeout: 30 * time.Second, logger: logger}
}

// Start spawns cloudflared against the local port and blocks until the
// public URL is known (or the timeout hits, which kills the process).
// Starting a second tunnel while one is active is not supported.
func (t *Tunnel) Start(localPort string) (string, error) {
	t.mu.Lock()
	if t.cmd != nil {
		t.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	cmd := exec.Command(t.binary, "tunnel", "--no-autoupdate", "--url", "http://localhost:"+localPort)
	// cloudflared logs the assigned URL on stderr.
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.mu.Unlock()
		return "", fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		t.mu.Unlock()
		return "", fmt.Errorf("start %s: %w", t.binary, err)
	}
	t.cmd = cmd
	t.mu.Unlock()

	urlCh := make(chan string, 1)
	go t.scanOutput(stderr, urlCh)
	go t.reap(cmd)

	select {
	case url := <-urlCh:
		t.mu.Lock()
		t.url = url
		t.mu.Unlock()
		t.logger.Info("tunnel established", zap.String("url", url))
		return url, nil
	case <-time.After(t.urlTimeout):
		t.Stop()
		return "", ErrStartTimeout
	}
}

// scanOutput watches process output for the public URL and keeps draining
// afterwards so the pipe never blocks the child.
func (t *Tunnel) scanOutput(r io.Reader, urlCh chan<- string) {
	scanner := bufio.NewScanner(r)
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !found {
			if url := urlPattern.FindString(line); url != "" {
				found = true
				urlCh <- url
			}
		}
		t.logger.Debug("cloudflared", zap.String("line", line))
	}
}

// reap waits for process exit and clears state, so a crashed tunnel reports
// inactive instead of holding a dead handle.
func (t *Tunnel) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	t.mu.Lock()
	if t.cmd == cmd {
		t.cmd = nil
		t.url = ""
	}
	t.mu.Unlock()
	if err != nil {
		t.logger.Warn("tunnel process exited", zap.Error(err))
	} else {
		t.logger.Info("tunnel process exited")
	}
}

// Stop kills the tunnel process if one is running.
func (t *Tunnel) Stop() {
	t.mu.Lock()
	cmd := t.cmd
	t.cmd = nil
	t.url = ""
	t.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		t.logger.Warn("kill tunnel process", zap.Error(err))
	}
}

// IsRunning reports whether a tunnel process is alive.
func (t *Tunnel) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cmd != nil
}

// URL returns the public tunnel URL, or empty when not running.
func (t *Tunnel) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// WebhookURL returns the public address of the webhook ingress, or empty
// when the tunnel is down.
func (t *Tunnel) WebhookURL() string {
	if base := t.URL(); base != "" {
		return base + "/webhook"
	}
	return ""
}

// Status reports the tunnel state for the status endpoint.
func (t *Tunnel) Status() Status {
	t.mu.Lock()
	active := t.cmd != nil
	base := t.url
	t.mu.Unlock()

	s := Status{Active: active, Provider: Provider}
	if base != "" {
		url := base + "/webhook"
		s.WebhookURL = &url
	}
	return s
}
