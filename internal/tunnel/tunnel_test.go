package tunnel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloudflared writes a script that mimics cloudflared's startup output on
// stderr and then idles like the real process.
func fakeCloudflared(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloudflared")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestURLPatternMatchesQuickTunnelLine(t *testing.T) {
	line := "2026-01-02T03:04:05Z INF +  https://witty-lemur-abc123.trycloudflare.com  +"
	assert.Equal(t, "https://witty-lemur-abc123.trycloudflare.com", urlPattern.FindString(line))

	assert.Empty(t, urlPattern.FindString("INF Starting tunnel connection"))
	assert.Empty(t, urlPattern.FindString("https://evil.example.com/trycloudflare.com"))
}

func TestScanOutputEmitsFirstURLOnly(t *testing.T) {
	tun := New("cloudflared", nil)
	out := strings.NewReader(
		"INF Starting\n" +
			"INF https://first.trycloudflare.com ready\n" +
			"INF https://second.trycloudflare.com ready\n")

	urlCh := make(chan string, 2)
	tun.scanOutput(out, urlCh)
	close(urlCh)

	assert.Equal(t, "https://first.trycloudflare.com", <-urlCh)
	_, more := <-urlCh
	assert.False(t, more)
}

func TestStartScrapesURLAndStopKills(t *testing.T) {
	binary := fakeCloudflared(t,
		`echo "INF https://fake-tunnel.trycloudflare.com registered" >&2
sleep 30`)
	tun := New(binary, nil)

	url, err := tun.Start("8787")
	require.NoError(t, err)
	assert.Equal(t, "https://fake-tunnel.trycloudflare.com", url)
	assert.True(t, tun.IsRunning())
	assert.Equal(t, "https://fake-tunnel.trycloudflare.com/webhook", tun.WebhookURL())

	_, err = tun.Start("8787")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	tun.Stop()
	assert.False(t, tun.IsRunning())
	assert.Empty(t, tun.WebhookURL())
}

func TestStartTimesOutWithoutURL(t *testing.T) {
	binary := fakeCloudflared(t, `sleep 30`)
	tun := New(binary, nil)
	tun.urlTimeout = 200 * time.Millisecond

	_, err := tun.Start("8787")
	require.ErrorIs(t, err, ErrStartTimeout)
	assert.False(t, tun.IsRunning())
}

func TestStatusReflectsLifecycle(t *testing.T) {
	tun := New("cloudflared", nil)

	s := tun.Status()
	assert.False(t, s.Active)
	assert.Nil(t, s.WebhookURL)
	assert.Equal(t, Provider, s.Provider)

	binary := fakeCloudflared(t,
		`echo "INF https://fake-tunnel.trycloudflare.com registered" >&2
sleep 30`)
	tun = New(binary, nil)
	_, err := tun.Start("8787")
	require.NoError(t, err)
	defer tun.Stop()

	s = tun.Status()
	assert.True(t, s.Active)
	require.NotNil(t, s.WebhookURL)
	assert.Equal(t, "https://fake-tunnel.trycloudflare.com/webhook", *s.WebhookURL)
}
