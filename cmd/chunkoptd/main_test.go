package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
)

const legalProfile = `
[profiles.legal]
quality_weight = 0.5
redundancy_weight = 0.3
size_weight = 0.1
similarity_weight = 0.1
quality_threshold = 0.75
redundancy_threshold = 0.4
size_threshold = 0.5
similarity_threshold = 0.9
min_length = 100
max_length = 4000
optimal_length = [600, 2000]
`

// isolate points the config loader at an empty home directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LOG_LEVEL", "error")
	return home
}

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "chunkoptd by Fyrsmith Labs")
	assert.Contains(t, buf.String(), "Version:    dev")
}

func TestSetup(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		isolate(t)

		d, err := setup(context.Background(), "", &bytes.Buffer{})
		require.NoError(t, err)
		defer d.Close()

		assert.Nil(t, d.publisher)
		assert.False(t, d.tel.IsEnabled())
		assert.Len(t, d.engine.Profiles(), 4)
	})

	t.Run("config file and custom profiles", func(t *testing.T) {
		home := isolate(t)
		dir := filepath.Join(home, ".config", "chunkopt")
		require.NoError(t, os.MkdirAll(dir, 0o700))

		profiles := filepath.Join(dir, "profiles.toml")
		require.NoError(t, os.WriteFile(profiles, []byte(legalProfile), 0o600))

		cfgFile := filepath.Join(dir, "config.yaml")
		yaml := fmt.Sprintf("server:\n  http_port: 9191\nengine:\n  workers: 2\n  profiles_file: %s\n", profiles)
		require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0o600))

		d, err := setup(context.Background(), cfgFile, &bytes.Buffer{})
		require.NoError(t, err)
		defer d.Close()

		assert.Equal(t, 9191, d.cfg.Server.Port)
		assert.Len(t, d.engine.Profiles(), 5)
		assert.Equal(t, "legal", d.engine.Resolve("LEGAL").Name)
	})

	t.Run("logs to the given writer", func(t *testing.T) {
		isolate(t)
		t.Setenv("LOG_LEVEL", "info")

		var buf bytes.Buffer
		d, err := setup(context.Background(), "", &buf)
		require.NoError(t, err)
		d.Close()

		assert.Contains(t, buf.String(), "starting chunkoptd")
	})

	t.Run("missing profiles file", func(t *testing.T) {
		isolate(t)
		t.Setenv("ENGINE_PROFILES_FILE", filepath.Join(t.TempDir(), "nope.toml"))

		_, err := setup(context.Background(), "", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load profiles")
	})

	t.Run("invalid log level", func(t *testing.T) {
		isolate(t)
		t.Setenv("LOG_LEVEL", "loud")

		_, err := setup(context.Background(), "", &bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("publishes events to nats", func(t *testing.T) {
		isolate(t)
		server := startTestNATSServer(t)
		t.Setenv("EVENTS_NATS_URL", server.ClientURL())
		t.Setenv("EVENTS_SUBJECT_PREFIX", "test")

		nc, err := nats.Connect(server.ClientURL())
		require.NoError(t, err)
		defer nc.Close()
		sub, err := nc.SubscribeSync("test.>")
		require.NoError(t, err)
		require.NoError(t, nc.Flush())

		d, err := setup(context.Background(), "", &bytes.Buffer{})
		require.NoError(t, err)
		defer d.Close()
		require.NotNil(t, d.publisher)

		_, err = d.engine.AnalyzeDocument(context.Background(), "doc-1", []optimizer.Chunk{
			{ID: "c1", Content: "The retrieval pipeline splits documents into chunks before embedding them."},
		}, "default", nil)
		require.NoError(t, err)

		msg, err := sub.NextMsg(5 * time.Second)
		require.NoError(t, err)
		assert.Contains(t, msg.Subject, "test.")
	})

	t.Run("unreachable nats", func(t *testing.T) {
		isolate(t)
		t.Setenv("EVENTS_NATS_URL", "nats://127.0.0.1:"+strconv.Itoa(freePort(t)))

		_, err := setup(context.Background(), "", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to nats")
	})
}

func TestRunHTTP(t *testing.T) {
	isolate(t)
	port := freePort(t)
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_HTTP_PORT", strconv.Itoa(port))
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "2s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runHTTP(ctx, "")
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
