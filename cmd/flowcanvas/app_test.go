package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/pkg/schema"
)

func TestNewAppDefaults(t *testing.T) {
	a, err := newApp(defaultConfig(), logging.NewNop())
	require.NoError(t, err)

	assert.Nil(t, a.backend)
	assert.Nil(t, a.catalog)
	assert.Nil(t, a.registry)
	assert.NotNil(t, a.source)

	require.NoError(t, a.start(context.Background()))
	a.editor.Wait()
	assert.NotEmpty(t, a.editor.Graph().Nodes)
	require.NoError(t, a.close())
}

func TestNewAppRejectsBadBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.BackendURL = "ftp://example.com"
	_, err := newApp(cfg, logging.NewNop())
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	cfg.BackendURL = "http://localhost:1"
	cfg.BackendTimeout = "soon"
	_, err = newApp(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestNewAppWithBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.BackendURL = "http://localhost:1"

	a, err := newApp(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, a.catalog)
	assert.Same(t, a.backend, a.source)
}

func TestAppReload(t *testing.T) {
	dir := t.TempDir()
	views := filepath.Join(dir, "views.yaml")
	require.NoError(t, os.WriteFile(views, []byte("views:\n  - id: detail\n    name: Details\n    type: generic\n"), 0o644))

	cfg := defaultConfig()
	cfg.ViewsFile = views
	a, err := newApp(cfg, logging.NewNop())
	require.NoError(t, err)
	require.Len(t, a.registry.Definitions(), 1)

	require.NoError(t, os.WriteFile(views, []byte("views:\n  - id: a\n    name: A\n    type: generic\n  - id: b\n    name: B\n    type: generic\n"), 0o644))

	level := new(slog.LevelVar)
	next := cfg
	next.LogLevel = "debug"
	a.reload(next, level)

	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Len(t, a.registry.Definitions(), 2)
	assert.Equal(t, "debug", a.cfg.LogLevel)
}

func TestCatalogRefreshIsPublished(t *testing.T) {
	a, err := newApp(defaultConfig(), logging.NewNop())
	require.NoError(t, err)

	ch, cancel, err := a.hub.Subscribe(context.Background(), streaming.EventFilter{
		EventTypes: []string{schema.EventCatalogRefreshed},
	})
	require.NoError(t, err)
	defer cancel()

	a.publishCatalogRefresh(3, errors.New("backend down"))

	select {
	case ev := <-ch:
		payload := ev.Payload.(map[string]any)
		assert.Equal(t, 3, payload["steps"])
		assert.Equal(t, "backend down", payload["error"])
	case <-time.After(time.Second):
		t.Fatal("no catalog event")
	}
}
