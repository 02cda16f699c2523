package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSource_DownloadURL(t *testing.T) {
	t.Parallel()

	u, err := url.Parse(Source{ArtifactID: "abc123"}.DownloadURL())
	require.NoError(t, err)
	require.Equal(t, "drive.usercontent.google.com", u.Host)
	require.Equal(t, "abc123", u.Query().Get("id"))
	require.Equal(t, "download", u.Query().Get("export"))

	require.Equal(t, "https://example.com/m.onnx", Source{ArtifactID: "x", URL: "https://example.com/m.onnx"}.DownloadURL())
	require.True(t, Source{}.Empty())
}

func TestEnsureArtifact(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/model.onnx":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("onnx-bytes"))
		case "/interstitial":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>virus scan warning</html>"))
		case "/empty":
			w.Header().Set("Content-Type", "application/octet-stream")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("downloads missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "models", "image.onnx")
		err := EnsureArtifact(ctx, srv.Client(), path, Source{URL: srv.URL + "/model.onnx"}, nil)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "onnx-bytes", string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1, "temp file left behind")
	})

	t.Run("existing file is not fetched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "image.onnx")
		require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

		before := hits.Load()
		require.NoError(t, EnsureArtifact(ctx, srv.Client(), path, Source{URL: srv.URL + "/model.onnx"}, nil))
		require.Equal(t, before, hits.Load())
	})

	t.Run("no source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "image.onnx")
		err := EnsureArtifact(ctx, srv.Client(), path, Source{}, nil)
		require.ErrorIs(t, err, ErrNoSource)
	})

	failures := map[string]string{
		"/missing":      "unexpected status",
		"/interstitial": "HTML page",
		"/empty":        "empty body",
	}
	for p, msg := range failures {
		t.Run("fails on "+p, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "image.onnx")
			err := EnsureArtifact(ctx, srv.Client(), path, Source{URL: srv.URL + p}, nil)
			require.ErrorContains(t, err, msg)
			_, statErr := os.Stat(path)
			require.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestLoadSet_FetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadSet(context.Background(), nil,
		Spec{Path: filepath.Join(dir, "image.onnx"), Defaults: ImageDefaults()},
		Spec{Path: filepath.Join(dir, "questionnaire.onnx"), Defaults: QuestionnaireDefaults()},
		nil)
	require.ErrorIs(t, err, ErrNoSource)
}
