package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMetadata(t *testing.T) {
	t.Parallel()

	t.Run("empty path yields defaults", func(t *testing.T) {
		t.Parallel()
		m, err := LoadMetadata("", ImageDefaults())
		require.NoError(t, err)
		require.Equal(t, ImageDefaults(), m)
		require.Equal(t, 40000, m.InputSize())
		require.Equal(t, 5, m.OutputSize())
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		m, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.json"), QuestionnaireDefaults())
		require.NoError(t, err)
		require.Equal(t, 8, m.InputSize())
		require.Equal(t, 3, m.OutputSize())
	})

	t.Run("partial file is merged with defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "meta.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"input_name":"input_1","output_name":"dense_2"}`), 0o600))

		m, err := LoadMetadata(path, ImageDefaults())
		require.NoError(t, err)
		require.Equal(t, "input_1", m.InputName)
		require.Equal(t, "dense_2", m.OutputName)
		require.Equal(t, []int64{1, 200, 200, 1}, m.InputShape)
		require.Equal(t, []int64{1, 5}, m.OutputShape)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "meta.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))

		_, err := LoadMetadata(path, ImageDefaults())
		require.ErrorContains(t, err, "failed to parse metadata")
	})

	t.Run("bad dimension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "meta.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"output_shape":[1,0]}`), 0o600))

		_, err := LoadMetadata(path, ImageDefaults())
		require.ErrorContains(t, err, "non-positive dimension")
	})
}

func TestMetadata_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, ImageDefaults().Validate())
	require.NoError(t, QuestionnaireDefaults().Validate())

	m := ImageDefaults()
	m.InputShape = nil
	require.Error(t, m.Validate())

	m = ImageDefaults()
	m.OutputName = ""
	require.Error(t, m.Validate())

	m = ImageDefaults()
	m.Classes = []string{"0", "1", "2"}
	require.ErrorContains(t, m.Validate(), "3 classes for 5 outputs")

	m.Classes = []string{"0", "1", "2", "3", "4"}
	require.NoError(t, m.Validate())
}

func TestLoadMetadata_ClassesMatchOutput(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"classes":["Low","High"]}`), 0o600))

	_, err := LoadMetadata(path, QuestionnaireDefaults())
	require.ErrorContains(t, err, "2 classes for 3 outputs")
}

func TestNewServer_RequiresRuntime(t *testing.T) {
	t.Parallel()

	_, err := NewServer(filepath.Join(t.TempDir(), "model.onnx"), ImageDefaults())
	require.ErrorContains(t, err, "not initialized")
}
