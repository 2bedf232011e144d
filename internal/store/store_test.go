package store

import (
	"sync"
	"testing"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_ReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/src/App.jsx", []byte("<div/>"), 0600))

	s := NewFileStore(fs, "/app")
	content, err := s.Read("src/App.jsx")
	require.NoError(t, err)
	assert.Equal(t, "<div/>", content)

	require.NoError(t, s.Write("src/App.jsx", "<main/>"))
	data, err := afero.ReadFile(fs, "/app/src/App.jsx")
	require.NoError(t, err)
	assert.Equal(t, "<main/>", string(data))

	info, err := fs.Stat("/app/src/App.jsx")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	// 临时文件不应残留
	entries, err := afero.ReadDir(fs, "/app/src")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ReadMissing(t *testing.T) {
	s := NewFileStore(afero.NewMemMapFs(), "")
	_, err := s.Read("missing.html")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.Contains(t, err.Error(), "missing.html")
}

func TestFileStore_WriteReadOnly(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "index.html", []byte("x"), 0644))

	s := NewFileStore(afero.NewReadOnlyFs(base), "")
	err := s.Write("index.html", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))

	data, _ := afero.ReadFile(base, "index.html")
	assert.Equal(t, "x", string(data))
}

func TestFileStore_LockSerializesPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "counter", []byte(""), 0644))
	s := NewFileStore(fs, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("./counter")
			defer unlock()
			content, err := s.Read("counter")
			if err != nil {
				return
			}
			_ = s.Write("counter", content+"x")
		}()
	}
	wg.Wait()

	content, err := s.Read("counter")
	require.NoError(t, err)
	assert.Len(t, content, 20)
}
