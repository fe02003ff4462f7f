package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ely.by/skinbox/internal/textures"
)

func TestNew(t *testing.T) {
	t.Run("create missing base directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "public", "uploads")
		fs, err := New(dir)
		require.NoError(t, err)
		defer fs.Close()

		require.Equal(t, dir, fs.path)
		require.DirExists(t, dir)
	})

	t.Run("empty base path", func(t *testing.T) {
		fs, err := New("")
		require.Error(t, err)
		require.Nil(t, fs)
	})
}

func readAsset(t *testing.T, fs *Filesystem, kind textures.Kind, identity string) []byte {
	t.Helper()
	asset, err := fs.Find(context.Background(), kind, identity)
	require.NoError(t, err)
	require.NotNil(t, asset)
	defer asset.File.Close()

	content, err := io.ReadAll(asset.File)
	require.NoError(t, err)

	return content
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}

	return names
}

func TestFilesystem(t *testing.T) {
	ctx := context.Background()

	t.Run("Put", func(t *testing.T) {
		t.Run("store into the kind directory", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			size, err := fs.Put(ctx, textures.KindSkin, "steve", strings.NewReader("skin bytes"))
			require.NoError(t, err)
			require.Equal(t, int64(10), size)

			content, err := os.ReadFile(filepath.Join(dir, "skins", "steve.png"))
			require.NoError(t, err)
			require.Equal(t, "skin bytes", string(content))
			require.Equal(t, []string{"steve.png"}, listDir(t, filepath.Join(dir, "skins")))

			_, err = fs.Put(ctx, textures.KindCape, "steve", strings.NewReader("cape bytes"))
			require.NoError(t, err)
			require.FileExists(t, filepath.Join(dir, "capes", "steve.png"))
		})

		t.Run("replace previous content", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			_, err := fs.Put(ctx, textures.KindSkin, "steve", strings.NewReader("first upload with longer content"))
			require.NoError(t, err)
			_, err = fs.Put(ctx, textures.KindSkin, "steve", strings.NewReader("second"))
			require.NoError(t, err)

			require.Equal(t, "second", string(readAsset(t, fs, textures.KindSkin, "steve")))
			require.Equal(t, []string{"steve.png"}, listDir(t, filepath.Join(dir, "skins")))
		})

		t.Run("keep previous content when the upload fails", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			_, err := fs.Put(ctx, textures.KindSkin, "steve", strings.NewReader("original"))
			require.NoError(t, err)

			readErr := errors.New("connection reset by peer")
			_, err = fs.Put(ctx, textures.KindSkin, "steve", io.MultiReader(
				strings.NewReader("partial"),
				iotestErrReader{err: readErr},
			))
			require.ErrorIs(t, err, readErr)

			require.Equal(t, "original", string(readAsset(t, fs, textures.KindSkin, "steve")))
			require.Equal(t, []string{"steve.png"}, listDir(t, filepath.Join(dir, "skins")))
		})

		t.Run("discard partial content when the context is cancelled", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			cancelCtx, cancel := context.WithCancel(ctx)
			content := io.MultiReader(
				strings.NewReader("partial"),
				cancellingReader{cancel: cancel},
				strings.NewReader("never read"),
			)

			_, err := fs.Put(cancelCtx, textures.KindSkin, "steve", content)
			require.ErrorIs(t, err, context.Canceled)

			exists, err := fs.Exists(ctx, textures.KindSkin, "steve")
			require.NoError(t, err)
			require.False(t, exists)
			require.Empty(t, listDir(t, filepath.Join(dir, "skins")))
		})

		t.Run("concurrent uploads never mix contents", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			const payloadSize = 256 * 1024
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					payload := bytes.Repeat([]byte{byte('a' + i)}, payloadSize)
					_, err := fs.Put(ctx, textures.KindSkin, "steve", bytes.NewReader(payload))
					assert.NoError(t, err)
				}()
			}

			readsDone := make(chan struct{})
			go func() {
				defer close(readsDone)
				for i := 0; i < 50; i++ {
					asset, err := fs.Find(ctx, textures.KindSkin, "steve")
					if !assert.NoError(t, err) || asset == nil {
						continue
					}

					content, err := io.ReadAll(asset.File)
					_ = asset.File.Close()
					assert.NoError(t, err)
					assert.Len(t, content, payloadSize)
					assert.Equal(t, bytes.Repeat(content[:1], payloadSize), content)
				}
			}()

			wg.Wait()
			<-readsDone

			content := readAsset(t, fs, textures.KindSkin, "steve")
			require.Len(t, content, payloadSize)
			require.Equal(t, bytes.Repeat(content[:1], payloadSize), content)
			require.Equal(t, []string{"steve.png"}, listDir(t, filepath.Join(dir, "skins")))
		})
	})

	t.Run("Exists", func(t *testing.T) {
		fs, _ := New(t.TempDir())
		defer fs.Close()

		exists, err := fs.Exists(ctx, textures.KindCape, "notch")
		require.NoError(t, err)
		require.False(t, exists)

		_, _ = fs.Put(ctx, textures.KindCape, "notch", strings.NewReader("cape"))

		exists, err = fs.Exists(ctx, textures.KindCape, "notch")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = fs.Exists(ctx, textures.KindSkin, "notch")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("List", func(t *testing.T) {
		t.Run("missing directory", func(t *testing.T) {
			fs, _ := New(t.TempDir())
			defer fs.Close()

			names, err := fs.List(ctx, textures.KindSkin)
			require.NoError(t, err)
			require.Empty(t, names)
		})

		t.Run("list regular files only", func(t *testing.T) {
			dir := t.TempDir()
			fs, _ := New(dir)
			defer fs.Close()

			_, _ = fs.Put(ctx, textures.KindSkin, "alice", strings.NewReader("a"))
			_, _ = fs.Put(ctx, textures.KindSkin, "bob", strings.NewReader("b"))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "skins", "notes.txt"), []byte("x"), 0o644))
			require.NoError(t, os.Mkdir(filepath.Join(dir, "skins", "nested.png"), 0o755))

			names, err := fs.List(ctx, textures.KindSkin)
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"alice.png", "bob.png", "notes.txt"}, names)

			names, err = fs.List(ctx, textures.KindCape)
			require.NoError(t, err)
			require.Empty(t, names)
		})
	})

	t.Run("Find", func(t *testing.T) {
		t.Run("exists texture", func(t *testing.T) {
			fs, _ := New(t.TempDir())
			defer fs.Close()

			_, _ = fs.Put(ctx, textures.KindCape, "username", strings.NewReader("cape"))

			asset, err := fs.Find(ctx, textures.KindCape, "username")
			require.NoError(t, err)
			require.NotNil(t, asset)
			defer asset.File.Close()

			require.Equal(t, textures.KindCape, asset.Kind)
			require.Equal(t, "username", asset.Identity)
			require.False(t, asset.ModTime.IsZero())
			_, ok := asset.File.(io.ReadSeeker)
			require.True(t, ok)
		})

		t.Run("not exists texture", func(t *testing.T) {
			fs, _ := New(t.TempDir())
			defer fs.Close()

			asset, err := fs.Find(ctx, textures.KindCape, "username")
			require.NoError(t, err)
			require.Nil(t, asset)
		})
	})

	t.Run("Ping", func(t *testing.T) {
		fs, _ := New(t.TempDir())
		defer fs.Close()

		require.NoError(t, fs.Ping(ctx))
	})
}

type iotestErrReader struct {
	err error
}

func (r iotestErrReader) Read([]byte) (int, error) {
	return 0, r.err
}

type cancellingReader struct {
	cancel context.CancelFunc
}

func (r cancellingReader) Read([]byte) (int, error) {
	r.cancel()
	return 0, io.EOF
}
