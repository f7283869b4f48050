package fontcache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

func writeFont(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestInsertIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "Go-Regular.ttf", goregular.TTF)
	writeFont(t, dir, "nested/Go-Bold.TTF", gobold.TTF)
	writeFont(t, dir, "README.txt", []byte("not a font"))

	c := New()
	n, err := c.Insert(PathSource(dir))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len(true))

	n, err = c.Insert(PathSource(dir))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, c.Len(true))
}

func TestInsertDedupesByContent(t *testing.T) {
	dir := t.TempDir()
	a := writeFont(t, dir, "a.ttf", goregular.TTF)
	b := writeFont(t, dir, "copy/b.ttf", goregular.TTF)

	c := New()
	n, err := c.InsertPaths(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.InsertBytes(goregular.TTF)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLookupThenBytesReadsOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeFont(t, dir, "Go-Regular.ttf", goregular.TTF)

	c := New()
	_, err := c.InsertPath(path)
	require.NoError(t, err)

	entry, ok := c.Lookup("GO", Regular)
	require.True(t, ok)
	assert.False(t, entry.Loaded())
	assert.Equal(t, "Go", entry.Info().Family)

	first, err := entry.Bytes()
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, first)
	assert.True(t, entry.Loaded())

	// the payload must come from memory now
	require.NoError(t, os.Remove(path))
	second, err := entry.Bytes()
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0])
}

func TestConcurrentBytesShareOneLoad(t *testing.T) {
	path := writeFont(t, t.TempDir(), "Go-Bold.ttf", gobold.TTF)
	c := New()
	_, err := c.InsertPath(path)
	require.NoError(t, err)
	entry, ok := c.Lookup("go", Variant{Weight: WeightBold})
	require.True(t, ok)

	const workers = 16
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := entry.Bytes()
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}
	wg.Wait()
	for _, data := range results[1:] {
		require.NotEmpty(t, data)
		assert.Same(t, &results[0][0], &data[0])
	}
}

func TestLookupFallsBackToClosestVariant(t *testing.T) {
	c := New()
	_, err := c.InsertBytes(goregular.TTF)
	require.NoError(t, err)
	_, err = c.InsertBytes(gobold.TTF)
	require.NoError(t, err)

	// Go Bold declares usWeightClass 600 in its OS/2 table
	e, ok := c.Lookup("Go", Variant{Weight: WeightBold})
	require.True(t, ok)
	assert.Equal(t, WeightSemiBold, e.Info().Variant.Weight)

	e, ok = c.Lookup("Go", Variant{Weight: WeightBlack})
	require.True(t, ok)
	assert.Equal(t, WeightSemiBold, e.Info().Variant.Weight)

	e, ok = c.Lookup("Go", Variant{Weight: WeightRegular, Style: StyleItalic})
	require.True(t, ok)
	assert.Equal(t, WeightRegular, e.Info().Variant.Weight)

	_, ok = c.Lookup("Missing Sans", Regular)
	assert.False(t, ok)
}

func TestInsertPathsReportsPartialFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFont(t, dir, "Go-Italic.ttf", goitalic.TTF)
	bad := writeFont(t, dir, "broken.ttf", []byte("definitely not sfnt"))
	missing := filepath.Join(dir, "missing.otf")

	c := New()
	n, err := c.InsertPaths(bad, good, missing)
	assert.Equal(t, 1, n)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	for _, e := range errs {
		var fe *FontError
		require.True(t, errors.As(e, &fe))
	}
	assert.True(t, errors.Is(err, os.ErrNotExist))

	e, ok := c.Lookup("go", Variant{Style: StyleItalic})
	require.True(t, ok)
	assert.Equal(t, StyleItalic, e.Info().Variant.Style)
}

func TestSnapshotIsFrozen(t *testing.T) {
	c := New()
	_, err := c.InsertBytes(goregular.TTF)
	require.NoError(t, err)

	snap := c.Snapshot()
	_, err = c.InsertBytes(gobold.TTF)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 2, c.Snapshot().Len())

	i, ok := snap.Select("go", Variant{Weight: WeightBold})
	require.True(t, ok)
	info, _ := snap.Info(i)
	assert.Equal(t, WeightRegular, info.Variant.Weight)

	face, err := snap.Face(i)
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, face.Data)
	assert.NotEmpty(t, face.Key)
}

func TestReleaseLeavesSnapshotsLoaded(t *testing.T) {
	path := writeFont(t, t.TempDir(), "Go-Regular.ttf", goregular.TTF)
	c := New()
	_, err := c.InsertPath(path)
	require.NoError(t, err)

	old := c.Snapshot()
	_, err = old.Face(0)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Release())
	assert.Equal(t, 0, c.Release())

	e, _ := old.Entry(0)
	assert.True(t, e.Loaded())

	fresh, ok := c.Lookup("go", Regular)
	require.True(t, ok)
	assert.False(t, fresh.Loaded())
	data, err := fresh.Bytes()
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, data)
}

func TestChangedFileIsRejected(t *testing.T) {
	path := writeFont(t, t.TempDir(), "Go-Regular.ttf", goregular.TTF)
	c := New()
	_, err := c.InsertPath(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, gobold.TTF, 0o644))
	e, _ := c.Lookup("go", Regular)
	_, err = e.Bytes()
	require.ErrorIs(t, err, ErrChanged)
	assert.False(t, e.Loaded())
}

func TestEmbeddedFaces(t *testing.T) {
	c := New(WithEmbedded())
	assert.Positive(t, c.Len(true))
	assert.Equal(t, 0, c.Len(false))

	e, ok := c.Lookup("Go Mono", Regular)
	require.True(t, ok)
	assert.True(t, e.Embedded())
	assert.True(t, e.Loaded())
	assert.Equal(t, 0, c.Release())
}

func TestLoadedBytesCountsResidentData(t *testing.T) {
	dir := t.TempDir()
	c := New()
	_, err := c.InsertPaths(
		writeFont(t, dir, "Go-Regular.ttf", goregular.TTF),
		writeFont(t, dir, "Go-Bold.ttf", gobold.TTF),
	)
	require.NoError(t, err)
	assert.Zero(t, c.LoadedBytes(true))

	e, ok := c.Lookup("Go", Regular)
	require.True(t, ok)
	_, err = e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, int64(len(goregular.TTF)), c.LoadedBytes(false))

	c = New(WithEmbedded())
	assert.Positive(t, c.LoadedBytes(true))
	assert.Zero(t, c.LoadedBytes(false))
}
