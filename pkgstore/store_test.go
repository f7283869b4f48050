package pkgstore

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveFile struct {
	name string
	body string
	dir  bool
}

func makeArchive(t *testing.T, files ...archiveFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if f.dir {
			hdr = &tar.Header{Name: f.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !f.dir {
			_, err := tw.Write([]byte(f.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type registry struct {
	*httptest.Server
	hits atomic.Int32
}

func newRegistry(t *testing.T, handler func(hit int32, w http.ResponseWriter, r *http.Request)) *registry {
	t.Helper()
	reg := &registry{}
	reg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(reg.hits.Add(1), w, r)
	}))
	t.Cleanup(reg.Close)
	return reg
}

func newStore(t *testing.T, reg *registry, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithCacheDir(t.TempDir())}
	if reg != nil {
		base = append(base, WithRegistry(reg.URL), WithHTTPClient(reg.Client()))
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return s
}

var letterhead = MustParseReference("@preview/letterhead:0.1.0")

func TestResolveConcurrentCallersShareOneDownload(t *testing.T) {
	t.Parallel()
	archive := makeArchive(t,
		archiveFile{name: "lib.papyrus", body: `doc Lib v1 { }`},
		archiveFile{name: "assets/", dir: true},
		archiveFile{name: "assets/logo.txt", body: "logo"},
	)
	var agent atomic.Value
	reg := newRegistry(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path != "/preview/letterhead-0.1.0.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	})
	s := newStore(t, reg, WithUserAgent("inkwell-test/1"))

	const callers = 12
	dirs := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dirs[i], errs[i] = s.Resolve(context.Background(), letterhead)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), reg.hits.Load())
	for i := range dirs {
		require.NoError(t, errs[i])
		assert.Equal(t, dirs[0], dirs[i])
	}
	assert.Equal(t, s.Dir(letterhead), dirs[0])
	assert.Equal(t, "inkwell-test/1", agent.Load())

	data, err := os.ReadFile(filepath.Join(dirs[0], "assets", "logo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "logo", string(data))
	assert.FileExists(t, filepath.Join(dirs[0], markerFile))
}

func TestResolveOutlivesCancelledSharedDownload(t *testing.T) {
	t.Parallel()
	archive := makeArchive(t, archiveFile{name: "lib.papyrus", body: "ok"})
	reg := newRegistry(t, func(hit int32, w http.ResponseWriter, r *http.Request) {
		if hit == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write(archive)
	})
	s := newStore(t, reg)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Resolve(first, letterhead)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return reg.hits.Load() == 1 }, 5*time.Second, time.Millisecond)

	secondDir := make(chan string, 1)
	secondErr := make(chan error, 1)
	go func() {
		dir, err := s.Resolve(context.Background(), letterhead)
		secondDir <- dir
		secondErr <- err
	}()
	// let the second caller join the download in flight
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	dir := <-secondDir
	require.NoError(t, <-secondErr)
	assert.Equal(t, s.Dir(letterhead), dir)
	assert.FileExists(t, filepath.Join(dir, "lib.papyrus"))
	assert.Equal(t, int32(2), reg.hits.Load())
}

func TestResolveUsesExistingCache(t *testing.T) {
	t.Parallel()
	archive := makeArchive(t, archiveFile{name: "lib.papyrus", body: "x"})
	reg := newRegistry(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	cacheDir := t.TempDir()

	first := newStore(t, reg, WithCacheDir(cacheDir))
	_, err := first.Resolve(context.Background(), letterhead)
	require.NoError(t, err)

	second := newStore(t, reg, WithCacheDir(cacheDir))
	dir, err := second.Resolve(context.Background(), letterhead)
	require.NoError(t, err)
	assert.Equal(t, first.Dir(letterhead), dir)
	assert.Equal(t, int32(1), reg.hits.Load())
}

func TestResolveReplacesIncompleteDirectory(t *testing.T) {
	t.Parallel()
	archive := makeArchive(t, archiveFile{name: "lib.papyrus", body: "fresh"})
	reg := newRegistry(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	s := newStore(t, reg)
	stale := s.Dir(letterhead)
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "lib.papyrus"), []byte("half"), 0o644))

	dir, err := s.Resolve(context.Background(), letterhead)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "lib.papyrus"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestResolveFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		status  int
		body    func(t *testing.T) []byte
		want    error
		wantErr Kind
	}{
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound, wantErr: KindNotFound},
		{name: "server error", status: http.StatusInternalServerError, want: ErrStatus, wantErr: KindStatus},
		{
			name:   "corrupt archive",
			status: http.StatusOK,
			body:   func(*testing.T) []byte { return []byte("this is not gzip") },
			want:   ErrArchive, wantErr: KindArchive,
		},
		{
			name:   "escaping entry",
			status: http.StatusOK,
			body: func(t *testing.T) []byte {
				return makeArchive(t, archiveFile{name: "../../evil.txt", body: "boo"})
			},
			want: ErrArchive, wantErr: KindArchive,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := newRegistry(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				if tc.body != nil {
					_, _ = w.Write(tc.body(t))
				}
			})
			s := newStore(t, reg)

			_, err := s.Resolve(context.Background(), letterhead)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.wantErr, perr.Kind)
			assert.Equal(t, letterhead, perr.Ref)

			assert.NoDirExists(t, s.Dir(letterhead))
			leftovers, _ := os.ReadDir(filepath.Dir(s.Dir(letterhead)))
			assert.Empty(t, leftovers)
		})
	}
}

func TestResolveLocalNamespaces(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	dataDir := t.TempDir()
	local := MustParseReference("local/notes:1.2.3")
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "local", "notes", "1.2.3"), 0o755))

	s := newStore(t, reg, WithDataDir(dataDir))
	dir, err := s.Resolve(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "local", "notes", "1.2.3"), dir)

	_, err = s.Resolve(context.Background(), MustParseReference("local/missing:1.0.0"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(0), reg.hits.Load())
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	archive := makeArchive(t, archiveFile{name: "lib.papyrus", body: "ok"})
	reg := newRegistry(t, func(hit int32, w http.ResponseWriter, _ *http.Request) {
		if hit == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(archive)
	})
	s := newStore(t, reg, WithRetries(2))
	s.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	_, err := s.Resolve(context.Background(), letterhead)
	require.NoError(t, err)
	assert.Equal(t, int32(2), reg.hits.Load())
}

func TestResolveWithoutRetriesMakesOneAttempt(t *testing.T) {
	t.Parallel()
	reg := newRegistry(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	s := newStore(t, reg)

	_, err := s.Resolve(context.Background(), letterhead)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), reg.hits.Load())
}

func TestEntryPath(t *testing.T) {
	for in, want := range map[string]string{
		"lib.papyrus": "lib.papyrus",
		"./a/b.txt":   filepath.Join("a", "b.txt"),
		"a/../b.txt":  "b.txt",
		"./":          "",
	} {
		got, err := entryPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"/etc/passwd", "../x", "a/../../x"} {
		_, err := entryPath(in)
		assert.Error(t, err, in)
	}
}
