package pkgstore

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxUnpackedBytes bounds the total size of regular files in one archive.
const maxUnpackedBytes = 256 << 20

// extract unpacks a gzip-compressed tar stream into dir. Only directories and
// regular files are materialized.
func extract(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return &Error{Kind: KindArchive, Err: fmt.Errorf("opening gzip stream: %w", err)}
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	var total int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &Error{Kind: KindArchive, Err: fmt.Errorf("reading tar entry: %w", err)}
		}
		name, err := entryPath(hdr.Name)
		if err != nil {
			return &Error{Kind: KindArchive, Err: err}
		}
		if name == "" {
			continue
		}
		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &Error{Kind: KindFilesystem, Err: err}
			}
		case tar.TypeReg:
			if hdr.Size < 0 || total+hdr.Size > maxUnpackedBytes {
				return &Error{Kind: KindArchive, Err: fmt.Errorf("archive exceeds %d bytes", maxUnpackedBytes)}
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return &Error{Kind: KindFilesystem, Err: err}
			}
			n, err := writeEntry(target, io.LimitReader(tr, hdr.Size))
			if err != nil {
				return err
			}
			if n != hdr.Size {
				return &Error{Kind: KindArchive, Err: fmt.Errorf("entry %s is truncated", hdr.Name)}
			}
			total += n
		}
	}
}

func writeEntry(target string, r io.Reader) (_ int64, err error) {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, &Error{Kind: KindFilesystem, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &Error{Kind: KindFilesystem, Err: closeErr}
		}
	}()
	n, err := io.Copy(f, r)
	if err != nil {
		return n, &Error{Kind: KindArchive, Err: fmt.Errorf("unpacking %s: %w", filepath.Base(target), err)}
	}
	return n, nil
}

// entryPath cleans an archive member name and rejects names that would land
// outside the extraction directory.
func entryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("entry %q has an absolute path", name)
	}
	clean := path.Clean(name)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("entry %q escapes the package root", name)
	}
	return filepath.FromSlash(clean), nil
}
