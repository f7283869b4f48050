package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/ByLCY/inkwell/pkgstore"
)

// DefaultPackageEntry is opened when a package is referenced without a path.
const DefaultPackageEntry = "/lib.papyrus"

// FileID names a file either in the project or inside a package. Path is
// rooted and slash-separated.
type FileID struct {
	Package *pkgstore.Reference
	Path    string
}

// Project returns the id of a project file.
func Project(p string) FileID {
	return FileID{Path: "/" + strings.TrimPrefix(path.Clean("/"+p), "/")}
}

func (id FileID) String() string {
	if id.Package != nil {
		return id.Package.String() + id.Path
	}
	return id.Path
}

// Resolve interprets ref as written in the source of from. Package references
// ("@ns/name:1.0.0/file") select a package; absolute paths stay within
// from's package or project; everything else is relative to from's
// directory. Paths climbing above the root are ErrAccessDenied.
func Resolve(from FileID, ref string) (FileID, error) {
	if ref == "" {
		return FileID{}, fmt.Errorf("%w: empty", ErrBadPath)
	}
	if strings.HasPrefix(ref, "@") {
		return resolvePackage(ref)
	}
	var rel string
	if strings.HasPrefix(ref, "/") {
		rel = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		rel = path.Join(strings.TrimPrefix(path.Dir(from.Path), "/"), ref)
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return FileID{}, fmt.Errorf("%w: %s escapes the root", ErrAccessDenied, ref)
	}
	if rel == "." {
		rel = ""
	}
	return FileID{Package: from.Package, Path: "/" + rel}, nil
}

func resolvePackage(ref string) (FileID, error) {
	spec, file := ref, ""
	if colon := strings.Index(ref, ":"); colon >= 0 {
		if slash := strings.Index(ref[colon:], "/"); slash >= 0 {
			spec, file = ref[:colon+slash], ref[colon+slash:]
		}
	}
	pkg, err := pkgstore.ParseReference(spec)
	if err != nil {
		return FileID{}, fmt.Errorf("%w: %w", ErrBadPath, err)
	}
	if file == "" || file == "/" {
		return FileID{Package: &pkg, Path: DefaultPackageEntry}, nil
	}
	rel := path.Clean(strings.TrimPrefix(file, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return FileID{}, fmt.Errorf("%w: %s escapes the package", ErrAccessDenied, ref)
	}
	return FileID{Package: &pkg, Path: "/" + rel}, nil
}
