package pkgstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidReference is returned for malformed package reference strings.
var ErrInvalidReference = errors.New("invalid package reference")

var identPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Reference names one version of a package, written "namespace/name:version".
type Reference struct {
	Namespace string
	Name      string
	Version   string
}

// ParseReference parses "namespace/name:version". A leading "@" is accepted.
func ParseReference(s string) (Reference, error) {
	raw := s
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return Reference{}, fmt.Errorf("%w %q: missing namespace", ErrInvalidReference, raw)
	}
	colon := strings.LastIndexByte(s, ':')
	if colon < slash {
		return Reference{}, fmt.Errorf("%w %q: missing version", ErrInvalidReference, raw)
	}
	ref := Reference{
		Namespace: s[:slash],
		Name:      s[slash+1 : colon],
		Version:   s[colon+1:],
	}
	if err := ref.Validate(); err != nil {
		return Reference{}, fmt.Errorf("%w %q: %v", ErrInvalidReference, raw, err)
	}
	return ref, nil
}

// MustParseReference is ParseReference for static references.
func MustParseReference(s string) Reference {
	ref, err := ParseReference(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Validate checks every component of the reference.
func (r Reference) Validate() error {
	if !identPattern.MatchString(r.Namespace) {
		return fmt.Errorf("namespace %q is not a valid identifier", r.Namespace)
	}
	if !identPattern.MatchString(r.Name) {
		return fmt.Errorf("name %q is not a valid identifier", r.Name)
	}
	v := "v" + r.Version
	if !semver.IsValid(v) || semver.Canonical(v) != v || semver.Prerelease(v) != "" {
		return fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", r.Version)
	}
	return nil
}

func (r Reference) String() string {
	return "@" + r.Namespace + "/" + r.Name + ":" + r.Version
}

// dir is the relative directory of the reference inside a package root.
func (r Reference) dir() string {
	return filepath.Join(r.Namespace, r.Name, r.Version)
}

// archiveName is the registry file name of the reference.
func (r Reference) archiveName() string {
	return r.Name + "-" + r.Version + ".tar.gz"
}
