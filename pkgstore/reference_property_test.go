//go:build property

package pkgstore

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestReferenceRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ident := gen.RegexMatch(`^[a-z][a-z0-9-]{0,12}$`)
	part := gen.IntRange(0, 999)

	properties.Property("String then ParseReference returns the same reference", prop.ForAll(
		func(ns, name string, major, minor, patch int) bool {
			ref := Reference{
				Namespace: ns,
				Name:      name,
				Version:   fmt.Sprintf("%d.%d.%d", major, minor, patch),
			}
			got, err := ParseReference(ref.String())
			return err == nil && got == ref
		},
		ident, ident, part, part, part,
	))

	properties.Property("cache dir is derived only from the reference", prop.ForAll(
		func(ns, name string, patch int) bool {
			ref := Reference{Namespace: ns, Name: name, Version: fmt.Sprintf("1.0.%d", patch)}
			a := &Store{cacheDir: "/cache"}
			b := &Store{cacheDir: "/cache"}
			return a.Dir(ref) == b.Dir(ref)
		},
		ident, ident, part,
	))

	properties.TestingRun(t)
}
