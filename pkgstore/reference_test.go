package pkgstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("@preview/letterhead:0.2.1")
	require.NoError(t, err)
	assert.Equal(t, Reference{Namespace: "preview", Name: "letterhead", Version: "0.2.1"}, ref)
	assert.Equal(t, "@preview/letterhead:0.2.1", ref.String())

	ref, err = ParseReference("local/my-pkg:10.0.0")
	require.NoError(t, err)
	assert.Equal(t, "my-pkg", ref.Name)
}

func TestParseReferenceRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"letterhead:0.1.0",
		"@preview/letterhead",
		"@preview/letterhead:0.1",
		"@preview/letterhead:v0.1.0",
		"@preview/letterhead:0.1.0-beta",
		"@Preview/letterhead:0.1.0",
		"@preview/../x:0.1.0",
		"@preview/:0.1.0",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseReference(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidReference))
		})
	}
}
