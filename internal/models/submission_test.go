package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSchoolName(t *testing.T) {
	cases := map[string]string{
		"St. Mary's NS":          "st marys ns",
		"ST MARYS NS":            "st marys ns",
		"  Gaelscoil   na Mara ": "gaelscoil na mara",
		"Scoil Íde":              "scoil íde",
		"C.B.S. Secondary":       "cbs secondary",
		"":                       "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeSchoolName(input), "input %q", input)
	}
}

func TestLocationFingerprint(t *testing.T) {
	locality := "locality-9"
	require.Equal(t, "county-1", LocationFingerprint("county-1", nil))
	empty := ""
	require.Equal(t, "county-1", LocationFingerprint("county-1", &empty))
	require.Equal(t, "county-1|locality-9", LocationFingerprint("county-1", &locality))
}

func TestNamesCollide(t *testing.T) {
	assert.True(t, NamesCollide("st marys ns", "st marys"))
	assert.True(t, NamesCollide("st marys", "st marys ns"))
	assert.True(t, NamesCollide("st marys ns", "st marys ns"))
	assert.False(t, NamesCollide("st marys ns", "scoil ide"))
	assert.False(t, NamesCollide("", "scoil ide"))
}

func TestSubmissionStatusTerminal(t *testing.T) {
	assert.False(t, SubmissionStatusPending.Terminal())
	assert.True(t, SubmissionStatusApproved.Terminal())
	assert.True(t, SubmissionStatusRejected.Terminal())
	assert.True(t, SubmissionStatusDuplicate.Terminal())
}
