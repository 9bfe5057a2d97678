package passwd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasel/internal/pkg/passwd"
)

func TestPlain(t *testing.T) {
	h := passwd.Plain{}

	stored, err := h.Hash("secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", stored)

	assert.True(t, h.Compare(stored, "secret"))
	assert.False(t, h.Compare(stored, "other"))
}

func TestBcrypt(t *testing.T) {
	h := passwd.Bcrypt{}

	stored, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored)

	assert.True(t, h.Compare(stored, "secret"))
	assert.False(t, h.Compare(stored, "Secret"))
	assert.False(t, h.Compare("not a bcrypt hash", "secret"))
}

func TestForMode(t *testing.T) {
	assert.IsType(t, passwd.Bcrypt{}, passwd.ForMode("bcrypt"))
	assert.IsType(t, passwd.Plain{}, passwd.ForMode("plain"))
	assert.IsType(t, passwd.Plain{}, passwd.ForMode(""))
}
