package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	assert.True(t, Verify("hunter2", encoded))
	assert.False(t, Verify("hunter3", encoded))
	assert.False(t, Verify("", encoded))
}

func TestHashesAreSalted(t *testing.T) {
	first, err := Hash("hunter2")
	require.NoError(t, err)
	second, err := Hash("hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, Verify("hunter2", first))
	assert.True(t, Verify("hunter2", second))
}

func TestVerifyRejectsMalformedEncoding(t *testing.T) {
	assert.False(t, Verify("hunter2", ""))
	assert.False(t, Verify("hunter2", "$argon2id$v=19$garbage"))
	assert.False(t, Verify("hunter2", "$bcrypt$whatever"))
}
