package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestGenerateSlug(t *testing.T) {
	slug, err := GenerateSlug()
	require.NoError(t, err)
	assert.Len(t, slug, 24)
}

func TestNumericCode(t *testing.T) {
	t.Run("returns requested number of digits", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code, err := NumericCode(6)
			require.NoError(t, err)
			assert.Regexp(t, `^\d{6}$`, code)
		}
	})

	t.Run("zero length", func(t *testing.T) {
		code, err := NumericCode(0)
		require.NoError(t, err)
		assert.Empty(t, code)
	})
}

func TestHmacSHA256(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		assert.Len(t, HmacSHA256("secret", "data"), 64)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, HmacSHA256("secret", "data"), HmacSHA256("secret", "data"))
	})

	t.Run("different secret produces different result", func(t *testing.T) {
		assert.NotEqual(t, HmacSHA256("secret1", "data"), HmacSHA256("secret2", "data"))
	})

	t.Run("produces expected HMAC", func(t *testing.T) {
		result := HmacSHA256("key", "The quick brown fox jumps over the lazy dog")
		assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", result)
	})

	t.Run("raw variant matches hex variant", func(t *testing.T) {
		raw := HmacSHA256Raw("key", "The quick brown fox jumps over the lazy dog")
		assert.Len(t, raw, 32)
		assert.Equal(t, byte(0xf7), raw[0])
	})
}

func TestHashWithSecret(t *testing.T) {
	h := HashWithSecret("secret", "a@x.com:123456")
	assert.Equal(t, HmacSHA256("secret", "a@x.com:123456"), h)
	assert.NotEqual(t, h, HashWithSecret("secret", "a@x.com:123457"))
}

func TestConstantTimeEqual(t *testing.T) {
	t.Run("returns true for equal strings", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("abc", "abc"))
	})

	t.Run("returns false for different strings", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc", "def"))
	})

	t.Run("returns false for different lengths", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc", "ab"))
	})

	t.Run("returns true for empty strings", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("", ""))
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
