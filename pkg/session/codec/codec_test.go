package codec_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsession/pkg/session"
	"github.com/dmitrymomot/kvsession/pkg/session/codec"
)

var factory = session.FactoryFunc(func() *session.Session {
	return session.NewSession(time.Minute)
})

func sample() *session.Session {
	s := session.NewSession(2 * time.Hour)
	s.Set("user", "u-1")
	s.Set("count", 3)
	s.Set("admin", true)
	return s
}

func TestRegisteredCodecs(t *testing.T) {
	for _, name := range []string{codec.NameGob, codec.NameYAML, codec.NameJSONZstd} {
		t.Run(name, func(t *testing.T) {
			c, err := session.LookupCodec(name)
			require.NoError(t, err)

			data, err := c.Encode(sample())
			require.NoError(t, err)
			assert.NotEqual(t, "null", string(data))

			got, err := c.Decode(data, factory)
			require.NoError(t, err)

			user, _ := got.GetString("user")
			assert.Equal(t, "u-1", user)
			count, ok := got.GetInt("count")
			assert.True(t, ok)
			assert.Equal(t, 3, count)
			admin, _ := got.GetBool("admin")
			assert.True(t, admin)
			assert.Equal(t, 2*time.Hour, got.MaxInactiveInterval())
		})
	}
}

func TestCodecsRejectGarbage(t *testing.T) {
	for _, name := range []string{codec.NameGob, codec.NameYAML, codec.NameJSONZstd} {
		t.Run(name, func(t *testing.T) {
			c, err := session.LookupCodec(name)
			require.NoError(t, err)
			_, err = c.Decode([]byte("\x00\x01not a payload"), factory)
			assert.Error(t, err)
		})
	}
}

func TestYAMLKeepsIntegers(t *testing.T) {
	data, err := codec.YAML{}.Encode(sample())
	require.NoError(t, err)
	assert.Contains(t, string(data), "user: u-1")

	got, err := codec.YAML{}.Decode(data, factory)
	require.NoError(t, err)
	v, _ := got.Get("count")
	assert.IsType(t, 0, v)
}

func TestCompressed(t *testing.T) {
	s := session.NewSession(time.Hour)
	s.Set("blob", strings.Repeat("abcdefgh", 512))

	plain, err := session.JSONCodec{}.Encode(s)
	require.NoError(t, err)
	packed, err := codec.Compressed(session.JSONCodec{}).Encode(s)
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
	// zstd frame magic
	assert.True(t, bytes.HasPrefix(packed, []byte{0x28, 0xb5, 0x2f, 0xfd}))
}

func TestEncrypted(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)

	t.Run("round trip", func(t *testing.T) {
		c, err := codec.Encrypted(session.JSONCodec{}, key)
		require.NoError(t, err)

		data, err := c.Encode(sample())
		require.NoError(t, err)
		assert.NotContains(t, string(data), "u-1")

		again, err := c.Encode(sample())
		require.NoError(t, err)
		assert.NotEqual(t, data, again, "nonce must differ per payload")

		got, err := c.Decode(data, factory)
		require.NoError(t, err)
		user, _ := got.GetString("user")
		assert.Equal(t, "u-1", user)
	})

	t.Run("stacked on compression", func(t *testing.T) {
		c, err := codec.Encrypted(codec.Compressed(codec.Gob()), key)
		require.NoError(t, err)

		data, err := c.Encode(sample())
		require.NoError(t, err)
		got, err := c.Decode(data, factory)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
	})

	t.Run("wrong key", func(t *testing.T) {
		c, err := codec.Encrypted(session.JSONCodec{}, key)
		require.NoError(t, err)
		data, err := c.Encode(sample())
		require.NoError(t, err)

		other, err := codec.Encrypted(session.JSONCodec{}, bytes.Repeat([]byte{9}, 32))
		require.NoError(t, err)
		_, err = other.Decode(data, factory)
		assert.ErrorIs(t, err, codec.ErrDecrypt)
	})

	t.Run("short payload", func(t *testing.T) {
		c, err := codec.Encrypted(session.JSONCodec{}, key)
		require.NoError(t, err)
		_, err = c.Decode([]byte("short"), factory)
		assert.ErrorIs(t, err, codec.ErrCiphertextTooShort)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := codec.Encrypted(session.JSONCodec{}, []byte("short"))
		assert.ErrorIs(t, err, codec.ErrInvalidKey)
	})
}
