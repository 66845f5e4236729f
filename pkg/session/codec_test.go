package session_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

func factory(d time.Duration) session.Factory {
	return session.FactoryFunc(func() *session.Session {
		return session.NewSession(d)
	})
}

func TestJSONCodec(t *testing.T) {
	s := session.NewSession(time.Hour)
	s.Set("user", "u-1")
	s.Set("count", 2)

	data, err := session.JSONCodec{}.Encode(s)
	require.NoError(t, err)
	assert.NotEqual(t, "null", string(data))

	got, err := session.JSONCodec{}.Decode(data, factory(time.Minute))
	require.NoError(t, err)

	user, _ := got.GetString("user")
	assert.Equal(t, "u-1", user)
	count, ok := got.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, 2, count)
	assert.Equal(t, time.Hour, got.MaxInactiveInterval())

	_, err = session.JSONCodec{}.Decode([]byte("{"), factory(time.Minute))
	assert.Error(t, err)

	t.Run("large integers keep precision", func(t *testing.T) {
		const big = int64(1)<<53 + 1
		s := session.NewSession(time.Hour)
		s.Set("account", big)

		data, err := session.JSONCodec{}.Encode(s)
		require.NoError(t, err)
		got, err := session.JSONCodec{}.Decode(data, factory(time.Minute))
		require.NoError(t, err)

		raw, ok := got.Get("account")
		require.True(t, ok)
		assert.Equal(t, json.Number("9007199254740993"), raw)
		n, ok := got.GetInt("account")
		require.True(t, ok)
		assert.Equal(t, int(big), n)
	})
}

// prefixSerializer fills the handed session from "state:"-prefixed JSON.
type prefixSerializer struct{}

func (prefixSerializer) Serialize(s *session.Session) ([]byte, error) {
	data, err := json.Marshal(s.State())
	if err != nil {
		return nil, err
	}
	return append([]byte("state:"), data...), nil
}

func (prefixSerializer) DeserializeInto(data []byte, s *session.Session) error {
	if len(data) < 6 || string(data[:6]) != "state:" {
		return errors.New("missing prefix")
	}
	var st session.State
	if err := json.Unmarshal(data[6:], &st); err != nil {
		return err
	}
	s.Restore(st)
	return nil
}

func TestAdaptSerializer(t *testing.T) {
	codec := session.AdaptSerializer(prefixSerializer{})

	s := session.NewSession(time.Hour)
	s.Set("k", "v")

	data, err := codec.Encode(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "state:")

	calls := 0
	got, err := codec.Decode(data, session.FactoryFunc(func() *session.Session {
		calls++
		return session.NewSession(time.Minute)
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	v, _ := got.GetString("k")
	assert.Equal(t, "v", v)

	_, err = codec.Decode([]byte("junk"), factory(time.Minute))
	assert.Error(t, err)
}

func TestCodecRegistry(t *testing.T) {
	c, err := session.LookupCodec(session.CodecJSON)
	require.NoError(t, err)
	assert.IsType(t, session.JSONCodec{}, c)

	_, err = session.LookupCodec("nope")
	assert.ErrorIs(t, err, session.ErrUnknownCodec)

	session.RegisterCodec("test-prefix", session.AdaptSerializer(prefixSerializer{}))
	assert.Contains(t, session.Codecs(), "test-prefix")

	assert.Panics(t, func() { session.RegisterCodec("test-prefix", session.JSONCodec{}) })
	assert.Panics(t, func() { session.RegisterCodec("", session.JSONCodec{}) })
	assert.Panics(t, func() { session.RegisterCodec("nil-codec", nil) })
}
