package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dmitrymomot/kvsession/pkg/kvstore/mocks"
	"github.com/dmitrymomot/kvsession/pkg/session"
)

// The tests below pin the exact command sequence each operation sends to the
// store. The manager id is always "mgr".

func mockManager(t *testing.T, ids []string, opts ...session.Option) (*session.Manager, *mocks.MockPool, *mocks.MockConn) {
	t.Helper()

	ctrl := gomock.NewController(t)
	pool := mocks.NewMockPool(ctrl)
	conn := mocks.NewMockConn(ctrl)
	pool.EXPECT().Close().Return(nil).AnyTimes()

	base := []session.Option{
		session.WithPool(pool),
		session.WithPipeline(session.NewMiddleware()),
		session.WithIDGenerator(sequence(append([]string{"mgr"}, ids...)...)),
	}
	m := session.New(append(base, opts...)...)
	require.NoError(t, m.Start(context.Background()))
	require.Equal(t, "mgr", m.ManagerID())
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	return m, pool, conn
}

// expectCreate expects a reservation under the default idle timeout.
func expectCreate(pool *mocks.MockPool, conn *mocks.MockConn, key string) {
	gomock.InOrder(
		pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
		conn.EXPECT().SetNX(gomock.Any(), []byte(key), []byte("null")).Return(true, nil),
		conn.EXPECT().Expire(gomock.Any(), []byte(key), 30*time.Minute).Return(nil),
		pool.EXPECT().Release(conn, false),
	)
}

func TestProtocol_Create(t *testing.T) {
	t.Run("empty store takes one SETNX", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"})
		expectCreate(pool, conn, "mgr-a")

		s, err := m.Create(newRequest(), "")
		require.NoError(t, err)
		assert.Equal(t, "a", s.ID())
	})

	t.Run("two collisions take three SETNX on one connection", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a", "b", "c"})
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-a"), []byte("null")).Return(false, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-b"), []byte("null")).Return(false, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-c"), []byte("null")).Return(true, nil),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-c"), 30*time.Minute).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		s, err := m.Create(newRequest(), "")
		require.NoError(t, err)
		assert.Equal(t, "c", s.ID())
	})

	t.Run("exhausted attempts", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a", "b"}, session.WithMaxCreateAttempts(2))
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-a"), []byte("null")).Return(false, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-b"), []byte("null")).Return(false, nil),
			pool.EXPECT().Release(conn, false),
		)

		ctx := newRequest()
		_, err := m.Create(ctx, "")
		assert.ErrorIs(t, err, session.ErrIDCollision)
		assert.Nil(t, m.Current(ctx))
	})

	t.Run("store failure releases the connection as broken", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"})
		boom := errors.New("connection reset")
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-a"), []byte("null")).Return(false, boom),
			pool.EXPECT().Release(conn, true),
		)

		_, err := m.Create(newRequest(), "")
		assert.ErrorIs(t, err, session.ErrStore)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("placeholder expires with the idle timeout", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"}, session.WithMaxInactiveInterval(time.Minute))
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-a"), []byte("null")).Return(true, nil),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-a"), time.Minute).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		_, err := m.Create(newRequest(), "")
		require.NoError(t, err)
	})

	t.Run("no idle timeout leaves the placeholder without expiry", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"}, session.WithMaxInactiveInterval(0))
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().SetNX(gomock.Any(), []byte("mgr-a"), []byte("null")).Return(true, nil),
			pool.EXPECT().Release(conn, false),
		)

		_, err := m.Create(newRequest(), "")
		require.NoError(t, err)
	})

	t.Run("acquire failure", func(t *testing.T) {
		m, pool, _ := mockManager(t, nil)
		boom := errors.New("pool exhausted")
		pool.EXPECT().Acquire(gomock.Any()).Return(nil, boom)

		_, err := m.Create(newRequest(), "x")
		assert.ErrorIs(t, err, boom)
	})
}

func TestProtocol_Save(t *testing.T) {
	t.Run("save after create writes payload then refreshes expiry", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"}, session.WithMaxInactiveInterval(30*time.Minute))
		expectCreate(pool, conn, "mgr-a")

		ctx := newRequest()
		s, err := m.Create(ctx, "")
		require.NoError(t, err)

		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Set(gomock.Any(), []byte("mgr-a"), gomock.Any()).
				DoAndReturn(func(_ context.Context, _, value []byte) error {
					assert.NotEqual(t, "null", string(value))
					return nil
				}),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-a"), 30*time.Minute).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		require.NoError(t, m.Save(ctx, s))
	})

	t.Run("clean persisted session only refreshes expiry", func(t *testing.T) {
		m, pool, conn := mockManager(t, nil, session.WithMaxInactiveInterval(time.Hour))

		stored := session.NewSession(time.Hour)
		stored.Set("user", "u-1")
		payload, err := session.JSONCodec{}.Encode(stored)
		require.NoError(t, err)

		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Get(gomock.Any(), []byte("mgr-xyz")).Return(payload, nil),
			pool.EXPECT().Release(conn, false),
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-xyz"), time.Hour).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		ctx := newRequest()
		s, err := m.Find(ctx, "xyz")
		require.NoError(t, err)
		require.NoError(t, m.Save(ctx, s))
	})

	t.Run("modified loaded session is rewritten", func(t *testing.T) {
		m, pool, conn := mockManager(t, nil, session.WithMaxInactiveInterval(time.Hour))

		payload, err := session.JSONCodec{}.Encode(session.NewSession(time.Hour))
		require.NoError(t, err)

		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Get(gomock.Any(), []byte("mgr-xyz")).Return(payload, nil),
			pool.EXPECT().Release(conn, false),
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Set(gomock.Any(), []byte("mgr-xyz"), gomock.Any()).Return(nil),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-xyz"), time.Hour).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		ctx := newRequest()
		s, err := m.Find(ctx, "xyz")
		require.NoError(t, err)
		s.Set("cart", 1)
		require.NoError(t, m.Save(ctx, s))
		assert.False(t, s.IsDirty())
	})

	t.Run("mutation during write keeps the session dirty", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"})
		expectCreate(pool, conn, "mgr-a")

		ctx := newRequest()
		s, err := m.Create(ctx, "")
		require.NoError(t, err)
		s.Set("step", 1)

		var last []byte
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Set(gomock.Any(), []byte("mgr-a"), gomock.Any()).
				DoAndReturn(func(_ context.Context, _, _ []byte) error {
					s.Set("step", 2)
					return nil
				}),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-a"), 30*time.Minute).Return(nil),
			pool.EXPECT().Release(conn, false),
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Set(gomock.Any(), []byte("mgr-a"), gomock.Any()).
				DoAndReturn(func(_ context.Context, _, value []byte) error {
					last = value
					return nil
				}),
			conn.EXPECT().Expire(gomock.Any(), []byte("mgr-a"), 30*time.Minute).Return(nil),
			pool.EXPECT().Release(conn, false),
		)

		require.NoError(t, m.Save(ctx, s))
		assert.True(t, s.IsDirty(), "change made while writing must survive the save")

		require.NoError(t, m.Save(ctx, s))
		assert.False(t, s.IsDirty())

		restored, err := session.JSONCodec{}.Decode(last, factory(0))
		require.NoError(t, err)
		step, ok := restored.GetInt("step")
		require.True(t, ok)
		assert.Equal(t, 2, step)
	})

	t.Run("failed write keeps the session dirty", func(t *testing.T) {
		m, pool, conn := mockManager(t, []string{"a"})
		expectCreate(pool, conn, "mgr-a")

		ctx := newRequest()
		s, err := m.Create(ctx, "")
		require.NoError(t, err)
		s.Set("k", "v")

		boom := errors.New("READONLY")
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Set(gomock.Any(), []byte("mgr-a"), gomock.Any()).Return(boom),
			pool.EXPECT().Release(conn, true),
		)

		err = m.Save(ctx, s)
		assert.ErrorIs(t, err, session.ErrStore)
		assert.True(t, s.IsDirty())
		rc, _ := session.RequestContextFrom(ctx)
		assert.Equal(t, session.PersistedFalse, rc.Persisted())
	})
}

func TestProtocol_Find(t *testing.T) {
	t.Run("placeholder is detected", func(t *testing.T) {
		m, pool, conn := mockManager(t, nil)
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Get(gomock.Any(), []byte("mgr-p")).Return([]byte("null"), nil),
			pool.EXPECT().Release(conn, false),
		)

		_, err := m.Find(newRequest(), "p")
		assert.ErrorIs(t, err, session.ErrPlaceholderObserved)
	})

	t.Run("store failure", func(t *testing.T) {
		m, pool, conn := mockManager(t, nil)
		boom := errors.New("timeout")
		gomock.InOrder(
			pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
			conn.EXPECT().Get(gomock.Any(), []byte("mgr-x")).Return(nil, boom),
			pool.EXPECT().Release(conn, true),
		)

		_, err := m.Find(newRequest(), "x")
		assert.ErrorIs(t, err, session.ErrStore)
	})
}

func TestProtocol_Remove(t *testing.T) {
	m, pool, conn := mockManager(t, []string{"a"})
	expectCreate(pool, conn, "mgr-a")

	ctx := newRequest()
	s, err := m.Create(ctx, "")
	require.NoError(t, err)

	gomock.InOrder(
		pool.EXPECT().Acquire(gomock.Any()).Return(conn, nil),
		conn.EXPECT().Del(gomock.Any(), []byte("mgr-a")).Return(nil),
		pool.EXPECT().Release(conn, false),
	)
	require.NoError(t, m.Remove(ctx, s))
}
