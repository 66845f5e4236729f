// Package session keeps HTTP sessions in a shared key-value store so that
// any instance of a horizontally scaled service can serve any request.
//
// A Manager talks to the store through a kvstore.Pool (Redis, etcd or the
// in-process memory backend) and turns sessions into bytes with a Codec.
// Each in-flight request carries a RequestContext in its context.Context;
// the manager uses it to read the store at most once per session id per
// request and to skip rewriting sessions that did not change.
//
// # Architecture
//
//	┌────────┐   token   ┌────────────┐
//	│ Client │ ────────► │ Middleware │──── RequestContext ────┐
//	└────────┘           └────────────┘                        │
//	                           │                               ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                          Manager                            │
//	│   Create: SETNX "null"   Find: GET   Save: SET? + EXPIRE    │
//	└─────────────────────────────────────────────────────────────┘
//	       │  Codec                       │  kvstore.Pool
//	       ▼                              ▼
//	  json / gob / yaml / zstd      redis / etcd / memory
//
// Keys have the form "<manager id>-<session id>". The manager id is
// regenerated on every Start, so sessions written by a previous run are not
// reachable afterwards.
//
// Create reserves an id by writing the placeholder "null" with SETNX; a
// session is only visible to other instances after its first Save. A Find
// that reads the placeholder fails with ErrPlaceholderObserved.
//
// Save writes the payload when the session is dirty or not yet known to be
// persisted, then refreshes the expiry with EXPIRE in every case.
//
// # Usage
//
//	import (
//	    "github.com/dmitrymomot/kvsession/pkg/redis"
//	    "github.com/dmitrymomot/kvsession/pkg/session"
//	)
//
//	mw := session.NewMiddleware()
//	mgr := session.New(
//	    session.WithDialer(session.Dialer(redis.Dialer(redisCfg))),
//	    session.WithPipeline(mw),
//	    session.WithLogger(log),
//	)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop(context.Background())
//
//	r.Use(mw.Handler)
//	r.With(mgr.EnsureSession).Post("/cart", func(w http.ResponseWriter, r *http.Request) {
//	    s := session.MustFromContext(r.Context())
//	    s.Set("items", 3)
//	})
//
// The middleware saves valid sessions and removes invalidated ones after the
// handler returns, and clears the RequestContext whatever the outcome.
//
// # Codecs
//
// "json" is registered by this package. Importing
// github.com/dmitrymomot/kvsession/pkg/session/codec registers "gob",
// "yaml" and "json+zstd". Select one with Config.Codec or pass a Codec with
// WithCodec. A Serializer that fills a given session can be wrapped with
// AdaptSerializer.
//
// # Errors
//
// Store failures wrap ErrStore, codec failures wrap ErrCodec; both keep the
// underlying error so errors.Is works on either.
package session
