package config

import (
	"fmt"
	"reflect"
	"sync"
)

// entry holds one parsed configuration. ready is closed once val or err is set.
type entry struct {
	ready chan struct{}
	val   any
	err   error
}

var (
	cacheMu sync.Mutex
	cache   = map[reflect.Type]*entry{}
)

// Load fills v from the environment, parsing each configuration type at most
// once per process. Later calls for the same type get the first result even
// if the environment changed. A failed parse is not cached.
//
// The first Load also reads ./.env when present.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDefaultEnv()

	key := reflect.TypeFor[T]()

	cacheMu.Lock()
	e, ok := cache[key]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		cache[key] = e
	}
	cacheMu.Unlock()

	if ok {
		<-e.ready
		if e.err != nil {
			return e.err
		}
		*v = e.val.(T)
		return nil
	}

	var parsed T
	e.err = parseInto(&parsed, opts)
	if e.err == nil {
		e.val = parsed
		*v = parsed
	} else {
		cacheMu.Lock()
		delete(cache, key)
		cacheMu.Unlock()
	}
	close(e.ready)
	return e.err
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("config: loading %s: %v", reflect.TypeFor[T](), err))
	}
}

// ForceReloadConfig parses the environment into v again and replaces the
// cached value for its type.
func ForceReloadConfig[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	var parsed T
	if err := parseInto(&parsed, opts); err != nil {
		return err
	}

	e := &entry{ready: make(chan struct{}), val: parsed}
	close(e.ready)

	cacheMu.Lock()
	cache[reflect.TypeFor[T]()] = e
	cacheMu.Unlock()

	*v = parsed
	return nil
}

// ResetCache forgets every cached configuration. Meant for tests.
func ResetCache() {
	cacheMu.Lock()
	clear(cache)
	cacheMu.Unlock()
}
