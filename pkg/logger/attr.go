package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SessionID records the session identifier under the key "session_id".
// If id is empty, it returns an empty Attr.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// ManagerID records the manager instance identifier under the key "manager_id".
func ManagerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("manager_id", id)
}

// StoreKey records a key-value store key under the key "store_key".
func StoreKey(key string) slog.Attr {
	return slog.String("store_key", key)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Attempt records a 1-based attempt number under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Codec records a codec name under the key "codec".
func Codec(name string) slog.Attr {
	return slog.String("codec", name)
}

// Backend records a store backend name under the key "backend".
func Backend(name string) slog.Attr {
	return slog.String("backend", name)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
