package etcd

import "errors"

var (
	ErrNoEndpoints    = errors.New("etcd: no endpoints configured")
	ErrEmptyNamespace = errors.New("etcd: namespace must not be empty")
	ErrConnect        = errors.New("etcd: failed to connect")
)
