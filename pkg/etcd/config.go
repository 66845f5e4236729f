package etcd

import "time"

// Config describes how to reach the etcd cluster.
type Config struct {
	Endpoints   []string      `env:"ETCD_ENDPOINTS" envDefault:"localhost:2379" envSeparator:","`
	Namespace   string        `env:"ETCD_NAMESPACE" envDefault:"/kvsession/"`
	Username    string        `env:"ETCD_USERNAME"`
	Password    string        `env:"ETCD_PASSWORD"`
	DialTimeout time.Duration `env:"ETCD_DIAL_TIMEOUT" envDefault:"5s"`
}
