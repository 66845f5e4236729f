// Package codec provides additional session codecs and registers them with
// the session package on import:
//
//	"gob"        encoding/gob over session.State
//	"yaml"       gopkg.in/yaml.v3 over session.State
//	"json+zstd"  the JSON codec compressed with zstd
//
// Encrypted wraps any codec with XChaCha20-Poly1305. It is not registered
// because it needs a key:
//
//	c, err := codec.Encrypted(codec.Compressed(session.JSONCodec{}), key)
//	mgr := session.New(session.WithCodec(c), ...)
//
// Values stored in a session must be registered with gob.Register to
// round-trip through the gob codec.
package codec

import "github.com/dmitrymomot/kvsession/pkg/session"

// Names under which the package registers its codecs.
const (
	NameGob      = "gob"
	NameYAML     = "yaml"
	NameJSONZstd = "json+zstd"
)

func init() {
	session.RegisterCodec(NameGob, Gob())
	session.RegisterCodec(NameYAML, YAML{})
	session.RegisterCodec(NameJSONZstd, Compressed(session.JSONCodec{}))
}
