package codec

import (
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

// YAML encodes the session state as YAML. Integers survive a round trip as
// int, unlike JSON.
type YAML struct{}

// Encode implements session.Codec.
func (YAML) Encode(s *session.Session) ([]byte, error) {
	return yaml.Marshal(s.State())
}

// Decode implements session.Codec.
func (YAML) Decode(data []byte, f session.Factory) (*session.Session, error) {
	var st session.State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	s := f.NewSession()
	s.Restore(st)
	return s, nil
}
