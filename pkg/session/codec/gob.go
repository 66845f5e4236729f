package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// gobSerializer fills the session it is handed, so it is exposed through
// session.AdaptSerializer.
type gobSerializer struct{}

// Gob returns the encoding/gob codec.
func Gob() session.Codec {
	return session.AdaptSerializer(gobSerializer{})
}

func (gobSerializer) Serialize(s *session.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.State()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializer) DeserializeInto(data []byte, s *session.Session) error {
	var st session.State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.Restore(st)
	return nil
}
