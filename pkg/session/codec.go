package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Factory produces empty sessions bound to a manager's configuration.
type Factory interface {
	NewSession() *Session
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func() *Session

// NewSession calls f.
func (f FactoryFunc) NewSession() *Session { return f() }

// Codec turns a session into bytes and back.
type Codec interface {
	Encode(s *Session) ([]byte, error)
	Decode(data []byte, f Factory) (*Session, error)
}

// Serializer is the narrow codec shape: it fills a session it is handed
// instead of asking a factory for one. Wrap it with AdaptSerializer.
type Serializer interface {
	Serialize(s *Session) ([]byte, error)
	DeserializeInto(data []byte, s *Session) error
}

// AdaptSerializer turns a Serializer into a Codec.
func AdaptSerializer(s Serializer) Codec {
	return serializerCodec{s}
}

type serializerCodec struct {
	delegate Serializer
}

func (c serializerCodec) Encode(s *Session) ([]byte, error) {
	return c.delegate.Serialize(s)
}

func (c serializerCodec) Decode(data []byte, f Factory) (*Session, error) {
	s := f.NewSession()
	if err := c.delegate.DeserializeInto(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// JSONCodec encodes the session State as JSON. Numeric attributes come back
// as json.Number so large integers keep their precision.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(s *Session) ([]byte, error) {
	return json.Marshal(s.State())
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte, f Factory) (*Session, error) {
	var st State
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&st); err != nil {
		return nil, err
	}
	s := f.NewSession()
	s.Restore(st)
	return s, nil
}

// CodecJSON is the name of the default codec.
const CodecJSON = "json"

var (
	codecsMu sync.RWMutex
	codecs   = map[string]Codec{
		CodecJSON: JSONCodec{},
	}
)

// RegisterCodec makes a codec available by name. It panics when name is
// empty, c is nil or the name is taken, like database/sql.Register.
func RegisterCodec(name string, c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	if name == "" {
		panic("session: RegisterCodec name is empty")
	}
	if c == nil {
		panic("session: RegisterCodec codec is nil")
	}
	if _, dup := codecs[name]; dup {
		panic("session: RegisterCodec called twice for codec " + name)
	}
	codecs[name] = c
}

// LookupCodec returns the codec registered under name.
func LookupCodec(name string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	c, ok := codecs[name]
	if !ok {
		return nil, errors.Join(ErrUnknownCodec, fmt.Errorf("codec %q", name))
	}
	return c, nil
}

// Codecs returns the sorted names of the registered codecs.
func Codecs() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
