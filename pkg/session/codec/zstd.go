package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// Stateless encoder and decoder shared by every compressed codec; EncodeAll
// and DecodeAll are safe for concurrent use.
func zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

type compressed struct {
	inner session.Codec
}

// Compressed wraps inner so payloads are stored zstd-compressed.
func Compressed(inner session.Codec) session.Codec {
	return compressed{inner: inner}
}

func (c compressed) Encode(s *session.Session) ([]byte, error) {
	raw, err := c.inner.Encode(s)
	if err != nil {
		return nil, err
	}
	enc, _, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c compressed) Decode(data []byte, f session.Factory) (*session.Session, error) {
	_, dec, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	return c.inner.Decode(raw, f)
}
