package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/lleo/go-persistent"
	"github.com/lleo/go-persistent/vector"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 section 4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Equal collections always produce
// identical bytes, whatever their internal layout.
var encMode cbor.EncMode

// decMode decodes maps under any-typed targets to map[any]any, since map
// keys of the collections are not limited to strings, and integers to
// int64 where they fit.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[any]any(nil)),
		IntDec:         cbor.IntDecConvertSignedOrBigInt,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v, which may be or hold persistent collections, to CBOR.
func Marshal(v any) ([]byte, error) {
	var raw, err = ToRaw(v)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(raw)
	return data, errors.Wrap(err, "codec: marshal")
}

// Unmarshal decodes one CBOR item, rebuilding persistent collections with
// FromRaw.
func Unmarshal(data []byte) (any, error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "codec: unmarshal")
	}
	return FromRaw(raw)
}

// DecodeVector decodes a CBOR array into a vector.
func DecodeVector(data []byte) (*vector.Vector[any], error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "codec: unmarshal")
	}
	return VectorFromRaw(raw)
}

// DecodeMap decodes a CBOR map into a map.
func DecodeMap(data []byte) (*persistent.Map[any, any], error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "codec: unmarshal")
	}
	return MapFromRaw(raw)
}

// Encoder writes a stream of CBOR items.
type Encoder struct {
	enc *cbor.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: encMode.NewEncoder(w)}
}

func (e *Encoder) Encode(v any) error {
	var raw, err = ToRaw(v)
	if err != nil {
		return err
	}
	return errors.Wrap(e.enc.Encode(raw), "codec: encode")
}

// Decoder reads a stream of CBOR items.
type Decoder struct {
	dec *cbor.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: decMode.NewDecoder(r)}
}

// Decode reads the next item. It returns io.EOF, unwrapped, at the end of
// the stream.
func (d *Decoder) Decode() (any, error) {
	var raw any
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "codec: decode")
	}
	return FromRaw(raw)
}
