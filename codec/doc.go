// Package codec connects the persistent collections to serializers.
//
// ToRaw and FromRaw convert between collections and plain Go values
// ([]any, map[any]any, and a tagged []any for sets) that any encoder can
// walk or that any decoder can produce. Marshal, Unmarshal and the stream
// Encoder and Decoder do so over CBOR.
package codec
