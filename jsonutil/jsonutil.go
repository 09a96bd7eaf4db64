// Package jsonutil wraps sonic so every package in the module encodes and
// decodes JSON the same way. The frozen configuration mirrors encoding/json
// (HTML escaping, sorted map keys) so output stays stable for logs and tests.
package jsonutil

import (
	"encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value. It aliases encoding/json.RawMessage,
// which sonic understands natively.
type RawMessage = json.RawMessage

// Number is a JSON number literal preserved by UnmarshalUseNumber.
type Number = json.Number

var (
	api       = sonic.ConfigStd
	numberAPI = sonic.Config{
		EscapeHTML:       true,
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true,
		ValidateString:   true,
		UseNumber:        true,
	}.Froze()
)

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v with the supplied prefix and indentation.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// UnmarshalUseNumber decodes data into v keeping numbers as Number values
// instead of float64, which avoids precision loss for large integers.
func UnmarshalUseNumber(data []byte, v any) error {
	return numberAPI.Unmarshal(data, v)
}

// Encode streams v to w followed by a newline.
func Encode(w io.Writer, v any) error {
	return api.NewEncoder(w).Encode(v)
}

// Decode reads the next JSON value from r into v.
func Decode(r io.Reader, v any) error {
	return api.NewDecoder(r).Decode(v)
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool {
	return sonic.Valid(data)
}
