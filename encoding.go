// Package randflake - encoding.go converts identifiers to and from compact
// text alphabets.
//
// # Supported Encodings
//
//   - Base58: Flickr alphabet, no confusing characters (0, O, I, l)
//   - Base62: URL-safe alphanumeric
//   - Hex: 4 bits/char, bitshifting
//
// Decode tables are built once at init and are read-only afterwards.

package randflake

import (
	"errors"
	"math"
)

// Maximum string lengths for each encoding of a uint64.
const (
	MaxBase58Len = 11 // 58^11 > 2^64
	MaxBase62Len = 11 // 62^11 > 2^64
	MaxHexLen    = 16 // 64 / 4
)

// Encoding errors returned when parsing invalid encoded strings.
var (
	ErrInvalidBase58   = errors.New("invalid base58 encoding")
	ErrInvalidBase62   = errors.New("invalid base62 encoding")
	ErrInvalidHex      = errors.New("invalid hexadecimal encoding")
	ErrStringTooLong   = errors.New("encoded string exceeds maximum length")
	ErrIntegerOverflow = errors.New("decoded value would overflow uint64")
	ErrEmptyString     = errors.New("encoded string is empty")
)

const encodeBase58Map = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

const encodeBase62Map = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const encodeHexMap = "0123456789abcdef"

// invalid marks bytes outside an alphabet in the decode tables.
const invalid = 0xFF

var (
	decodeBase58Map [256]byte
	decodeBase62Map [256]byte
	decodeHexMap    [256]byte
)

func init() {
	for i := 0; i < 256; i++ {
		decodeBase58Map[i] = invalid
		decodeBase62Map[i] = invalid
		decodeHexMap[i] = invalid
	}
	for i := 0; i < len(encodeBase58Map); i++ {
		decodeBase58Map[encodeBase58Map[i]] = byte(i)
	}
	for i := 0; i < len(encodeBase62Map); i++ {
		decodeBase62Map[encodeBase62Map[i]] = byte(i)
	}
	for i := 0; i < len(encodeHexMap); i++ {
		decodeHexMap[encodeHexMap[i]] = byte(i)
		if c := encodeHexMap[i]; c >= 'a' && c <= 'f' {
			decodeHexMap[c-32] = byte(i)
		}
	}
}

// encodeBase encodes v in the alphabet of length base.
func encodeBase(v uint64, alphabet string) string {
	base := uint64(len(alphabet))
	if v < base {
		return string(alphabet[v])
	}

	var buf [64]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = alphabet[v%base]
		v /= base
	}
	return string(buf[i:])
}

// decodeBase decodes s using table, rejecting bytes outside the alphabet
// and values that would not fit in a uint64.
func decodeBase(s string, table *[256]byte, base uint64, maxLen int, errInvalid error) (uint64, error) {
	if len(s) == 0 {
		return 0, ErrEmptyString
	}
	if len(s) > maxLen {
		return 0, ErrStringTooLong
	}

	var v uint64
	for i := 0; i < len(s); i++ {
		d := table[s[i]]
		if d == invalid {
			return 0, errInvalid
		}
		if v > (math.MaxUint64-uint64(d))/base {
			return 0, ErrIntegerOverflow
		}
		v = v*base + uint64(d)
	}
	return v, nil
}

func encodeBase58(v uint64) string { return encodeBase(v, encodeBase58Map) }

func decodeBase58(s string) (uint64, error) {
	return decodeBase(s, &decodeBase58Map, 58, MaxBase58Len, ErrInvalidBase58)
}

func encodeBase62(v uint64) string { return encodeBase(v, encodeBase62Map) }

func decodeBase62(s string) (uint64, error) {
	return decodeBase(s, &decodeBase62Map, 62, MaxBase62Len, ErrInvalidBase62)
}

// encodeHex extracts 4 bits at a time.
func encodeHex(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [MaxHexLen]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = encodeHexMap[v&0x0F]
		v >>= 4
	}
	return string(buf[i:])
}

func decodeHex(s string) (uint64, error) {
	return decodeBase(s, &decodeHexMap, 16, MaxHexLen, ErrInvalidHex)
}
