// Package randflake - id.go provides the ID type with encoding, decoding
// and serialization methods.

package randflake

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// ID is a 64-bit identifier minted by a Generator.
//
// The ID type implements standard Go interfaces:
//   - json.Marshaler/Unmarshaler: quoted decimal (safe for JavaScript)
//   - encoding.TextMarshaler/Unmarshaler
//   - encoding.BinaryMarshaler/Unmarshaler: 8 bytes big endian
//   - sql.Scanner/driver.Valuer: BIGINT columns
//   - fmt.Stringer: decimal
//
// Decoding the fields needs the epoch the generator was configured with:
//
//	parts := id.Decompose(randflake.DefaultEpoch)
//	fmt.Println(parts.MachineID, parts.Sequence, parts.Time())
type ID uint64

// Uint64 returns the ID as a uint64.
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// Int64 returns the ID as an int64. Every ID whose delta fits the nominal
// 41-bit timestamp field (see Lifespan) is non-negative; later IDs set the
// sign bit and come out negative.
func (id ID) Int64() int64 {
	return int64(id)
}

// String returns the decimal representation.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Base2 returns the binary representation, handy for inspecting the fields.
func (id ID) Base2() string {
	return strconv.FormatUint(uint64(id), 2)
}

// Base58 returns a base58 string using the Flickr alphabet (no 0, O, I or l).
//
//	ID(20971524113).Base58() // "xXbxtX"
func (id ID) Base58() string {
	return encodeBase58(uint64(id))
}

// Base62 returns a URL-safe base62 string (0-9, a-z, A-Z).
func (id ID) Base62() string {
	return encodeBase62(uint64(id))
}

// Hex returns a lowercase hexadecimal string without prefix.
func (id ID) Hex() string {
	return encodeHex(uint64(id))
}

// IntBytes returns the ID as an 8-byte big-endian integer.
func (id ID) IntBytes() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b
}

// Decompose splits the ID into its fields using epoch. See Parse.
func (id ID) Decompose(epoch int64) Parts {
	ts, machine, seq := Parse(uint64(id), epoch)
	return Parts{Timestamp: ts, MachineID: machine, Sequence: seq}
}

// Time returns the instant the ID was minted at, given its epoch.
func (id ID) Time(epoch int64) time.Time {
	ts, _, _ := Parse(uint64(id), epoch)
	return time.UnixMilli(ts).UTC()
}

// MachineID returns the machine id field. It does not depend on the epoch.
func (id ID) MachineID() int64 {
	_, machine, _ := unpack(uint64(id))
	return machine
}

// Sequence returns the sequence field. It does not depend on the epoch.
func (id ID) Sequence() int64 {
	return int64(uint64(id) & MaxSequence)
}

// Compare returns -1, 0 or 1. IDs of one generator compare in minting
// order by millisecond; within a millisecond the order follows the
// sequence, which is random by default.
func (id ID) Compare(other ID) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ID) MarshalBinary() ([]byte, error) {
	b := id.IntBytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("invalid binary data length: %d", len(data))
	}
	*id = ID(binary.BigEndian.Uint64(data))
	return nil
}

// MarshalJSON implements json.Marshaler.
//
// IDs are written as strings: JavaScript numbers lose precision above 2^53.
//
//	{"id": "1234567890123456789"}
func (id ID) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 22)
	b = append(b, '"')
	b = strconv.AppendUint(b, uint64(id), 10)
	b = append(b, '"')
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler. Accepts a string or a number.
func (id *ID) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", string(data), err)
	}
	*id = ID(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

// Scan implements sql.Scanner. Accepts int64 (BIGINT/INTEGER), []byte and
// string (decimal) and nil (zero ID).
//
// Example:
//
//	var id randflake.ID
//	err := db.QueryRow("SELECT id FROM orders WHERE ref = ?", ref).Scan(&id)
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = 0
		return nil
	}

	switch v := value.(type) {
	case int64:
		*id = ID(v)
	case []byte:
		return id.UnmarshalText(v)
	case string:
		return id.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}

// Value implements driver.Valuer. IDs are stored as int64, which keeps
// BIGINT/INTEGER primary keys in minting order while the delta fits the
// nominal 41-bit field, i.e. until Lifespan(epoch). IDs minted after that
// are stored as negative values and sort before earlier ones; Scan still
// restores them exactly.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// ParseString parses a decimal string into an ID.
func ParseString(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// ParseBase58 parses a base58 string into an ID.
func ParseBase58(s string) (ID, error) {
	v, err := decodeBase58(s)
	return ID(v), err
}

// ParseBase62 parses a base62 string into an ID.
func ParseBase62(s string) (ID, error) {
	v, err := decodeBase62(s)
	return ID(v), err
}

// ParseHex parses a hexadecimal string (either case, no prefix) into an ID.
func ParseHex(s string) (ID, error) {
	v, err := decodeHex(s)
	return ID(v), err
}

// Format returns the ID in the named format: "decimal" (default),
// "base58", "base62", "hex" or "binary".
func (id ID) Format(format string) string {
	switch format {
	case "base58", "b58":
		return id.Base58()
	case "base62", "b62":
		return id.Base62()
	case "hex", "x":
		return id.Hex()
	case "binary", "bin", "base2":
		return id.Base2()
	default:
		return id.String()
	}
}

// ParseFormat is the inverse of Format.
func ParseFormat(s, format string) (ID, error) {
	switch format {
	case "base58", "b58":
		return ParseBase58(s)
	case "base62", "b62":
		return ParseBase62(s)
	case "hex", "x":
		return ParseHex(s)
	case "binary", "bin", "base2":
		v, err := strconv.ParseUint(s, 2, 64)
		return ID(v), err
	default:
		return ParseString(s)
	}
}
