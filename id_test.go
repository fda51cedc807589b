package randflake

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDEncodings(t *testing.T) {
	tests := []struct {
		id     ID
		base58 string
		base62 string
		hex    string
	}{
		{0, "1", "0", "0"},
		{57, "Z", "V", "39"},
		{58, "21", "W", "3a"},
		{61, "24", "Z", "3d"},
		{62, "25", "10", "3e"},
		{255, "5p", "47", "ff"},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.base58, tt.id.Base58())
			assert.Equal(t, tt.base62, tt.id.Base62())
			assert.Equal(t, tt.hex, tt.id.Hex())

			got, err := ParseBase58(tt.base58)
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)

			got, err = ParseBase62(tt.base62)
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)

			got, err = ParseHex(tt.hex)
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)
		})
	}
}

func TestIDEncodings_MaxValue(t *testing.T) {
	id := ID(math.MaxUint64)
	assert.Equal(t, "ffffffffffffffff", id.Hex())
	assert.LessOrEqual(t, len(id.Base58()), MaxBase58Len)
	assert.LessOrEqual(t, len(id.Base62()), MaxBase62Len)

	for _, format := range []string{"base58", "base62", "hex", "binary", "decimal"} {
		got, err := ParseFormat(id.Format(format), format)
		require.NoError(t, err, format)
		assert.Equal(t, id, got, format)
	}
}

func TestParseEncodedErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (ID, error)
		in    string
		want  error
	}{
		{"base58 empty", ParseBase58, "", ErrEmptyString},
		{"base58 excluded char", ParseBase58, "0OIl", ErrInvalidBase58},
		{"base58 too long", ParseBase58, "111111111111", ErrStringTooLong},
		{"base58 overflow", ParseBase58, "ZZZZZZZZZZZ", ErrIntegerOverflow},
		{"base62 invalid", ParseBase62, "ab-c", ErrInvalidBase62},
		{"base62 overflow", ParseBase62, "ZZZZZZZZZZZ", ErrIntegerOverflow},
		{"hex invalid", ParseHex, "xyz", ErrInvalidHex},
		{"hex too long", ParseHex, "10000000000000000", ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parse(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseHex_UpperCase(t *testing.T) {
	id, err := ParseHex("DEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, ID(0xdeadbeef), id)
}

func TestIDAccessors(t *testing.T) {
	id := ID(pack(5000, 1, 17))
	assert.Equal(t, int64(1), id.MachineID())
	assert.Equal(t, int64(17), id.Sequence())
	assert.Equal(t, uint64(id), id.Uint64())
	assert.Equal(t, int64(id), id.Int64())
	assert.Equal(t, [8]byte{0, 0, 0, 0x04, 0xe2, 0x00, 0x10, 0x11}, id.IntBytes())
	assert.Equal(t, "100", ID(4).Base2())

	assert.Equal(t, -1, ID(1).Compare(2))
	assert.Equal(t, 0, ID(2).Compare(2))
	assert.Equal(t, 1, ID(3).Compare(2))
}

func TestIDJSON(t *testing.T) {
	type order struct {
		ID ID `json:"id"`
	}
	in := order{ID: 1234567890123456789}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1234567890123456789"}`, string(b))

	var out order
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	require.NoError(t, json.Unmarshal([]byte(`{"id":42}`), &out))
	assert.Equal(t, ID(42), out.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"abc"}`), &out))
}

func TestIDBinaryAndText(t *testing.T) {
	id := ID(pack(99, 2, 3))

	b, err := id.MarshalBinary()
	require.NoError(t, err)
	var fromBinary ID
	require.NoError(t, fromBinary.UnmarshalBinary(b))
	assert.Equal(t, id, fromBinary)
	assert.Error(t, fromBinary.UnmarshalBinary([]byte{1, 2, 3}))

	text, err := id.MarshalText()
	require.NoError(t, err)
	var fromText ID
	require.NoError(t, fromText.UnmarshalText(text))
	assert.Equal(t, id, fromText)
}

func TestIDScanValue(t *testing.T) {
	id := ID(pack(1000, 5, 6))

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(id), v)

	tests := []struct {
		name    string
		in      interface{}
		want    ID
		wantErr bool
	}{
		{"int64", int64(id), id, false},
		{"bytes", []byte(id.String()), id, false},
		{"string", id.String(), id, false},
		{"nil", nil, 0, false},
		{"float", 1.5, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ID(7)
			err := got.Scan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDValue_PastNominalTimestampWidth(t *testing.T) {
	last := ID(pack(1<<41-1, 1, 1))
	first := ID(pack(1<<41, 1, 1))

	assert.Positive(t, last.Int64())
	assert.Negative(t, first.Int64(), "bit 63 set once the delta needs 42 bits")
	assert.Less(t, first.Int64(), last.Int64(), "signed order no longer follows minting order")
	assert.Equal(t, 1, first.Compare(last))

	v, err := first.Value()
	require.NoError(t, err)
	var back ID
	require.NoError(t, back.Scan(v))
	assert.Equal(t, first, back)
}

func TestParseString(t *testing.T) {
	id, err := ParseString("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, ID(math.MaxUint64), id)

	_, err = ParseString("-1")
	assert.Error(t, err)
}
