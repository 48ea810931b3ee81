package canonical

import (
	"encoding/json"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "Integer float", in: 95.0, want: `95`},
		{name: "Fraction", in: 100.4, want: `100.4`},
		{name: "Large exponent", in: 1e21, want: `1e+21`},
		{name: "Below exponent threshold", in: 1e20, want: `100000000000000000000`},
		{name: "Small exponent", in: 1e-7, want: `1e-7`},
		{name: "Zero", in: 0.0, want: `0`},
		{name: "No HTML escaping", in: "<a&b>", want: `"<a&b>"`},
		{
			name: "Declaration order",
			in: struct {
				Z string `json:"z"`
				A int    `json:"a"`
			}{Z: "last", A: 1},
			want: `{"z":"last","a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(make(chan int))
	assert.Error(t, err)
}

func TestKeccak256Hex(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(nil))
	assert.Equal(t, "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", Keccak256Hex([]byte("abc")))
	assert.Len(t, Keccak256([]byte("abc")), 32)
}

func TestHash(t *testing.T) {
	h, err := Hash("abc")
	require.NoError(t, err)
	// The canonical form of the string includes its quotes.
	assert.Equal(t, Keccak256Hex([]byte(`"abc"`)), h)

	again, err := Hash("abc")
	require.NoError(t, err)
	assert.Equal(t, h, again)
}

func TestParseHash(t *testing.T) {
	valid := "0xC5D2460186F7233C927E7DB2DCC703C0E500B653CA82273B7BFAD8045D85A470"

	got, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", got)

	got, err = ParseHash(valid[2:])
	require.NoError(t, err)
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", got)

	for _, bad := range []string{"", "0x", "0x1234", valid + "00", "0x" + string(make([]byte, 64))} {
		_, err := ParseHash(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTime(t *testing.T) {
	ts := NewTime(time.Date(2024, 3, 1, 13, 0, 0, 123456789, time.FixedZone("CET", 3600)))

	assert.Equal(t, "2024-03-01T12:00:00.123Z", ts.String())

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T12:00:00.123Z"`, string(data))

	var back Time
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Equal(back))
	assert.Equal(t, time.UTC, back.Location())
}

func TestTime_UnmarshalErrors(t *testing.T) {
	var ts Time
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestTime_RoundTripProperty(t *testing.T) {
	property := func(sec int32, nsec uint32) bool {
		ts := NewTime(time.Unix(int64(sec), int64(nsec%1_000_000_000)))
		data, err := json.Marshal(ts)
		if err != nil {
			return false
		}
		var back Time
		if err := json.Unmarshal(data, &back); err != nil {
			return false
		}
		return ts.Equal(back) && back.String() == ts.String()
	}
	require.NoError(t, quick.Check(property, nil))
}
