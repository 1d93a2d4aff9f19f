package record

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/wire"
)

func TestBNPrimeRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 255, 65536, 1 << 40}
	for _, v := range cases {
		b := BNPrime{Value: big.NewInt(v)}
		w := wire.NewWriter(0)
		require.NoError(t, b.Marshal(w))

		var got BNPrime
		r := wire.NewReader(w.Bytes())
		require.NoError(t, got.Unmarshal(r))
		require.Equal(t, 0, r.Remaining())
		require.Equal(t, b.Value.String(), got.Value.String())
	}
}

func TestBNPrimeWordPadding(t *testing.T) {
	// A value whose minimal byte representation isn't a multiple of 4
	// bytes must still round-trip: Marshal pads to a whole word.
	b := BNPrime{Value: big.NewInt(0x0102030405)}
	w := wire.NewWriter(0)
	require.NoError(t, b.Marshal(w))

	var got BNPrime
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, b.Value, got.Value)
}

func TestPrivateExponentRoundTrip(t *testing.T) {
	mk := func(v int64) BNPrime { return BNPrime{Value: big.NewInt(v)} }
	p := PrivateExponent{Q: mk(11), DP: mk(22), DQ: mk(33), QInv: mk(44)}

	w := wire.NewWriter(0)
	require.NoError(t, p.Marshal(w))

	var got PrivateExponent
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, p.Q.Value, got.Q.Value)
	require.Equal(t, p.QInv.Value, got.QInv.Value)
}
