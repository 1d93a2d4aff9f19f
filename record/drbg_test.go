package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/wire"
)

func TestDRBGStateRoundTrip(t *testing.T) {
	var d DRBGState
	d.ReseedCounter = 99
	d.Magic = 0xabcdabcd
	for i := range d.Seed {
		d.Seed[i] = byte(i)
	}
	d.LastValue = [4]uint32{1, 2, 3, 4}

	w := wire.NewWriter(0)
	require.NoError(t, d.Marshal(w))

	var got DRBGState
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, d, got)
}

func TestDRBGStateBadSeedSizeFailsClosed(t *testing.T) {
	var d DRBGState
	w := wire.NewWriter(0)
	require.NoError(t, d.Marshal(w))

	raw := w.Bytes()
	// The seed-array-size field sits right after the 6-byte header, the
	// 8-byte reseed counter, and the 4-byte magic.
	sizeOffset := 6 + 8 + 4
	corrupted := make([]byte, len(raw))
	copy(corrupted, raw)
	corrupted[sizeOffset] = 0xff
	corrupted[sizeOffset+1] = 0xff

	var got DRBGState
	r := wire.NewReader(corrupted)
	err := got.Unmarshal(r)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Size))
}
