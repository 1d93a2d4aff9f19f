package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/wire"
)

func TestNVIndexRoundTrip(t *testing.T) {
	n := NVIndex{PublicArea: []byte{1, 2, 3}, AuthValue: []byte{4, 5}}
	w := wire.NewWriter(0)
	require.NoError(t, n.Marshal(w))

	var got NVIndex
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, n, got)
}

func TestNVIndexBadMagicFailsClosed(t *testing.T) {
	w := wire.NewWriter(0)
	require.NoError(t, w.WriteU16(nvIndexVersion))
	require.NoError(t, w.WriteU32(0xdeadbeef))

	var got NVIndex
	r := wire.NewReader(w.Bytes())
	require.Error(t, got.Unmarshal(r))
}
