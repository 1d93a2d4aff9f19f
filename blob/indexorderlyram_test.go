package blob

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/wire"
)

func TestIndexOrderlyRAMRoundTrip(t *testing.T) {
	src := backend.NewMemoryNVRAM(1, 4096)
	require.NoError(t, src.Put(backend.IndexRAMEntry{Handle: 0x01800001, Attributes: 1, Data: []byte{1, 2, 3}}))
	require.NoError(t, src.Put(backend.IndexRAMEntry{Handle: 0x01800002, Attributes: 2, Data: nil}))

	w := wire.NewWriter(0)
	require.NoError(t, MarshalIndexOrderlyRAM(w, src))

	dst := backend.NewMemoryNVRAM(1, 4096)
	r := wire.NewReader(w.Bytes())
	require.NoError(t, UnmarshalIndexOrderlyRAM(r, dst))
	require.Equal(t, 0, r.Remaining())

	entries, _, err := dst.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint32(0x01800001), entries[0].Handle)
	require.Equal(t, []byte{1, 2, 3}, entries[0].Data)
	require.Equal(t, uint32(0x01800002), entries[1].Handle)
}

func TestIndexOrderlyRAMUnmarshalOverflowFailsClosed(t *testing.T) {
	src := backend.NewMemoryNVRAM(1, 4096)
	require.NoError(t, src.Put(backend.IndexRAMEntry{Handle: 1, Data: make([]byte, 100)}))

	w := wire.NewWriter(0)
	require.NoError(t, MarshalIndexOrderlyRAM(w, src))

	tiny := backend.NewMemoryNVRAM(1, 8) // too small to hold the entry read back
	r := wire.NewReader(w.Bytes())
	err := UnmarshalIndexOrderlyRAM(r, tiny)
	require.Error(t, err)
}

func TestIndexOrderlyRAMResetClearsPriorEntries(t *testing.T) {
	dst := backend.NewMemoryNVRAM(1, 4096)
	require.NoError(t, dst.Put(backend.IndexRAMEntry{Handle: 9, Data: []byte{1}}))

	empty := backend.NewMemoryNVRAM(1, 4096)
	w := wire.NewWriter(0)
	require.NoError(t, MarshalIndexOrderlyRAM(w, empty))

	r := wire.NewReader(w.Bytes())
	require.NoError(t, UnmarshalIndexOrderlyRAM(r, dst))

	entries, _, err := dst.Entries()
	require.NoError(t, err)
	require.Empty(t, entries)
}
