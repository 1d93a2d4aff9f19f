package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/record"
)

func TestMemoryNVRAMBlobRoundTrip(t *testing.T) {
	m := NewMemoryNVRAM(1024, 256)
	require.NoError(t, m.Store("persistent-all", []byte{1, 2, 3}))
	got, err := m.Load("persistent-all")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	_, err = m.Load("missing")
	require.Error(t, err)
}

func TestMemoryNVRAMDynamicOrdering(t *testing.T) {
	m := NewMemoryNVRAM(1<<20, 1<<20)
	require.NoError(t, m.StoreNVIndex(0x01000003, record.NVIndex{PublicArea: []byte{1}}, nil))
	require.NoError(t, m.StoreNVIndex(0x01000001, record.NVIndex{PublicArea: []byte{2}}, nil))
	require.NoError(t, m.StorePersistentObject(0x81000002, record.AnyObject{}))

	handles, err := m.Handles()
	require.NoError(t, err)
	require.Equal(t, []uint32{0x01000001, 0x01000003, 0x81000002}, handles)

	isIdx, err := m.IsNVIndex(0x01000001)
	require.NoError(t, err)
	require.True(t, isIdx)

	isIdx, err = m.IsNVIndex(0x81000002)
	require.NoError(t, err)
	require.False(t, isIdx)
}

func TestMemoryNVRAMDynamicOverflow(t *testing.T) {
	m := NewMemoryNVRAM(4, 256)
	err := m.StoreNVIndex(1, record.NVIndex{PublicArea: []byte{1, 2, 3, 4, 5}}, nil)
	require.Error(t, err)
}

func TestMemoryNVRAMIndexRAMOverflow(t *testing.T) {
	m := NewMemoryNVRAM(1024, 10)
	err := m.Put(IndexRAMEntry{Handle: 1, Data: make([]byte, 20)})
	require.Error(t, err)
}

func TestMemoryNVRAMPlatformLatch(t *testing.T) {
	m := NewMemoryNVRAM(1024, 256)
	require.False(t, m.TPMEstablishedGet())
	m.TPMEstablishedSet()
	require.True(t, m.TPMEstablishedGet())
	m.TPMEstablishedReset()
	require.False(t, m.TPMEstablishedGet())
}
