// Package backend defines the external collaborators the state codec
// calls into at its I/O edges (spec §1/§5/§6): the NVRAM subsystem, the
// platform TPM-established latch, and the wall clock used for time
// re-anchoring. The codec treats every one of these as an interface —
// it never owns the storage or the clock, only borrows them for the
// duration of one Marshal/Unmarshal call, per spec §5's "the codec is
// stateless across calls and owns none of them."
package backend

import "github.com/swtpm-project/statecodec/record"

// NVRAM is the blob-granularity backend behind PersistentAll and
// UserNVRAM's outer envelope (spec §6: nvram_load/nvram_store).
type NVRAM interface {
	Load(name string) ([]byte, error)
	Store(name string, data []byte) error
}

// NVWindow is the byte-granularity backend within the NV window (spec
// §6: nv_read/nv_write), used by callers outside the codec to apply the
// bulk contents an NV-Index's Unmarshal step yields.
type NVWindow interface {
	NvRead(offset, length uint32) ([]byte, error)
	NvWrite(offset uint32, data []byte) error
}

// Platform is the one-bit TPM-established latch (spec §6/GLOSSARY).
type Platform interface {
	TPMEstablishedGet() bool
	TPMEstablishedSet()
	TPMEstablishedReset()
}

// Clock supplies the wall-clock reading VolatileState uses for time
// re-anchoring on load (spec §4.4).
type Clock interface {
	WallClockNow() uint64
}

// PersistentStore is the external collaborator PERSISTENT_ALL reads its
// four dynamic-data roots from (marshal) and writes them back through
// (unmarshal), per spec §4.4: "Persistent-data and the three dynamic-
// data roots are read from the NVRAM backend into local structures,
// marshaled, and on unmarshal written back through the backend in the
// same order."
type PersistentStore interface {
	LoadPersistentData() (record.PersistentData, error)
	StorePersistentData(record.PersistentData) error
	LoadOrderlyData() (record.OrderlyData, error)
	StoreOrderlyData(record.OrderlyData) error
	LoadStateResetData() (record.StateResetData, error)
	StoreStateResetData(record.StateResetData) error
	LoadStateClearData() (record.StateClearData, error)
	StoreStateClearData(record.StateClearData) error
}

// IndexRAMEntry is one in-RAM NV-index record as streamed by
// INDEX_ORDERLY_RAM (spec §4.4).
type IndexRAMEntry struct {
	Handle     uint32
	Attributes uint32
	Data       []byte
}

// IndexRAM is the in-RAM orderly NV-index region INDEX_ORDERLY_RAM
// walks. Entries also returns the byte size the writer's build observed
// for the whole region (spec §4.4's 32-bit source-side byte size,
// carried so a reader on a different header layout can re-derive
// per-entry framing); Capacity is the reader's local region size, used
// to bail with SIZE on overflow.
type IndexRAM interface {
	Entries() ([]IndexRAMEntry, uint32, error) // entries, source-side byte size
	Reset() error
	Put(IndexRAMEntry) error
	Capacity() uint32
}

// DynamicNV is the backing store USER_NVRAM walks: NV-Index and
// persistent-object entries keyed by TPM handle (spec §4.4).
type DynamicNV interface {
	// Handles returns every defined handle in ascending order, so the
	// emitted stream is deterministic.
	Handles() ([]uint32, error)
	IsNVIndex(handle uint32) (bool, error)
	LoadNVIndex(handle uint32) (record.NVIndex, []byte, error)
	LoadPersistentObject(handle uint32) (record.AnyObject, error)
	StoreNVIndex(handle uint32, idx record.NVIndex, data []byte) error
	StorePersistentObject(handle uint32, obj record.AnyObject) error
	// DynamicCapacity is NV_USER_DYNAMIC, the byte budget the stream's
	// entries must fit within (spec §4.4/§8 invariant 7).
	DynamicCapacity() uint32
	// MaxCount is the 64-bit trailer the stream ends with.
	MaxCount() uint64
	SetMaxCount(uint64) error
}
