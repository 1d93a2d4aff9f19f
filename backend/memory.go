package backend

import (
	"sync"

	"github.com/biogo/store/llrb"

	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/record"
)

// handleKey orders dynamicEntry values by TPM handle in an llrb.Tree,
// the same Comparable-by-embedded-key shape the teacher uses for its
// shard index (encoding/bampair/shard_info.go's key.Compare). Ordering
// by handle gives UserNVRAM a deterministic ascending stream, which the
// round-trip tests in package blob depend on.
type handleKey uint32

func (k handleKey) Compare(c llrb.Comparable) int {
	o := c.(handleKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

type dynamicEntry struct {
	handle  handleKey
	isIndex bool
	nvIndex record.NVIndex
	data    []byte
	object  record.AnyObject
}

// entryKey is the llrb.Comparable wrapper stored in the tree; it
// compares only on handle, so Get/Insert with a bare handleKey-carrying
// entryKey locates the full entry.
type entryKey struct {
	handle handleKey
	entry  *dynamicEntry
}

func (e entryKey) Compare(c llrb.Comparable) int {
	return e.handle.Compare(c.(entryKey).handle)
}

// MemoryNVRAM is the in-process reference NVRAM backend: blob-
// granularity storage in a map, and the dynamic NV region kept in an
// llrb.Tree ordered by handle (grounded on
// github.com/biogo/store/llrb as used by the teacher's
// encoding/bampair/shard_info.go and cmd/bio-bam-sort/sorter). It
// implements NVRAM, Platform, Clock, IndexRAM and DynamicNV, and is the
// backend package/tool's default for tests and the CLI's local mode.
type MemoryNVRAM struct {
	mu sync.Mutex

	blobs map[string][]byte

	dynamic     llrb.Tree
	dynamicCap  uint32
	dynamicUsed uint32
	maxCount    uint64

	indexEntries []IndexRAMEntry
	indexCap     uint32

	established bool
	now         uint64 // injected wall-clock reading; advance with Advance

	persistentData  record.PersistentData
	orderlyData     record.OrderlyData
	stateResetData  record.StateResetData
	stateClearData  record.StateClearData
}

// NewMemoryNVRAM returns an empty backend with the given dynamic-region
// and index-RAM capacities (spec §4.4's NV_USER_DYNAMIC and
// RAM_INDEX_SPACE).
func NewMemoryNVRAM(dynamicCap, indexCap uint32) *MemoryNVRAM {
	return &MemoryNVRAM{
		blobs:      make(map[string][]byte),
		dynamicCap: dynamicCap,
		indexCap:   indexCap,
	}
}

// Advance moves the injected wall clock forward by delta, letting tests
// exercise VolatileState's time-reanchoring arithmetic deterministically
// (spec §4.4) without calling the unavailable wall-clock primitives.
func (m *MemoryNVRAM) Advance(delta uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += delta
}

// --- NVRAM (blob granularity) ---

func (m *MemoryNVRAM) Load(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[name]
	if !ok {
		return nil, errs.New(errs.BadParameter, "backend: no blob named %q", name)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryNVRAM) Store(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[name] = cp
	return nil
}

// --- Platform ---

func (m *MemoryNVRAM) TPMEstablishedGet() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.established
}

func (m *MemoryNVRAM) TPMEstablishedSet() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.established = true
}

func (m *MemoryNVRAM) TPMEstablishedReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.established = false
}

// --- Clock ---

func (m *MemoryNVRAM) WallClockNow() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// --- IndexRAM ---

func (m *MemoryNVRAM) Entries() ([]IndexRAMEntry, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]IndexRAMEntry, len(m.indexEntries))
	copy(out, m.indexEntries)
	var size uint32
	for _, e := range out {
		size += 4 + 4 + 4 + 2 + uint32(len(e.Data)) // size + handle + attributes + datasize + data
	}
	return out, size, nil
}

func (m *MemoryNVRAM) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexEntries = nil
	return nil
}

func (m *MemoryNVRAM) Put(e IndexRAMEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var used uint32
	for _, ex := range m.indexEntries {
		used += 4 + 4 + 4 + 2 + uint32(len(ex.Data))
	}
	entrySize := 4 + 4 + 4 + 2 + uint32(len(e.Data))
	if used+entrySize > m.indexCap {
		return errs.New(errs.Size, "backend: index-orderly-RAM overflow; capacity %d, needed %d", m.indexCap, used+entrySize)
	}
	m.indexEntries = append(m.indexEntries, e)
	return nil
}

func (m *MemoryNVRAM) Capacity() uint32 {
	return m.indexCap
}

// --- DynamicNV ---

func (m *MemoryNVRAM) Handles() ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint32
	m.dynamic.Do(func(c llrb.Comparable) (done bool) {
		out = append(out, uint32(c.(entryKey).handle))
		return false
	})
	return out, nil
}

func (m *MemoryNVRAM) get(handle uint32) (*dynamicEntry, bool) {
	v := m.dynamic.Get(entryKey{handle: handleKey(handle)})
	if v == nil {
		return nil, false
	}
	return v.(entryKey).entry, true
}

func (m *MemoryNVRAM) IsNVIndex(handle uint32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(handle)
	if !ok {
		return false, errs.New(errs.Handle, "backend: unknown handle 0x%08x", handle)
	}
	return e.isIndex, nil
}

func (m *MemoryNVRAM) LoadNVIndex(handle uint32) (record.NVIndex, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(handle)
	if !ok || !e.isIndex {
		return record.NVIndex{}, nil, errs.New(errs.Handle, "backend: 0x%08x is not an NV index", handle)
	}
	return e.nvIndex, e.data, nil
}

func (m *MemoryNVRAM) LoadPersistentObject(handle uint32) (record.AnyObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.get(handle)
	if !ok || e.isIndex {
		return record.AnyObject{}, errs.New(errs.Handle, "backend: 0x%08x is not a persistent object", handle)
	}
	return e.object, nil
}

func (m *MemoryNVRAM) insert(handle uint32, used uint32, e *dynamicEntry) error {
	if m.dynamicUsed+used > m.dynamicCap {
		return errs.New(errs.Size, "backend: dynamic NV region overflow; capacity %d, used %d, adding %d", m.dynamicCap, m.dynamicUsed, used)
	}
	e.handle = handleKey(handle)
	m.dynamic.Insert(entryKey{handle: handleKey(handle), entry: e})
	m.dynamicUsed += used
	return nil
}

func (m *MemoryNVRAM) StoreNVIndex(handle uint32, idx record.NVIndex, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := uint32(len(idx.PublicArea) + len(idx.AuthValue) + len(data))
	return m.insert(handle, used, &dynamicEntry{isIndex: true, nvIndex: idx, data: data})
}

func (m *MemoryNVRAM) StorePersistentObject(handle uint32, obj record.AnyObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := uint32(len(obj.Plain.PublicArea) + len(obj.Plain.Sensitive))
	return m.insert(handle, used, &dynamicEntry{isIndex: false, object: obj})
}

// DynamicCapacity returns NV_USER_DYNAMIC, satisfying DynamicNV.
func (m *MemoryNVRAM) DynamicCapacity() uint32 { return m.dynamicCap }

func (m *MemoryNVRAM) MaxCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxCount
}

func (m *MemoryNVRAM) SetMaxCount(v uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxCount = v
	return nil
}

// --- PersistentStore ---
//
// The four dynamic-data roots PERSISTENT_ALL reads from and writes
// back through (spec §4.4); MemoryNVRAM keeps them as plain fields,
// the in-process equivalent of the NVRAM-backed globals the real
// emulator persists them in.

func (m *MemoryNVRAM) LoadPersistentData() (record.PersistentData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistentData, nil
}

func (m *MemoryNVRAM) StorePersistentData(pd record.PersistentData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistentData = pd
	return nil
}

func (m *MemoryNVRAM) LoadOrderlyData() (record.OrderlyData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderlyData, nil
}

func (m *MemoryNVRAM) StoreOrderlyData(od record.OrderlyData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderlyData = od
	return nil
}

func (m *MemoryNVRAM) LoadStateResetData() (record.StateResetData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateResetData, nil
}

func (m *MemoryNVRAM) StoreStateResetData(srd record.StateResetData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateResetData = srd
	return nil
}

func (m *MemoryNVRAM) LoadStateClearData() (record.StateClearData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateClearData, nil
}

func (m *MemoryNVRAM) StoreStateClearData(scd record.StateClearData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateClearData = scd
	return nil
}
