package blob

import (
	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

// MarshalIndexOrderlyRAM streams the in-RAM NV-index region (spec
// §4.4, magic 0x5346feab): header, the writer's source-side byte size
// for the whole region, then each entry as size/handle/attributes/
// datasize/data, terminated by a zero size field.
func MarshalIndexOrderlyRAM(w *wire.Writer, ram backend.IndexRAM) error {
	if err := frame.WriteHeader(w, IndexOrderlyRAMVersion, IndexOrderlyRAMMagic); err != nil {
		return err
	}
	entries, sourceSize, err := ram.Entries()
	if err != nil {
		return err
	}
	if err := w.WriteU32(sourceSize); err != nil {
		return err
	}
	for _, e := range entries {
		size := uint32(4+4+2) + uint32(len(e.Data)) // handle + attributes + datasize + data
		if err := w.WriteU32(size); err != nil {
			return err
		}
		if err := w.WriteU32(e.Handle); err != nil {
			return err
		}
		if err := w.WriteU32(e.Attributes); err != nil {
			return err
		}
		if err := w.WriteArray(e.Data); err != nil {
			return err
		}
	}
	return w.WriteU32(0)
}

// UnmarshalIndexOrderlyRAM reads an INDEX_ORDERLY_RAM stream and
// reconstructs the region entry-by-entry through ram, back-filling each
// entry's size field to the local (reader) header-size-plus-datasize
// layout rather than trusting the writer's source-side size, since
// NVMarshal.c's header struct size can legitimately differ across
// builds (spec §4.4). Overflow against ram.Capacity() fails SIZE.
func UnmarshalIndexOrderlyRAM(r *wire.Reader, ram backend.IndexRAM) error {
	if _, err := frame.ReadHeader(r, IndexOrderlyRAMMagic, IndexOrderlyRAMVersion, "INDEX_ORDERLY_RAM"); err != nil {
		return err
	}
	if _, err := r.ReadU32(); err != nil { // source-side byte size; informational only on read
		return err
	}
	if err := ram.Reset(); err != nil {
		return err
	}
	var used uint32
	for {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		if size == 0 {
			return nil
		}
		handle, err := r.ReadU32()
		if err != nil {
			return err
		}
		attrs, err := r.ReadU32()
		if err != nil {
			return err
		}
		data, err := r.ReadArray()
		if err != nil {
			return err
		}
		entry := backend.IndexRAMEntry{Handle: handle, Attributes: attrs, Data: data}
		entrySize := uint32(4+4+2) + uint32(len(data))
		if used+entrySize > ram.Capacity() {
			return errs.New(errs.Size, "INDEX_ORDERLY_RAM: overflow; capacity %d, used %d, entry %d", ram.Capacity(), used, entrySize)
		}
		used += entrySize
		if err := ram.Put(entry); err != nil {
			return err
		}
	}
}
