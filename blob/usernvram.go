package blob

import (
	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/record"
	"github.com/swtpm-project/statecodec/wire"
)

// TPM handle-type bytes (top byte of a TPM_HANDLE), the dispatch key
// USER_NVRAM uses to decide between an NV-Index entry and a
// persistent-object entry (spec §4.4).
const (
	handleTypeNVIndex   byte = 0x01
	handleTypePersistent byte = 0x81
)

func handleType(h uint32) byte { return byte(h >> 24) }

// MarshalUserNVRAM streams the dynamic NV region by walking dyn in
// ascending handle order (spec §4.4, magic 0x094f22c3): each entry is
// introduced by its total byte size (0 = end) and a handle, then
// dispatched by handle type; the stream ends with a 64-bit maxCount
// trailer.
func MarshalUserNVRAM(w *wire.Writer, cfg config.Options, dyn backend.DynamicNV) error {
	if err := frame.WriteHeader(w, UserNVRAMVersion, UserNVRAMMagic); err != nil {
		return err
	}
	handles, err := dyn.Handles()
	if err != nil {
		return err
	}
	for _, h := range handles {
		body := wire.NewWriter(64)
		if err := body.WriteU32(h); err != nil {
			return err
		}
		isIndex, err := dyn.IsNVIndex(h)
		if err != nil {
			return err
		}
		if isIndex {
			idx, data, err := dyn.LoadNVIndex(h)
			if err != nil {
				return err
			}
			if err := idx.Marshal(body); err != nil {
				return err
			}
			if err := body.WriteU32(uint32(len(data))); err != nil {
				return err
			}
			if err := body.WriteRaw(data); err != nil {
				return err
			}
		} else {
			obj, err := dyn.LoadPersistentObject(h)
			if err != nil {
				return err
			}
			if err := body.WriteU32(h); err != nil { // repeated for cross-check, spec §4.4
				return err
			}
			if err := obj.Marshal(body, cfg); err != nil {
				return err
			}
		}
		if err := w.WriteU32(uint32(body.Len())); err != nil {
			return err
		}
		if err := w.WriteRaw(body.Bytes()); err != nil {
			return err
		}
	}
	if err := w.WriteU32(0); err != nil {
		return err
	}
	return w.WriteU64(dyn.MaxCount())
}

// UnmarshalUserNVRAM reads a USER_NVRAM stream and writes entries
// directly back through dyn as it parses, tracking a running offset
// that must not overflow dyn.DynamicCapacity() (spec §4.4/§8 invariant
// 7): overflow fails SIZE with both the offending entry size and the
// local capacity named, before any bytes of that entry are stored.
func UnmarshalUserNVRAM(r *wire.Reader, cfg config.Options, dyn backend.DynamicNV) error {
	if _, err := frame.ReadHeader(r, UserNVRAMMagic, UserNVRAMVersion, "USER_NVRAM"); err != nil {
		return err
	}
	capacity := dyn.DynamicCapacity()
	var offset uint32
	numHashAlg := len(record.EnabledBanks(cfg))
	for {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		if size == 0 {
			break
		}
		if offset+size > capacity {
			return errs.New(errs.Size, "USER_NVRAM: dynamic region overflow; capacity %d, used %d, entry %d", capacity, offset, size)
		}
		offset += size

		handle, err := r.ReadU32()
		if err != nil {
			return err
		}
		switch handleType(handle) {
		case handleTypeNVIndex:
			var idx record.NVIndex
			if err := idx.Unmarshal(r); err != nil {
				return err
			}
			datasize, err := r.ReadU32()
			if err != nil {
				return err
			}
			data, err := r.ReadRaw(int(datasize))
			if err != nil {
				return err
			}
			if err := dyn.StoreNVIndex(handle, idx, data); err != nil {
				return err
			}
		case handleTypePersistent:
			cross, err := r.ReadU32()
			if err != nil {
				return err
			}
			if cross != handle {
				return errs.New(errs.BadParameter, "USER_NVRAM: persistent-object handle cross-check mismatch; header 0x%08x, body 0x%08x", handle, cross)
			}
			var obj record.AnyObject
			obj.NumHashAlg = numHashAlg
			if err := obj.Unmarshal(r, cfg); err != nil {
				return err
			}
			if err := dyn.StorePersistentObject(handle, obj); err != nil {
				return err
			}
		default:
			return errs.New(errs.Handle, "USER_NVRAM: handle 0x%08x has unrecognized type byte 0x%02x", handle, handleType(handle))
		}
	}
	maxCount, err := r.ReadU64()
	if err != nil {
		return err
	}
	return dyn.SetMaxCount(maxCount)
}
