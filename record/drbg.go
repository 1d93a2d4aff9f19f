package record

import (
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	drbgMagic   uint32 = 0x6fe83ea1
	drbgVersion uint16 = 1

	seedSize       = 55 // 440-bit DRBG seed
	lastValueCount = 4  // DRBG_STATE.lastValue[4], one word per entropy source
)

// DRBGState is the deterministic random bit generator's persisted
// state (spec §4.3, magic 0x6fe83ea1), grounded on
// DRBG_STATE_Marshal/_Unmarshal. Two array-size fields are written
// ahead of their payloads even though both arrays are fixed-cardinality
// in this implementation, matching the original's defensive
// Unmarshal-side size check.
type DRBGState struct {
	ReseedCounter uint64
	Magic         uint32
	Seed          [seedSize]byte
	LastValue     [lastValueCount]uint32
}

func (d DRBGState) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, drbgVersion, drbgMagic); err != nil {
		return err
	}
	if err := w.WriteU64(d.ReseedCounter); err != nil {
		return err
	}
	if err := w.WriteU32(d.Magic); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(seedSize)); err != nil {
		return err
	}
	if err := w.WriteRaw(d.Seed[:]); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(lastValueCount)); err != nil {
		return err
	}
	for _, v := range d.LastValue {
		if err := w.WriteU32(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *DRBGState) Unmarshal(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, drbgMagic, drbgVersion, "DRBG_STATE"); err != nil {
		return err
	}
	var err error
	if d.ReseedCounter, err = r.ReadU64(); err != nil {
		return err
	}
	if d.Magic, err = r.ReadU32(); err != nil {
		return err
	}
	seedLen, err := r.ReadU16()
	if err != nil {
		return err
	}
	if int(seedLen) != seedSize {
		return errs.New(errs.Size, "DRBG_STATE: non-matching seed array size; expected %d, got %d", seedSize, seedLen)
	}
	seed, err := r.ReadRaw(int(seedLen))
	if err != nil {
		return err
	}
	copy(d.Seed[:], seed)

	lvLen, err := r.ReadU16()
	if err != nil {
		return err
	}
	if int(lvLen) != lastValueCount {
		return errs.New(errs.Size, "DRBG_STATE: non-matching lastValue array size; expected %d, got %d", lastValueCount, lvLen)
	}
	for i := 0; i < lastValueCount; i++ {
		if d.LastValue[i], err = r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}
