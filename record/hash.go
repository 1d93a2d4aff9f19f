package record

import (
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	anyHashStateMagic uint32 = 0x349d494b
	anyHashStateVer   uint16 = 1
	hashStateMagic    uint32 = 0x562878a2
	hashStateVer      uint16 = 1
)

// hashBlockSize returns the algorithm's compression-function block
// size, needed to size the SHA1/SHA256 state (shorter block) versus
// the SHA384/SHA512 state (longer block, shared per
// tpmHashStateSHA512_Marshal covering both).
func hashBlockSize(alg AlgID) int {
	switch alg {
	case AlgSHA1, AlgSHA256:
		return 64
	case AlgSHA384, AlgSHA512:
		return 128
	default:
		return 0
	}
}

// AnyHashState is the algorithm-dispatched hash compression state
// (spec §4.3, magic 0x349d494b), grounded on
// ANY_HASH_STATE_Marshal/_Unmarshal: a fixed-size intermediate-hash
// buffer plus (num, md_len) counters, sized by the caller's hashAlg —
// never self-describing, so the dispatch key always comes from the
// enclosing HashState.
type AnyHashState struct {
	Intermediate []byte
	Num          uint32
	MDLen        uint32
}

func (a AnyHashState) Marshal(w *wire.Writer, alg AlgID) error {
	if err := frame.WriteHeader(w, anyHashStateVer, anyHashStateMagic); err != nil {
		return err
	}
	size := hashBlockSize(alg)
	if size == 0 {
		return nil
	}
	if err := w.WriteU16(uint16(size)); err != nil {
		return err
	}
	if err := w.WriteRaw(a.Intermediate); err != nil {
		return err
	}
	if err := w.WriteU32(a.Num); err != nil {
		return err
	}
	return w.WriteU32(a.MDLen)
}

func (a *AnyHashState) Unmarshal(r *wire.Reader, alg AlgID) error {
	if _, err := frame.ReadHeader(r, anyHashStateMagic, anyHashStateVer, "ANY_HASH_STATE"); err != nil {
		return err
	}
	size := hashBlockSize(alg)
	if size == 0 {
		return nil
	}
	arraySize, err := r.ReadU16()
	if err != nil {
		return err
	}
	if int(arraySize) != size {
		return errs.New(errs.Size, "ANY_HASH_STATE: bad array size for algid 0x%04x; expected %d, got %d", alg, size, arraySize)
	}
	if a.Intermediate, err = r.ReadRaw(int(arraySize)); err != nil {
		return err
	}
	if a.Num, err = r.ReadU32(); err != nil {
		return err
	}
	if a.MDLen, err = r.ReadU32(); err != nil {
		return err
	}
	return nil
}

// HashState wraps an AnyHashState with the algorithm tag that dispatches
// it (spec §4.3, magic 0x562878a2), grounded on HASH_STATE_Marshal. The
// "hash function definition" pointer the original carries alongside
// (CryptGetHashDef) is a runtime capability lookup, not wire data, and
// is not part of this type.
type HashState struct {
	Type    uint16
	HashAlg AlgID
	State   AnyHashState
}

func (h HashState) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, hashStateVer, hashStateMagic); err != nil {
		return err
	}
	if err := w.WriteU16(h.Type); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(h.HashAlg)); err != nil {
		return err
	}
	return h.State.Marshal(w, h.HashAlg)
}

func (h *HashState) Unmarshal(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, hashStateMagic, hashStateVer, "HASH_STATE"); err != nil {
		return err
	}
	var err error
	if h.Type, err = r.ReadU16(); err != nil {
		return err
	}
	alg, err := r.ReadU16()
	if err != nil {
		return err
	}
	h.HashAlg = AlgID(alg)
	if bankSize(h.HashAlg) == 0 && hashBlockSize(h.HashAlg) == 0 {
		return errs.New(errs.BadParameter, "HASH_STATE: unsupported hashAlg 0x%04x", alg)
	}
	return h.State.Unmarshal(r, h.HashAlg)
}

// HMACState is a HashState plus the HMAC key (spec §4.3), grounded on
// HMAC_STATE_Marshal. The key is written as a length-prefixed array
// exactly as given; Marshal does not pad it to the block size.
type HMACState struct {
	HashState HashState
	HMACKey   []byte
}

func (h HMACState) Marshal(w *wire.Writer) error {
	if err := h.HashState.Marshal(w); err != nil {
		return err
	}
	return w.WriteArray(h.HMACKey)
}

func (h *HMACState) Unmarshal(r *wire.Reader) error {
	if err := h.HashState.Unmarshal(r); err != nil {
		return err
	}
	var err error
	h.HMACKey, err = r.ReadArray()
	return err
}

// HashObject is a hash- or HMAC-sequence object (spec §4.3, magic
// 0xb874fe38), grounded on HASH_OBJECT_Marshal/_Unmarshal: the
// attributes bitfield's hashSeq/hmacSeq flags decide which of
// HashStates/HMACState follows, mirroring ObjectAttributes below for
// plain objects.
type HashObject struct {
	Type             uint16
	NameAlg          AlgID
	ObjectAttributes uint32
	Auth             []byte
	HashSeq          bool
	HMACSeq          bool
	HashStates       []HashState // one per enabled hash algorithm, when HashSeq
	HMACState        HMACState  // when HMACSeq
}

const hashObjectMagic uint32 = 0xb874fe38
const hashObjectVer uint16 = 1

func (h HashObject) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, hashObjectVer, hashObjectMagic); err != nil {
		return err
	}
	if err := w.WriteU16(h.Type); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(h.NameAlg)); err != nil {
		return err
	}
	if err := w.WriteU32(h.ObjectAttributes); err != nil {
		return err
	}
	if err := w.WriteArray(h.Auth); err != nil {
		return err
	}
	switch {
	case h.HashSeq:
		if err := w.WriteU16(uint16(len(h.HashStates))); err != nil {
			return err
		}
		for _, hs := range h.HashStates {
			if err := hs.Marshal(w); err != nil {
				return err
			}
		}
	case h.HMACSeq:
		if err := h.HMACState.Marshal(w); err != nil {
			return err
		}
	}
	return nil
}

func (h *HashObject) Unmarshal(r *wire.Reader, numHashAlgs int) error {
	if _, err := frame.ReadHeader(r, hashObjectMagic, hashObjectVer, "HASH_OBJECT"); err != nil {
		return err
	}
	var err error
	if h.Type, err = r.ReadU16(); err != nil {
		return err
	}
	nameAlg, err := r.ReadU16()
	if err != nil {
		return err
	}
	h.NameAlg = AlgID(nameAlg)
	if h.ObjectAttributes, err = r.ReadU32(); err != nil {
		return err
	}
	if h.Auth, err = r.ReadArray(); err != nil {
		return err
	}
	switch {
	case h.HashSeq:
		n, err := r.ReadU16()
		if err != nil {
			return err
		}
		if int(n) != numHashAlgs {
			return errs.New(errs.Size, "HASH_OBJECT: bad array size for state.hashState; expected %d, got %d", numHashAlgs, n)
		}
		h.HashStates = make([]HashState, n)
		for i := range h.HashStates {
			if err := h.HashStates[i].Unmarshal(r); err != nil {
				return err
			}
		}
	case h.HMACSeq:
		if err := h.HMACState.Unmarshal(r); err != nil {
			return err
		}
	}
	return nil
}
