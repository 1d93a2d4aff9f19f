package config

import (
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

// Comparator names how a manifest entry's stored value must relate to
// this build's value, mirroring NVMarshal.c's CompareOp enum.
type Comparator int

const (
	EQ Comparator = iota
	LE
	GE
	DontCare
)

func (c Comparator) String() string {
	switch c {
	case EQ:
		return "="
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "(any)"
	}
}

// Constant is one named, compared entry in the compile-constants
// manifest (spec §4.5).
type Constant struct {
	Name  string
	Value uint32
	Cmp   Comparator
}

// Manifest returns, in the fixed on-wire order, every compile-time
// constant the pa_compile_constants table in NVMarshal.c checks. The
// order is part of the wire format: readers recompute their own
// manifest and check it element-for-element against the written array,
// so the slice returned here must never be reordered across versions.
func (o Options) Manifest() []Constant {
	boolU32 := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}
	return []Constant{
		{"ALG_RSA", boolU32(o.RSA), EQ},
		{"ALG_SHA1", boolU32(o.SHA1), EQ},
		{"ALG_SHA256", boolU32(o.SHA256), EQ},
		{"ALG_SHA384", boolU32(o.SHA384), EQ},
		{"ALG_SHA512", boolU32(o.SHA512), EQ},
		{"ALG_SM3_256", boolU32(o.SM3256), EQ},
		{"ALG_ECC", boolU32(o.ECC), EQ},
		{"MAX_HANDLE_NUM", uint32(o.MaxHandleNum), EQ},
		{"MAX_ACTIVE_SESSIONS", uint32(o.MaxActiveSessions), EQ},
		{"MAX_LOADED_SESSIONS", uint32(o.MaxLoadedSessions), EQ},
		{"MAX_SESSION_NUM", uint32(o.MaxSessionNum), EQ},
		{"MAX_LOADED_OBJECTS", uint32(o.MaxLoadedObjects), EQ},
		{"MIN_EVICT_OBJECTS", uint32(o.MinEvictObjects), EQ},
		{"NUM_POLICY_PCR_GROUP", uint32(o.NumPolicyPCRGroup), EQ},
		{"NUM_AUTHVALUE_PCR_GROUP", uint32(o.NumAuthValuePCRGroup), EQ},
		{"MAX_CONTEXT_SIZE", uint32(o.MaxContextSize), EQ},
		{"NUM_STATIC_PCR", uint32(o.NumStaticPCR), EQ},
		{"PRIMARY_SEED_SIZE", uint32(o.PrimarySeedSize), EQ},
		{"RAM_INDEX_SPACE", uint32(o.RAMIndexSpace), EQ},
		{"PROOF_SIZE", uint32(o.ProofSize), EQ},
		{"PCR_SELECT_MAX", uint32(o.PCRSelectMax), EQ},
		{"PCR_SELECT_MIN", uint32(o.PCRSelectMin), LE},
		{"CONTEXT_SLOT_SIZE", uint32(o.ContextSlotSize), EQ},
		{"CONTEXT_INTEGRITY_HASH_SIZE", uint32(o.ContextIntegrityHashSize), EQ},
	}
}

const (
	compileConstantsMagic   uint32 = 0xc9ea6431
	compileConstantsVersion uint16 = 1
)

// MarshalCompileConstants writes the framed manifest: header, element
// count, then each constant's bare uint32 value in Manifest order
// (names and comparators are never written — the reader recomputes
// them from its own build and checks element-for-element, per
// PACompileConstants_Marshal).
func (o Options) MarshalCompileConstants(w *wire.Writer) error {
	if err := frame.WriteHeader(w, compileConstantsVersion, compileConstantsMagic); err != nil {
		return err
	}
	m := o.Manifest()
	if err := w.WriteU32(uint32(len(m))); err != nil {
		return err
	}
	for _, c := range m {
		if err := w.WriteU32(c.Value); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalCompileConstants reads a manifest written by
// MarshalCompileConstants and checks every entry against o's own
// Manifest(), in order, using each entry's Comparator. A mismatch on
// any EQ/LE/GE entry is BadParameter (spec §8 invariant 6); a DontCare
// entry is read and discarded. An element-count mismatch is also
// BadParameter, since a manifest that doesn't even have matching
// cardinality is an incomparable build.
func (o Options) UnmarshalCompileConstants(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, compileConstantsMagic, compileConstantsVersion, "COMPILE_CONSTANTS"); err != nil {
		return err
	}
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	want := o.Manifest()
	if int(count) != len(want) {
		return errs.New(errs.BadParameter, "COMPILE_CONSTANTS has non-matching element count; found %d, expected %d", count, len(want))
	}
	for _, c := range want {
		value, err := r.ReadU32()
		if err != nil {
			return err
		}
		var ok bool
		switch c.Cmp {
		case EQ:
			ok = value == c.Value
		case LE:
			ok = value <= c.Value
		case GE:
			ok = value >= c.Value
		case DontCare:
			ok = true
		}
		if !ok {
			return errs.New(errs.BadParameter, "unexpected value for %s: %d is not %s %d", c.Name, value, c.Cmp, c.Value)
		}
	}
	return nil
}
