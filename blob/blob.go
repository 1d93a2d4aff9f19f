// Package blob implements the four top-level envelopes of the state
// codec (spec §4.4): PersistentAll, VolatileState, IndexOrderlyRAM, and
// UserNVRAM. Each is a framed record (package frame) wrapping a fixed
// sequence of package record composites, with the external NVRAM
// collaborators (package backend) wired in only at these entry points,
// per spec §5: "all I/O against the NVRAM backend is synchronous and
// performed only at the edges (inside PERSISTENT_ALL and USER_NVRAM)."
package blob

const (
	PersistentAllMagic   uint32 = 0xab364723
	PersistentAllVersion uint16 = 1

	VolatileStateMagic   uint32 = 0x45637889
	VolatileStateVersion uint16 = 1

	// IndexOrderlyRAMMagic and UserNVRAMMagic are not named in spec.md's
	// own text (only PERSISTENT_ALL_MAGIC, VOLATILE_STATE_MAGIC and
	// NV_INDEX_MAGIC are given explicitly there); these two are pinned
	// by grepping NVMarshal.c in original_source/, per SPEC_FULL.md §4.
	IndexOrderlyRAMMagic   uint32 = 0x5346feab
	IndexOrderlyRAMVersion uint16 = 1

	UserNVRAMMagic   uint32 = 0x094f22c3
	UserNVRAMVersion uint16 = 1
)
