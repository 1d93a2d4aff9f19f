// Package config carries, as runtime values, what NVMarshal.c expressed
// as C preprocessor guards: which optional algorithms and features a
// particular build of the TPM emulator was compiled with. Every
// skip-block call site in package record and package blob takes an
// Options value and decides has_block/needs_block from it, instead of a
// build tag — per spec §9, this lets tests exercise both sides of every
// gate without separate builds.
package config

// Options is the compile-time-constants witness for one instance of the
// codec. A PersistentAll blob written with one Options and read with
// another that disagrees on an EQ-compared constant fails closed (spec
// §8 invariant 6).
type Options struct {
	// Algorithm availability. Gates which PCR banks and hash-state kinds
	// this build emits (write side) or accepts (read side).
	SHA1, SHA256, SHA384, SHA512, SM3256 bool
	RSA                                  bool
	ECC                                  bool

	// Feature gates, each corresponding to one #ifdef-guarded option in
	// the original. UseDAUsed and CommandAuditDigest are carried here but
	// no record or blob in this module reads them.
	AccumulateSelfHealTimer bool
	UseDAUsed               bool
	ClockStops              bool // session/persistent-data epoch clocksize: 8 if true, else 4
	SessionProcess          bool // gates the volatile-state session table
	CommandAuditDigest      bool
	NVCache                 bool // gates the volatile-state NV cache section

	// Additional volatile-state skip-block gates (spec §4.4's "compile-
	// gated sections"), each independently toggleable since config.Options
	// makes every one of these a runtime decision rather than a build.
	ObjectTable     bool // gates the loaded-object table
	PCRBankTable    bool // gates the live PCR bank values
	SessionSlotTable bool // gates the occupied-gated session-slot table
	FailureMode     bool // gates the function/line/code failure-mode triplet
	SoftwareClock   bool // gates the realTimePrevious/tpmTime software clock pair
	TimerAdjust     bool // gates the timer-adjust accumulator

	// Fixed-cardinality sizes. Those listed in Manifest are checked
	// against the writer's values with the comparator given there (EQ for
	// all but PCR_SELECT_MIN, which is LE); NVUserDynamicSize is not in
	// the manifest.
	NumStaticPCR             int
	PCRSelectMax             int
	PCRSelectMin             int
	PrimarySeedSize          int
	ProofSize                int
	ContextSlotSize          int
	ContextIntegrityHashSize int
	MaxLoadedSessions        int
	MaxLoadedObjects         int
	MaxActiveSessions        int
	MaxSessionNum            int
	MaxHandleNum             int
	MinEvictObjects          int
	NumPolicyPCRGroup        int
	NumAuthValuePCRGroup     int
	MaxContextSize           int
	RAMIndexSpace            int
	NVUserDynamicSize        int

	// PPListSize and AuditCommandsSize are the local fixed capacities
	// PersistentData's ppList and auditCommands min-copy fields are
	// unmarshaled into (spec §3/§8's documented size-mismatch
	// exception). Callers that build a PersistentData to Unmarshal into
	// must pre-allocate those two slices to these lengths.
	PPListSize        int
	AuditCommandsSize int
}

// Default returns the Options a freshly built reference emulator ships
// with: every algorithm enabled except SM3-256, every feature gate on
// except ClockStops (so EpochSize is 4), sizes matching
// the values named in NVMarshal.c's pa_compile_constants table.
func Default() Options {
	return Options{
		SHA1: true, SHA256: true, SHA384: true, SHA512: true, SM3256: false,
		RSA: true, ECC: true,

		AccumulateSelfHealTimer: true,
		UseDAUsed:               true,
		ClockStops:              false,
		SessionProcess:          true,
		CommandAuditDigest:      true,
		NVCache:                 true,

		ObjectTable:      true,
		PCRBankTable:     true,
		SessionSlotTable: true,
		FailureMode:      true,
		SoftwareClock:    true,
		TimerAdjust:      true,

		NumStaticPCR:             24,
		PCRSelectMax:             3,
		PCRSelectMin:             3,
		PrimarySeedSize:          32,
		ProofSize:                32,
		ContextSlotSize:          2,
		ContextIntegrityHashSize: 32,
		MaxLoadedSessions:        3,
		MaxLoadedObjects:         3,
		MaxActiveSessions:        64,
		MaxSessionNum:            3,
		MaxHandleNum:             3,
		MinEvictObjects:          2,
		NumPolicyPCRGroup:        1,
		NumAuthValuePCRGroup:     1,
		MaxContextSize:           2680,
		RAMIndexSpace:            512,
		NVUserDynamicSize:        16384,

		PPListSize:        1,
		AuditCommandsSize: 32,
	}
}

// EpochSize returns the on-the-wire byte width of the clock-size
// discriminator field: 8 when ClockStops is set, 4 otherwise (spec
// §4.3 Session / Scenario F).
func (o Options) EpochSize() uint8 {
	if o.ClockStops {
		return 8
	}
	return 4
}
