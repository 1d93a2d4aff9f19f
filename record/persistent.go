package record

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	persistentDataMagic   uint32 = 0x12213443
	persistentDataVersion uint16 = 1
)

// minCopyArray reads a 16-bit-length-prefixed array whose on-wire size
// is allowed to differ from fixed, and copies at most min(len(wire),
// len(fixed)) bytes into fixed, leaving any remainder at its zero
// value. This is the one deliberately tolerated size mismatch in the
// whole codec (spec §3/§8): ppList and auditCommands are allowed to
// grow between releases, so a shrink or growth of the fixed-size
// backing array must not be treated as BadParameter/Size the way every
// other array mismatch in this package is.
func minCopyArray(r *wire.Reader, fixed []byte) error {
	wireBytes, err := r.ReadArray()
	if err != nil {
		return err
	}
	n := len(wireBytes)
	if len(fixed) < n {
		n = len(fixed)
	}
	copy(fixed, wireBytes[:n])
	return nil
}

// PersistentData is the root of PersistentAll's inner record (spec
// §4.3/§4.4, magic 0x12213443), grounded on
// PERSISTENT_DATA_Marshal/_Unmarshal. PCRPolicies is gated by
// config.Options.NumPolicyPCRGroup > 0's skip block; PPList and
// AuditCommands use minCopyArray (see its comment above); TimeEpoch uses the same clock-size discriminator as Session.
type PersistentData struct {
	DisableClear       bool
	OwnerAlg           uint16
	EndorsementAlg     uint16
	LockoutAlg         uint16
	OwnerPolicy        []byte
	EndorsementPolicy  []byte
	LockoutPolicy      []byte
	OwnerAuth          []byte
	EndorsementAuth    []byte
	LockoutAuth        []byte
	EPSeed             []byte
	SPSeed             []byte
	PPSeed             []byte
	PHProof            []byte
	SHProof            []byte
	EHProof            []byte
	TotalResetCount    uint64
	ResetCount         uint32
	PCRPolicies        PCRPolicy
	PCRAllocated       []byte
	PPList             []byte // fixed-size backing array; see minCopyArray
	FailedTries        uint32
	MaxTries           uint32
	RecoveryTime       uint32
	LockoutRecovery    uint32
	LockOutAuthEnabled bool
	OrderlyState       uint16
	AuditCommands      []byte // fixed-size backing array; see minCopyArray
	AuditHashAlg       uint16
	AuditCounter       uint64
	AlgorithmSet       uint32
	FirmwareV1         uint32
	FirmwareV2         uint32
	TimeEpoch          uint64
}

func (p PersistentData) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, persistentDataVersion, persistentDataMagic); err != nil {
		return err
	}
	if err := w.WriteBool(p.DisableClear); err != nil {
		return err
	}
	for _, alg := range []uint16{p.OwnerAlg, p.EndorsementAlg, p.LockoutAlg} {
		if err := w.WriteU16(alg); err != nil {
			return err
		}
	}
	for _, b := range [][]byte{p.OwnerPolicy, p.EndorsementPolicy, p.LockoutPolicy,
		p.OwnerAuth, p.EndorsementAuth, p.LockoutAuth, p.EPSeed, p.SPSeed, p.PPSeed,
		p.PHProof, p.SHProof, p.EHProof} {
		if err := w.WriteArray(b); err != nil {
			return err
		}
	}
	if err := w.WriteU64(p.TotalResetCount); err != nil {
		return err
	}
	if err := w.WriteU32(p.ResetCount); err != nil {
		return err
	}

	sw := frame.NewSkipWriter(w)
	hasPolicyGroup := cfg.NumPolicyPCRGroup > 0
	if err := sw.Push(hasPolicyGroup); err != nil {
		return err
	}
	if hasPolicyGroup {
		if err := p.PCRPolicies.Marshal(w); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return err
	}

	if err := w.WriteArray(p.PCRAllocated); err != nil {
		return err
	}
	if err := w.WriteArray(p.PPList); err != nil {
		return err
	}
	if err := w.WriteU32(p.FailedTries); err != nil {
		return err
	}
	if err := w.WriteU32(p.MaxTries); err != nil {
		return err
	}
	if err := w.WriteU32(p.RecoveryTime); err != nil {
		return err
	}
	if err := w.WriteU32(p.LockoutRecovery); err != nil {
		return err
	}
	if err := w.WriteBool(p.LockOutAuthEnabled); err != nil {
		return err
	}
	if err := w.WriteU16(p.OrderlyState); err != nil {
		return err
	}
	if err := w.WriteArray(p.AuditCommands); err != nil {
		return err
	}
	if err := w.WriteU16(p.AuditHashAlg); err != nil {
		return err
	}
	if err := w.WriteU64(p.AuditCounter); err != nil {
		return err
	}
	if err := w.WriteU32(p.AlgorithmSet); err != nil {
		return err
	}
	if err := w.WriteU32(p.FirmwareV1); err != nil {
		return err
	}
	if err := w.WriteU32(p.FirmwareV2); err != nil {
		return err
	}
	if err := w.WriteU8(cfg.EpochSize()); err != nil {
		return err
	}
	if cfg.ClockStops {
		return w.WriteU64(p.TimeEpoch)
	}
	return w.WriteU32(uint32(p.TimeEpoch))
}

// Unmarshal requires p.PPList and p.AuditCommands to already be
// allocated to the reader's local fixed capacity (cfg.PPListSize,
// cfg.AuditCommandsSize) before this call: minCopyArray copies into
// whatever slice is already there, and a nil/zero-length slice would
// silently discard every byte instead of performing the min-copy the
// wire format promises.
func (p *PersistentData) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, persistentDataMagic, persistentDataVersion, "PERSISTENT_DATA"); err != nil {
		return err
	}
	var err error
	if p.DisableClear, err = r.ReadBool(); err != nil {
		return err
	}
	for _, dst := range []*uint16{&p.OwnerAlg, &p.EndorsementAlg, &p.LockoutAlg} {
		if *dst, err = r.ReadU16(); err != nil {
			return err
		}
	}
	for _, dst := range []*[]byte{&p.OwnerPolicy, &p.EndorsementPolicy, &p.LockoutPolicy,
		&p.OwnerAuth, &p.EndorsementAuth, &p.LockoutAuth, &p.EPSeed, &p.SPSeed, &p.PPSeed,
		&p.PHProof, &p.SHProof, &p.EHProof} {
		if *dst, err = r.ReadArray(); err != nil {
			return err
		}
	}
	if p.TotalResetCount, err = r.ReadU64(); err != nil {
		return err
	}
	if p.ResetCount, err = r.ReadU32(); err != nil {
		return err
	}

	hasPolicyGroup := cfg.NumPolicyPCRGroup > 0
	shouldParse, err := frame.ReadSkip(r, hasPolicyGroup, "PERSISTENT_DATA", "pcrPolicies")
	if err != nil {
		return err
	}
	if shouldParse {
		if err := p.PCRPolicies.Unmarshal(r, cfg); err != nil {
			return err
		}
	}

	if p.PCRAllocated, err = r.ReadArray(); err != nil {
		return err
	}
	if err := minCopyArray(r, p.PPList); err != nil {
		return err
	}
	if p.FailedTries, err = r.ReadU32(); err != nil {
		return err
	}
	if p.MaxTries, err = r.ReadU32(); err != nil {
		return err
	}
	if p.RecoveryTime, err = r.ReadU32(); err != nil {
		return err
	}
	if p.LockoutRecovery, err = r.ReadU32(); err != nil {
		return err
	}
	if p.LockOutAuthEnabled, err = r.ReadBool(); err != nil {
		return err
	}
	if p.OrderlyState, err = r.ReadU16(); err != nil {
		return err
	}
	if err := minCopyArray(r, p.AuditCommands); err != nil {
		return err
	}
	if p.AuditHashAlg, err = r.ReadU16(); err != nil {
		return err
	}
	if p.AuditCounter, err = r.ReadU64(); err != nil {
		return err
	}
	if p.AlgorithmSet, err = r.ReadU32(); err != nil {
		return err
	}
	if p.FirmwareV1, err = r.ReadU32(); err != nil {
		return err
	}
	if p.FirmwareV2, err = r.ReadU32(); err != nil {
		return err
	}
	clocksize, err := r.ReadU8()
	if err != nil {
		return err
	}
	if clocksize != cfg.EpochSize() {
		return errs.New(errs.BadParameter, "PERSISTENT_DATA: unexpected clocksize for timeEpoch; expected %d, got %d", cfg.EpochSize(), clocksize)
	}
	if cfg.ClockStops {
		p.TimeEpoch, err = r.ReadU64()
	} else {
		var v uint32
		v, err = r.ReadU32()
		p.TimeEpoch = uint64(v)
	}
	return err
}
