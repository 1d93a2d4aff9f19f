package record

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	orderlyDataMagic   uint32 = 0x56657887
	orderlyDataVersion uint16 = 1
	stateClearMagic    uint32 = 0x98897667
	stateClearVersion  uint16 = 1
	stateResetMagic    uint32 = 0x01102332
	stateResetVersion  uint16 = 1
)

// OrderlyData is the data the TPM flushes to NV only at an orderly
// shutdown (spec §4.3, magic 0x56657887), grounded on
// ORDERLY_DATA_Marshal/_Unmarshal. The self-heal timers are gated by
// AccumulateSelfHealTimer's skip block exactly as in the original.
type OrderlyData struct {
	Clock          uint64
	ClockSafe      uint8
	DRBG           DRBGState
	SelfHealTimer  uint64
	LockoutTimer   uint64
	Time           uint64
}

func (o OrderlyData) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, orderlyDataVersion, orderlyDataMagic); err != nil {
		return err
	}
	if err := w.WriteU64(o.Clock); err != nil {
		return err
	}
	if err := w.WriteU8(o.ClockSafe); err != nil {
		return err
	}
	if err := o.DRBG.Marshal(w); err != nil {
		return err
	}
	sw := frame.NewSkipWriter(w)
	if err := sw.Push(cfg.AccumulateSelfHealTimer); err != nil {
		return err
	}
	if cfg.AccumulateSelfHealTimer {
		if err := w.WriteU64(o.SelfHealTimer); err != nil {
			return err
		}
		if err := w.WriteU64(o.LockoutTimer); err != nil {
			return err
		}
		if err := w.WriteU64(o.Time); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}
	return sw.Close()
}

func (o *OrderlyData) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, orderlyDataMagic, orderlyDataVersion, "ORDERLY_DATA"); err != nil {
		return err
	}
	var err error
	if o.Clock, err = r.ReadU64(); err != nil {
		return err
	}
	if o.ClockSafe, err = r.ReadU8(); err != nil {
		return err
	}
	if err := o.DRBG.Unmarshal(r); err != nil {
		return err
	}
	shouldParse, err := frame.ReadSkip(r, cfg.AccumulateSelfHealTimer, "ORDERLY_DATA", "selfHealTimer")
	if err != nil {
		return err
	}
	if shouldParse {
		if o.SelfHealTimer, err = r.ReadU64(); err != nil {
			return err
		}
		if o.LockoutTimer, err = r.ReadU64(); err != nil {
			return err
		}
		if o.Time, err = r.ReadU64(); err != nil {
			return err
		}
	}
	return nil
}

// StateClearData is the subset of TPM state cleared by TPM2_Clear
// (spec §4.3, magic 0x98897667), grounded on STATE_CLEAR_DATA_Marshal.
// PlatformPolicy/PlatformAuth are raw TPM2B blobs, carried opaquely per
// §3's note that cryptographic-layer types are out of scope.
type StateClearData struct {
	SHEnable       bool
	EHEnable       bool
	PHEnableNV     bool
	PlatformAlg    uint16
	PlatformPolicy []byte
	PlatformAuth   []byte
	PCRSave        PCR
	PCRAuthValues  PCRAuthValue
}

func (s StateClearData) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, stateClearVersion, stateClearMagic); err != nil {
		return err
	}
	if err := w.WriteBool(s.SHEnable); err != nil {
		return err
	}
	if err := w.WriteBool(s.EHEnable); err != nil {
		return err
	}
	if err := w.WriteBool(s.PHEnableNV); err != nil {
		return err
	}
	if err := w.WriteU16(s.PlatformAlg); err != nil {
		return err
	}
	if err := w.WriteArray(s.PlatformPolicy); err != nil {
		return err
	}
	if err := w.WriteArray(s.PlatformAuth); err != nil {
		return err
	}
	if err := s.PCRSave.Marshal(w, cfg); err != nil {
		return err
	}
	return s.PCRAuthValues.Marshal(w)
}

func (s *StateClearData) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, stateClearMagic, stateClearVersion, "STATE_CLEAR_DATA"); err != nil {
		return err
	}
	var err error
	if s.SHEnable, err = r.ReadBool(); err != nil {
		return err
	}
	if s.EHEnable, err = r.ReadBool(); err != nil {
		return err
	}
	if s.PHEnableNV, err = r.ReadBool(); err != nil {
		return err
	}
	if s.PlatformAlg, err = r.ReadU16(); err != nil {
		return err
	}
	if s.PlatformPolicy, err = r.ReadArray(); err != nil {
		return err
	}
	if s.PlatformAuth, err = r.ReadArray(); err != nil {
		return err
	}
	if err := s.PCRSave.Unmarshal(r, cfg); err != nil {
		return err
	}
	return s.PCRAuthValues.Unmarshal(r, cfg)
}

// StateResetData is the subset of state reset at TPM2_Startup(CLEAR)
// (spec §4.3, magic 0x01102332), grounded on STATE_RESET_DATA_Marshal.
// The ECC commit array is gated by config.Options.ECC's skip block.
type StateResetData struct {
	NullProof          []byte
	NullSeed           []byte
	ClearCount         uint32
	ObjectContextID    uint64
	ContextArray       []byte
	ContextCounter     uint64
	CommandAuditDigest []byte
	RestartCount       uint32
	PCRCounter         uint32
	CommitCounter      uint64
	CommitNonce        []byte
	CommitArray        []byte
}

func (s StateResetData) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, stateResetVersion, stateResetMagic); err != nil {
		return err
	}
	if err := w.WriteArray(s.NullProof); err != nil {
		return err
	}
	if err := w.WriteArray(s.NullSeed); err != nil {
		return err
	}
	if err := w.WriteU32(s.ClearCount); err != nil {
		return err
	}
	if err := w.WriteU64(s.ObjectContextID); err != nil {
		return err
	}
	if err := w.WriteArray(s.ContextArray); err != nil {
		return err
	}
	if err := w.WriteU64(s.ContextCounter); err != nil {
		return err
	}
	if err := w.WriteArray(s.CommandAuditDigest); err != nil {
		return err
	}
	if err := w.WriteU32(s.RestartCount); err != nil {
		return err
	}
	if err := w.WriteU32(s.PCRCounter); err != nil {
		return err
	}
	sw := frame.NewSkipWriter(w)
	if err := sw.Push(cfg.ECC); err != nil {
		return err
	}
	if cfg.ECC {
		if err := w.WriteU64(s.CommitCounter); err != nil {
			return err
		}
		if err := w.WriteArray(s.CommitNonce); err != nil {
			return err
		}
		if err := w.WriteArray(s.CommitArray); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}
	return sw.Close()
}

func (s *StateResetData) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, stateResetMagic, stateResetVersion, "STATE_RESET_DATA"); err != nil {
		return err
	}
	var err error
	if s.NullProof, err = r.ReadArray(); err != nil {
		return err
	}
	if s.NullSeed, err = r.ReadArray(); err != nil {
		return err
	}
	if s.ClearCount, err = r.ReadU32(); err != nil {
		return err
	}
	if s.ObjectContextID, err = r.ReadU64(); err != nil {
		return err
	}
	if s.ContextArray, err = r.ReadArray(); err != nil {
		return err
	}
	if s.ContextCounter, err = r.ReadU64(); err != nil {
		return err
	}
	if s.CommandAuditDigest, err = r.ReadArray(); err != nil {
		return err
	}
	if s.RestartCount, err = r.ReadU32(); err != nil {
		return err
	}
	if s.PCRCounter, err = r.ReadU32(); err != nil {
		return err
	}
	shouldParse, err := frame.ReadSkip(r, cfg.ECC, "STATE_RESET_DATA", "eccCommit")
	if err != nil {
		return err
	}
	if shouldParse {
		if s.CommitCounter, err = r.ReadU64(); err != nil {
			return err
		}
		if s.CommitNonce, err = r.ReadArray(); err != nil {
			return err
		}
		if s.CommitArray, err = r.ReadArray(); err != nil {
			return err
		}
	}
	return nil
}
