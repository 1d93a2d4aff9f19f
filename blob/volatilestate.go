package blob

import (
	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/record"
	"github.com/swtpm-project/statecodec/wire"
)

// TimerAdjust is the timer-adjust accumulator state (spec §4.4's
// "timer-adjust state" compile-gated section), grounded on
// s_timerAdjustment book-keeping in NVMarshal.c: a reset flag plus the
// running adjustment accumulator.
type TimerAdjust struct {
	Reset     bool
	Adjustment int64
}

// FailureMode is the function/line/code triplet the original records
// at the site of a TPM failure-mode transition (spec §4.4).
type FailureMode struct {
	Function string
	Line     uint32
	Code     uint32
}

// VolatileState is the live runtime state captured by VOLATILE_STATE
// (spec §4.4, magic 0x45637889): global handles, flag words, monotonic
// counters, the three hierarchy-data roots, and a set of independently
// compile-gated sections, each a skip block. SPEC_FULL.md §8 notes the
// original additionally carries a handful of platform/DRTM fields ahead
// of the hierarchy roots; those are folded in here as PlatformUniqueDetails
// and the Drtm*/PowerWasLost/NvOk/PrevOrderlyState fields.
type VolatileState struct {
	AuditSessionHandle uint32
	DRTMHandle         uint32

	PHEnable        bool
	PCRReConfig     bool
	PowerWasLost    bool
	NvOk            bool
	Manufactured    bool
	Initialized     bool
	InFailureMode   bool
	TPMEstablished  bool
	DrtmPreStartup  bool
	StartupLocality3 bool

	PrevOrderlyState     uint16
	PlatformUniqueDetails []byte

	GTime uint64

	Orderly    record.OrderlyData
	StateClear record.StateClearData
	StateReset record.StateResetData

	SessionTable     []record.Session     // gated cfg.SessionProcess
	NVCache          []byte               // gated cfg.NVCache
	ObjectTable      []record.AnyObject   // gated cfg.ObjectTable
	PCRBankTable     record.PCR           // gated cfg.PCRBankTable
	SessionSlotTable []record.SessionSlot // gated cfg.SessionSlotTable
	Failure          FailureMode          // gated cfg.FailureMode

	RealTimePrevious uint64 // gated cfg.SoftwareClock
	TPMTime          uint64 // gated cfg.SoftwareClock

	Timer TimerAdjust // gated cfg.TimerAdjust
}

// MarshalVolatileState writes v framed as VOLATILE_STATE, followed by
// the time-reanchoring wall-clock reading and the trailing magic
// sentinel (spec §4.4). clk is consulted here rather than deferred to
// a caller because the wall-clock read is itself part of this blob's
// wire contract, the same way PERSISTENT_ALL and USER_NVRAM read their
// backends inline during Marshal.
func MarshalVolatileState(w *wire.Writer, cfg config.Options, v VolatileState, clk backend.Clock) error {
	if err := frame.WriteHeader(w, VolatileStateVersion, VolatileStateMagic); err != nil {
		return err
	}
	if err := w.WriteU32(v.AuditSessionHandle); err != nil {
		return err
	}
	if err := w.WriteU32(v.DRTMHandle); err != nil {
		return err
	}
	for _, b := range []bool{
		v.PHEnable, v.PCRReConfig, v.PowerWasLost, v.NvOk, v.Manufactured,
		v.Initialized, v.InFailureMode, v.TPMEstablished, v.DrtmPreStartup, v.StartupLocality3,
	} {
		if err := w.WriteBool(b); err != nil {
			return err
		}
	}
	if err := w.WriteU16(v.PrevOrderlyState); err != nil {
		return err
	}
	if err := w.WriteArray(v.PlatformUniqueDetails); err != nil {
		return err
	}
	if err := w.WriteU64(v.GTime); err != nil {
		return err
	}
	if err := v.Orderly.Marshal(w, cfg); err != nil {
		return err
	}
	if err := v.StateClear.Marshal(w, cfg); err != nil {
		return err
	}
	if err := v.StateReset.Marshal(w, cfg); err != nil {
		return err
	}

	sw := frame.NewSkipWriter(w)

	if err := sw.Push(cfg.SessionProcess); err != nil {
		return err
	}
	if cfg.SessionProcess {
		if err := w.WriteU16(uint16(len(v.SessionTable))); err != nil {
			return err
		}
		for _, s := range v.SessionTable {
			if err := s.Marshal(w, cfg); err != nil {
				return err
			}
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.NVCache); err != nil {
		return err
	}
	if cfg.NVCache {
		if err := w.WriteArray(v.NVCache); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.ObjectTable); err != nil {
		return err
	}
	if cfg.ObjectTable {
		if err := w.WriteU16(uint16(len(v.ObjectTable))); err != nil {
			return err
		}
		for _, o := range v.ObjectTable {
			if err := o.Marshal(w, cfg); err != nil {
				return err
			}
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.PCRBankTable); err != nil {
		return err
	}
	if cfg.PCRBankTable {
		if err := v.PCRBankTable.Marshal(w, cfg); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.SessionSlotTable); err != nil {
		return err
	}
	if cfg.SessionSlotTable {
		if err := w.WriteU16(uint16(len(v.SessionSlotTable))); err != nil {
			return err
		}
		for _, s := range v.SessionSlotTable {
			if err := s.Marshal(w, cfg); err != nil {
				return err
			}
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.FailureMode); err != nil {
		return err
	}
	if cfg.FailureMode {
		if err := w.WriteArray([]byte(v.Failure.Function)); err != nil {
			return err
		}
		if err := w.WriteU32(v.Failure.Line); err != nil {
			return err
		}
		if err := w.WriteU32(v.Failure.Code); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.SoftwareClock); err != nil {
		return err
	}
	if cfg.SoftwareClock {
		if err := w.WriteU64(v.RealTimePrevious); err != nil {
			return err
		}
		if err := w.WriteU64(v.TPMTime); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Push(cfg.TimerAdjust); err != nil {
		return err
	}
	if cfg.TimerAdjust {
		if err := w.WriteBool(v.Timer.Reset); err != nil {
			return err
		}
		if err := w.WriteU64(uint64(v.Timer.Adjustment)); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}

	if err := sw.Close(); err != nil {
		return err
	}

	if err := w.WriteU64(clk.WallClockNow()); err != nil {
		return err
	}
	return w.WriteU32(VolatileStateMagic)
}

// UnmarshalVolatileState reads a VOLATILE_STATE blob and re-anchors
// every timer-derived field against the current wall clock (spec
// §4.4): it reads the writer's wall-clock reading, diffs it against
// clk.WallClockNow(), and adds that delta to GTime, RealTimePrevious
// and TPMTime so timer-based state resumes with continuity across the
// suspend/resume or migration boundary.
func UnmarshalVolatileState(r *wire.Reader, cfg config.Options, clk backend.Clock) (VolatileState, error) {
	var v VolatileState
	if _, err := frame.ReadHeader(r, VolatileStateMagic, VolatileStateVersion, "VOLATILE_STATE"); err != nil {
		return v, err
	}
	var err error
	if v.AuditSessionHandle, err = r.ReadU32(); err != nil {
		return v, err
	}
	if v.DRTMHandle, err = r.ReadU32(); err != nil {
		return v, err
	}
	flags := []*bool{
		&v.PHEnable, &v.PCRReConfig, &v.PowerWasLost, &v.NvOk, &v.Manufactured,
		&v.Initialized, &v.InFailureMode, &v.TPMEstablished, &v.DrtmPreStartup, &v.StartupLocality3,
	}
	for _, f := range flags {
		if *f, err = r.ReadBool(); err != nil {
			return v, err
		}
	}
	if v.PrevOrderlyState, err = r.ReadU16(); err != nil {
		return v, err
	}
	if v.PlatformUniqueDetails, err = r.ReadArray(); err != nil {
		return v, err
	}
	if v.GTime, err = r.ReadU64(); err != nil {
		return v, err
	}
	if err := v.Orderly.Unmarshal(r, cfg); err != nil {
		return v, err
	}
	if err := v.StateClear.Unmarshal(r, cfg); err != nil {
		return v, err
	}
	if err := v.StateReset.Unmarshal(r, cfg); err != nil {
		return v, err
	}

	shouldParse, err := frame.ReadSkip(r, cfg.SessionProcess, "VOLATILE_STATE", "sessionTable")
	if err != nil {
		return v, err
	}
	if shouldParse {
		n, err := r.ReadU16()
		if err != nil {
			return v, err
		}
		v.SessionTable = make([]record.Session, n)
		for i := range v.SessionTable {
			if err := v.SessionTable[i].Unmarshal(r, cfg); err != nil {
				return v, err
			}
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.NVCache, "VOLATILE_STATE", "nvCache")
	if err != nil {
		return v, err
	}
	if shouldParse {
		if v.NVCache, err = r.ReadArray(); err != nil {
			return v, err
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.ObjectTable, "VOLATILE_STATE", "objectTable")
	if err != nil {
		return v, err
	}
	if shouldParse {
		n, err := r.ReadU16()
		if err != nil {
			return v, err
		}
		numHashAlg := len(record.EnabledBanks(cfg))
		v.ObjectTable = make([]record.AnyObject, n)
		for i := range v.ObjectTable {
			v.ObjectTable[i].NumHashAlg = numHashAlg
			if err := v.ObjectTable[i].Unmarshal(r, cfg); err != nil {
				return v, err
			}
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.PCRBankTable, "VOLATILE_STATE", "pcrBankTable")
	if err != nil {
		return v, err
	}
	if shouldParse {
		if err := v.PCRBankTable.Unmarshal(r, cfg); err != nil {
			return v, err
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.SessionSlotTable, "VOLATILE_STATE", "sessionSlotTable")
	if err != nil {
		return v, err
	}
	if shouldParse {
		n, err := r.ReadU16()
		if err != nil {
			return v, err
		}
		v.SessionSlotTable = make([]record.SessionSlot, n)
		for i := range v.SessionSlotTable {
			if err := v.SessionSlotTable[i].Unmarshal(r, cfg); err != nil {
				return v, err
			}
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.FailureMode, "VOLATILE_STATE", "failureMode")
	if err != nil {
		return v, err
	}
	if shouldParse {
		fn, err := r.ReadArray()
		if err != nil {
			return v, err
		}
		v.Failure.Function = string(fn)
		if v.Failure.Line, err = r.ReadU32(); err != nil {
			return v, err
		}
		if v.Failure.Code, err = r.ReadU32(); err != nil {
			return v, err
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.SoftwareClock, "VOLATILE_STATE", "softwareClock")
	if err != nil {
		return v, err
	}
	if shouldParse {
		if v.RealTimePrevious, err = r.ReadU64(); err != nil {
			return v, err
		}
		if v.TPMTime, err = r.ReadU64(); err != nil {
			return v, err
		}
	}

	shouldParse, err = frame.ReadSkip(r, cfg.TimerAdjust, "VOLATILE_STATE", "timerAdjust")
	if err != nil {
		return v, err
	}
	if shouldParse {
		if v.Timer.Reset, err = r.ReadBool(); err != nil {
			return v, err
		}
		adj, err := r.ReadU64()
		if err != nil {
			return v, err
		}
		v.Timer.Adjustment = int64(adj)
	}

	writerWallClock, err := r.ReadU64()
	if err != nil {
		return v, err
	}
	trailing, err := r.ReadU32()
	if err != nil {
		return v, err
	}
	if trailing != VolatileStateMagic {
		return v, errs.New(errs.BadTag, "VOLATILE_STATE: trailing sentinel mismatch; expected 0x%08x, got 0x%08x", VolatileStateMagic, trailing)
	}

	now := clk.WallClockNow()
	delta := now - writerWallClock
	v.GTime += delta
	if cfg.SoftwareClock {
		v.RealTimePrevious += delta
		v.TPMTime += delta
	}
	return v, nil
}
