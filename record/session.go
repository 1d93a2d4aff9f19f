package record

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	sessionMagic     uint32 = 0x44be9f45
	sessionVersion   uint16 = 1
	sessionSlotMagic uint32 = 0x3664aebc
	sessionSlotVer   uint16 = 1
)

// Session is one loaded authorization/policy session (spec §4.3, magic
// 0x44be9f45), grounded on SESSION_Marshal/_Unmarshal. Epoch is carried
// as a clock-size-discriminated value: an explicit byte-width byte (4
// or 8) precedes it so a reader immediately rejects a writer that
// disagrees on config.Options.ClockStops instead of silently
// misaligning every field after it (spec §8 Scenario F).
type Session struct {
	Attributes      uint32
	PCRCounter      uint32
	StartTime       uint64
	Timeout         uint64
	Epoch           uint64
	CommandCode     uint32
	AuthHashAlg     uint16
	CommandLocality uint8
	SymAlgorithm    uint16
	SymKeyBits      []byte
	SymMode         []byte
	SessionKey      []byte
	NonceTPM        []byte
	BoundEntity     []byte
	AuditDigest     []byte
}

func (s Session) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, sessionVersion, sessionMagic); err != nil {
		return err
	}
	if err := w.WriteU32(s.Attributes); err != nil {
		return err
	}
	if err := w.WriteU32(s.PCRCounter); err != nil {
		return err
	}
	if err := w.WriteU64(s.StartTime); err != nil {
		return err
	}
	if err := w.WriteU64(s.Timeout); err != nil {
		return err
	}
	if err := w.WriteU8(cfg.EpochSize()); err != nil {
		return err
	}
	if cfg.ClockStops {
		if err := w.WriteU64(s.Epoch); err != nil {
			return err
		}
	} else {
		if err := w.WriteU32(uint32(s.Epoch)); err != nil {
			return err
		}
	}
	if err := w.WriteU32(s.CommandCode); err != nil {
		return err
	}
	if err := w.WriteU16(s.AuthHashAlg); err != nil {
		return err
	}
	if err := w.WriteU8(s.CommandLocality); err != nil {
		return err
	}
	if err := w.WriteU16(s.SymAlgorithm); err != nil {
		return err
	}
	if err := w.WriteArray(s.SymKeyBits); err != nil {
		return err
	}
	if err := w.WriteArray(s.SymMode); err != nil {
		return err
	}
	if err := w.WriteArray(s.SessionKey); err != nil {
		return err
	}
	if err := w.WriteArray(s.NonceTPM); err != nil {
		return err
	}
	if err := w.WriteArray(s.BoundEntity); err != nil {
		return err
	}
	return w.WriteArray(s.AuditDigest)
}

func (s *Session) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, sessionMagic, sessionVersion, "SESSION"); err != nil {
		return err
	}
	var err error
	if s.Attributes, err = r.ReadU32(); err != nil {
		return err
	}
	if s.PCRCounter, err = r.ReadU32(); err != nil {
		return err
	}
	if s.StartTime, err = r.ReadU64(); err != nil {
		return err
	}
	if s.Timeout, err = r.ReadU64(); err != nil {
		return err
	}
	clocksize, err := r.ReadU8()
	if err != nil {
		return err
	}
	if clocksize != cfg.EpochSize() {
		return errs.New(errs.BadParameter, "SESSION: unexpected clocksize for epoch; expected %d, got %d", cfg.EpochSize(), clocksize)
	}
	if cfg.ClockStops {
		if s.Epoch, err = r.ReadU64(); err != nil {
			return err
		}
	} else {
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		s.Epoch = uint64(v)
	}
	if s.CommandCode, err = r.ReadU32(); err != nil {
		return err
	}
	if s.AuthHashAlg, err = r.ReadU16(); err != nil {
		return err
	}
	if s.CommandLocality, err = r.ReadU8(); err != nil {
		return err
	}
	if s.SymAlgorithm, err = r.ReadU16(); err != nil {
		return err
	}
	if s.SymKeyBits, err = r.ReadArray(); err != nil {
		return err
	}
	if s.SymMode, err = r.ReadArray(); err != nil {
		return err
	}
	if s.SessionKey, err = r.ReadArray(); err != nil {
		return err
	}
	if s.NonceTPM, err = r.ReadArray(); err != nil {
		return err
	}
	if s.BoundEntity, err = r.ReadArray(); err != nil {
		return err
	}
	s.AuditDigest, err = r.ReadArray()
	return err
}

// SessionSlot is the occupied-gated wrapper around one session table
// entry (spec §4.3, magic 0x3664aebc), grounded on
// SESSION_SLOT_Marshal/_Unmarshal — the same occupied-then-payload
// shape as AnyObject, but with an explicit bool rather than a bit
// inside a shared attributes word, matching the original's standalone
// `occupied` field on SESSION_SLOT.
type SessionSlot struct {
	Occupied bool
	Session  Session
}

func (s SessionSlot) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, sessionSlotVer, sessionSlotMagic); err != nil {
		return err
	}
	if err := w.WriteBool(s.Occupied); err != nil {
		return err
	}
	if !s.Occupied {
		return nil
	}
	return s.Session.Marshal(w, cfg)
}

func (s *SessionSlot) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, sessionSlotMagic, sessionSlotVer, "SESSION_SLOT"); err != nil {
		return err
	}
	var err error
	if s.Occupied, err = r.ReadBool(); err != nil {
		return err
	}
	if !s.Occupied {
		return nil
	}
	return s.Session.Unmarshal(r, cfg)
}
