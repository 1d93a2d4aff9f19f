package blob

import (
	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/record"
	"github.com/swtpm-project/statecodec/wire"
)

// MarshalPersistentAll writes the one-shot cold-state export (spec
// §4.4, magic 0xab364723): header, the compile-constants manifest, the
// persistent-data root and the three dynamic-data roots (read from
// store), then the index-orderly-RAM and user-NVRAM regions streamed
// inline, and a trailing magic sentinel. The manifest precedes
// persistent-data so an incompatible build fails before touching any
// real state (spec §4.5).
func MarshalPersistentAll(w *wire.Writer, cfg config.Options, store backend.PersistentStore, idx backend.IndexRAM, dyn backend.DynamicNV) error {
	if err := frame.WriteHeader(w, PersistentAllVersion, PersistentAllMagic); err != nil {
		return err
	}
	if err := cfg.MarshalCompileConstants(w); err != nil {
		return err
	}

	pd, err := store.LoadPersistentData()
	if err != nil {
		return err
	}
	if err := pd.Marshal(w, cfg); err != nil {
		return err
	}

	od, err := store.LoadOrderlyData()
	if err != nil {
		return err
	}
	if err := od.Marshal(w, cfg); err != nil {
		return err
	}

	srd, err := store.LoadStateResetData()
	if err != nil {
		return err
	}
	if err := srd.Marshal(w, cfg); err != nil {
		return err
	}

	scd, err := store.LoadStateClearData()
	if err != nil {
		return err
	}
	if err := scd.Marshal(w, cfg); err != nil {
		return err
	}

	if err := MarshalIndexOrderlyRAM(w, idx); err != nil {
		return err
	}
	if err := MarshalUserNVRAM(w, cfg, dyn); err != nil {
		return err
	}

	return w.WriteU32(PersistentAllMagic)
}

// UnmarshalPersistentAll reads a PERSISTENT_ALL blob and writes each
// root back through store/idx/dyn in the same order it was written
// (spec §4.4). A compile-constants mismatch aborts before any of
// store's Store* methods are called, per spec §4.5's "this manifest
// precedes persistent-data in PERSISTENT_ALL so that an incompatible
// build fails before touching any real state."
func UnmarshalPersistentAll(r *wire.Reader, cfg config.Options, store backend.PersistentStore, idx backend.IndexRAM, dyn backend.DynamicNV) error {
	if _, err := frame.ReadHeader(r, PersistentAllMagic, PersistentAllVersion, "PERSISTENT_ALL"); err != nil {
		return err
	}
	if err := cfg.UnmarshalCompileConstants(r); err != nil {
		return err
	}

	pd := record.PersistentData{
		PPList:        make([]byte, cfg.PPListSize),
		AuditCommands: make([]byte, cfg.AuditCommandsSize),
	}
	if err := pd.Unmarshal(r, cfg); err != nil {
		return err
	}
	if err := store.StorePersistentData(pd); err != nil {
		return err
	}

	var od record.OrderlyData
	if err := od.Unmarshal(r, cfg); err != nil {
		return err
	}
	if err := store.StoreOrderlyData(od); err != nil {
		return err
	}

	var srd record.StateResetData
	if err := srd.Unmarshal(r, cfg); err != nil {
		return err
	}
	if err := store.StoreStateResetData(srd); err != nil {
		return err
	}

	var scd record.StateClearData
	if err := scd.Unmarshal(r, cfg); err != nil {
		return err
	}
	if err := store.StoreStateClearData(scd); err != nil {
		return err
	}

	if err := UnmarshalIndexOrderlyRAM(r, idx); err != nil {
		return err
	}
	if err := UnmarshalUserNVRAM(r, cfg, dyn); err != nil {
		return err
	}

	trailing, err := r.ReadU32()
	if err != nil {
		return err
	}
	if trailing != PersistentAllMagic {
		return errs.New(errs.BadTag, "PERSISTENT_ALL: trailing sentinel mismatch; expected 0x%08x, got 0x%08x", PersistentAllMagic, trailing)
	}
	return nil
}
