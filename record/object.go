package record

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	objectMagic    uint32 = 0x75be73af
	objectVersion  uint16 = 1
	anyObjectMagic uint32 = 0xfe9a3974
	anyObjectVer   uint16 = 1
)

// Object is a plain (non-sequence) loaded object (spec §4.3, magic
// 0x75be73af), grounded on OBJECT_Marshal/_Unmarshal. PrivateExponent
// is gated by config.Options.RSA's skip block — on a non-RSA build the
// field is absent from the wire entirely, not merely zeroed.
type Object struct {
	PublicArea      []byte
	Sensitive       []byte
	PrivateExponent PrivateExponent
	QualifiedName   []byte
	EvictHandle     uint32
	Name            []byte
}

func (o Object) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, objectVersion, objectMagic); err != nil {
		return err
	}
	if err := w.WriteArray(o.PublicArea); err != nil {
		return err
	}
	if err := w.WriteArray(o.Sensitive); err != nil {
		return err
	}
	sw := frame.NewSkipWriter(w)
	if err := sw.Push(cfg.RSA); err != nil {
		return err
	}
	if cfg.RSA {
		if err := o.PrivateExponent.Marshal(w); err != nil {
			return err
		}
	}
	if err := sw.Pop(); err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return err
	}
	if err := w.WriteArray(o.QualifiedName); err != nil {
		return err
	}
	if err := w.WriteU32(o.EvictHandle); err != nil {
		return err
	}
	return w.WriteArray(o.Name)
}

func (o *Object) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, objectMagic, objectVersion, "OBJECT"); err != nil {
		return err
	}
	var err error
	if o.PublicArea, err = r.ReadArray(); err != nil {
		return err
	}
	if o.Sensitive, err = r.ReadArray(); err != nil {
		return err
	}
	shouldParse, err := frame.ReadSkip(r, cfg.RSA, "OBJECT", "privateExponent")
	if err != nil {
		return err
	}
	if shouldParse {
		if err := o.PrivateExponent.Unmarshal(r); err != nil {
			return err
		}
	}
	if o.QualifiedName, err = r.ReadArray(); err != nil {
		return err
	}
	if o.EvictHandle, err = r.ReadU32(); err != nil {
		return err
	}
	o.Name, err = r.ReadArray()
	return err
}

// Object attribute bits within AnyObject.Attributes, matching the
// internal OBJECT_ATTRIBUTES bitfield libtpms marshals as a bare
// UINT32 (occupied/hashSeq/hmacSeq are the only bits the codec itself
// branches on; the rest ride along opaquely).
const (
	objAttrOccupied uint32 = 1 << 0
	objAttrHashSeq  uint32 = 1 << 1
	objAttrHMACSeq  uint32 = 1 << 2
)

// AnyObject is the occupied-gated dispatch wrapper around a loaded
// object slot (spec §4.3, magic 0xfe9a3974), grounded on
// ANY_OBJECT_Marshal/_Unmarshal: the raw attributes word is always
// written, but the rest of the slot is only present when occupied, and
// then dispatches between HashObject (a hash/HMAC sequence object) and
// Object (everything else) by the same attributes bits.
type AnyObject struct {
	Attributes uint32
	NumHashAlg int
	Hash       HashObject
	Plain      Object
}

func (a AnyObject) Occupied() bool   { return a.Attributes&objAttrOccupied != 0 }
func (a AnyObject) IsSequence() bool { return a.Attributes&(objAttrHashSeq|objAttrHMACSeq) != 0 }

func (a AnyObject) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, anyObjectVer, anyObjectMagic); err != nil {
		return err
	}
	if err := w.WriteU32(a.Attributes); err != nil {
		return err
	}
	if !a.Occupied() {
		return nil
	}
	if a.IsSequence() {
		return a.Hash.Marshal(w)
	}
	return a.Plain.Marshal(w, cfg)
}

func (a *AnyObject) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, anyObjectMagic, anyObjectVer, "ANY_OBJECT"); err != nil {
		return err
	}
	var err error
	if a.Attributes, err = r.ReadU32(); err != nil {
		return err
	}
	if !a.Occupied() {
		return nil
	}
	if a.IsSequence() {
		a.Hash.HashSeq = a.Attributes&objAttrHashSeq != 0
		a.Hash.HMACSeq = a.Attributes&objAttrHMACSeq != 0
		return a.Hash.Unmarshal(r, a.NumHashAlg)
	}
	return a.Plain.Unmarshal(r, cfg)
}
