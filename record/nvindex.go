package record

import (
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	nvIndexMagic   uint32 = 0x2547265a
	nvIndexVersion uint16 = 1
)

// NVIndex is one defined NV index's public area plus auth value (spec
// §4.3/§6, magic 0x2547265a), grounded on NV_INDEX_Marshal/_Unmarshal.
// PublicArea is the TPMS_NV_PUBLIC blob, carried opaquely per §3's note
// on cryptographic-layer types.
type NVIndex struct {
	PublicArea []byte
	AuthValue  []byte
}

func (n NVIndex) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, nvIndexVersion, nvIndexMagic); err != nil {
		return err
	}
	if err := w.WriteArray(n.PublicArea); err != nil {
		return err
	}
	return w.WriteArray(n.AuthValue)
}

func (n *NVIndex) Unmarshal(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, nvIndexMagic, nvIndexVersion, "NV_INDEX"); err != nil {
		return err
	}
	var err error
	if n.PublicArea, err = r.ReadArray(); err != nil {
		return err
	}
	n.AuthValue, err = r.ReadArray()
	return err
}
