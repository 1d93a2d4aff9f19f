package record

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	pcrMagic       uint32 = 0xe95f0387
	pcrVersion     uint16 = 1
	pcrPolicyMagic uint32 = 0x176be626
	pcrPolicyVer   uint16 = 1
	pcrAuthMagic   uint32 = 0x6be82eaf
	pcrAuthVer     uint16 = 1
)

// bankSize is the digest width, in bytes, of one PCR's value under a
// given bank algorithm.
func bankSize(alg AlgID) int {
	switch alg {
	case AlgSHA1:
		return 20
	case AlgSHA256, AlgSM3256:
		return 32
	case AlgSHA384:
		return 48
	case AlgSHA512:
		return 64
	default:
		return 0
	}
}

// PCR is one full set of PCR banks — the concatenated digest bytes for
// every static PCR under every algorithm this build was compiled with
// (spec §4.3, magic 0xe95f0387). Grounded on PCR_Marshal/PCR_Unmarshal
// in NVMarshal.c: a stream of (algID, length, bytes) triples terminated
// by TPM_ALG_NULL, so an unrecognized algID written by a future build
// is impossible to silently misparse — the reader either knows the
// algID's bank size or fails closed.
type PCR struct {
	Banks map[AlgID][]byte
}

// EnabledBanks returns the algorithm IDs this build's config enables,
// in wire order. Exported for package blob's object-table dispatch,
// which needs the same count to size a hash-sequence object's
// HashStates array.
func EnabledBanks(cfg config.Options) []AlgID {
	var algs []AlgID
	if cfg.SHA1 {
		algs = append(algs, AlgSHA1)
	}
	if cfg.SHA256 {
		algs = append(algs, AlgSHA256)
	}
	if cfg.SHA384 {
		algs = append(algs, AlgSHA384)
	}
	if cfg.SHA512 {
		algs = append(algs, AlgSHA512)
	}
	if cfg.SM3256 {
		algs = append(algs, AlgSM3256)
	}
	return algs
}

// Marshal writes p in the order cfg enables each algorithm, then the
// TPM_ALG_NULL terminator.
func (p PCR) Marshal(w *wire.Writer, cfg config.Options) error {
	if err := frame.WriteHeader(w, pcrVersion, pcrMagic); err != nil {
		return err
	}
	for _, alg := range EnabledBanks(cfg) {
		if err := w.WriteU16(uint16(alg)); err != nil {
			return err
		}
		bank := p.Banks[alg]
		size := cfg.NumStaticPCR * bankSize(alg)
		if len(bank) != size {
			return errs.New(errs.Size, "PCR: bank 0x%04x has %d bytes, want %d", alg, len(bank), size)
		}
		if err := w.WriteU16(uint16(size)); err != nil {
			return err
		}
		if err := w.WriteRaw(bank); err != nil {
			return err
		}
	}
	return w.WriteU16(uint16(AlgNull))
}

// Unmarshal reads a PCR stream, dispatching each tag to its bank size
// and stopping at the NULL sentinel (spec §4.3 / §8 Scenario — algorithm
// streaming).
func (p *PCR) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, pcrMagic, pcrVersion, "PCR"); err != nil {
		return err
	}
	p.Banks = make(map[AlgID][]byte)
	for {
		tag, err := r.ReadU16()
		if err != nil {
			return err
		}
		alg := AlgID(tag)
		if alg == AlgNull {
			return nil
		}
		size := bankSize(alg)
		if size == 0 {
			return errs.New(errs.BadParameter, "PCR: unsupported algid 0x%04x", tag)
		}
		arraySize, err := r.ReadU16()
		if err != nil {
			return err
		}
		want := cfg.NumStaticPCR * size
		if int(arraySize) != want {
			return errs.New(errs.Size, "PCR: bad size for bank 0x%04x; expected %d, got %d", tag, want, arraySize)
		}
		bytes, err := r.ReadRaw(int(arraySize))
		if err != nil {
			return err
		}
		p.Banks[alg] = bytes
	}
}

// PCRPolicy is the fixed-cardinality (algID, digest) policy-per-PCR-group
// table (spec §4.3, magic 0x176be626), grounded on PCR_POLICY_Marshal.
type PCRPolicy struct {
	HashAlg []AlgID
	Policy  [][]byte
}

func (p PCRPolicy) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, pcrPolicyVer, pcrPolicyMagic); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(p.HashAlg))); err != nil {
		return err
	}
	for i, alg := range p.HashAlg {
		if err := w.WriteU16(uint16(alg)); err != nil {
			return err
		}
		if err := w.WriteArray(p.Policy[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PCRPolicy) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, pcrPolicyMagic, pcrPolicyVer, "PCR_POLICY"); err != nil {
		return err
	}
	n, err := r.ReadU16()
	if err != nil {
		return err
	}
	if int(n) != cfg.NumPolicyPCRGroup {
		return errs.New(errs.Size, "PCR_POLICY: array size %d, want %d", n, cfg.NumPolicyPCRGroup)
	}
	p.HashAlg = make([]AlgID, n)
	p.Policy = make([][]byte, n)
	for i := 0; i < int(n); i++ {
		alg, err := r.ReadU16()
		if err != nil {
			return err
		}
		digest, err := r.ReadArray()
		if err != nil {
			return err
		}
		p.HashAlg[i] = AlgID(alg)
		p.Policy[i] = digest
	}
	return nil
}

// PCRAuthValue holds the per-PCR-group auth-value digests (spec §4.3,
// magic 0x6be82eaf), same fixed-cardinality shape as PCRPolicy but
// carrying raw auth digests rather than policy digests.
type PCRAuthValue struct {
	AuthValue [][]byte
}

func (p PCRAuthValue) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, pcrAuthVer, pcrAuthMagic); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(len(p.AuthValue))); err != nil {
		return err
	}
	for _, v := range p.AuthValue {
		if err := w.WriteArray(v); err != nil {
			return err
		}
	}
	return nil
}

func (p *PCRAuthValue) Unmarshal(r *wire.Reader, cfg config.Options) error {
	if _, err := frame.ReadHeader(r, pcrAuthMagic, pcrAuthVer, "PCR_AUTHVALUE"); err != nil {
		return err
	}
	n, err := r.ReadU16()
	if err != nil {
		return err
	}
	if int(n) != cfg.NumAuthValuePCRGroup {
		return errs.New(errs.Size, "PCR_AUTHVALUE: array size %d, want %d", n, cfg.NumAuthValuePCRGroup)
	}
	p.AuthValue = make([][]byte, n)
	for i := range p.AuthValue {
		v, err := r.ReadArray()
		if err != nil {
			return err
		}
		p.AuthValue[i] = v
	}
	return nil
}
