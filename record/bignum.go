package record

import (
	"math/big"

	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/frame"
	"github.com/swtpm-project/statecodec/wire"
)

const (
	bnPrimeMagic uint32 = 0x2fe736ab
	bnPrimeVer   uint16 = 1

	privateExponentMagic uint32 = 0x0854eab2
	privateExponentVer   uint16 = 1
)

// BNPrime is a cross-architecture-safe rendition of bn_prime_t.
// NVMarshal.c's bn_prime_t_Marshal writes the number as a sequence of
// machine-word limbs (32 or 64 bits, depending on the writer's build),
// and bn_prime_t_Unmarshal always re-reads it as a stream of 32-bit
// words, recombining pairs MSW-first into 64-bit limbs when the reading
// build is 64-bit wide. A big-endian byte count plus a big-endian
// 32-bit-word stream makes that recomposition the reader's ordinary
// job rather than a word-width special case: we store the value as a
// math/big.Int and always marshal/unmarshal in fixed 32-bit words,
// which is what both a 32-bit and a 64-bit libtpms reader ultimately
// see on the wire.
type BNPrime struct {
	Value *big.Int
}

func (b BNPrime) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, bnPrimeVer, bnPrimeMagic); err != nil {
		return err
	}
	bytes := b.Value.Bytes()
	// Pad to a whole number of 32-bit words, matching the original's
	// "numbytes = size * sizeof(crypt_uword_t)" framing.
	if pad := len(bytes) % 4; pad != 0 {
		padded := make([]byte, 4-pad+len(bytes))
		copy(padded[4-pad:], bytes)
		bytes = padded
	}
	if err := w.WriteU16(uint16(len(bytes))); err != nil {
		return err
	}
	for i := 0; i < len(bytes); i += 4 {
		word := uint32(bytes[i])<<24 | uint32(bytes[i+1])<<16 | uint32(bytes[i+2])<<8 | uint32(bytes[i+3])
		if err := w.WriteU32(word); err != nil {
			return err
		}
	}
	return nil
}

func (b *BNPrime) Unmarshal(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, bnPrimeMagic, bnPrimeVer, "BN_PRIME_T"); err != nil {
		return err
	}
	numbytes, err := r.ReadU16()
	if err != nil {
		return err
	}
	if numbytes%4 != 0 {
		return errs.New(errs.Size, "BN_PRIME_T: numbytes %d is not word-aligned", numbytes)
	}
	bytes := make([]byte, numbytes)
	for i := 0; i < int(numbytes); i += 4 {
		word, err := r.ReadU32()
		if err != nil {
			return err
		}
		bytes[i] = byte(word >> 24)
		bytes[i+1] = byte(word >> 16)
		bytes[i+2] = byte(word >> 8)
		bytes[i+3] = byte(word)
	}
	b.Value = new(big.Int).SetBytes(bytes)
	return nil
}

// PrivateExponent is the CRT-form RSA private exponent (spec §4.3,
// magic 0x0854eab2), grounded on privateExponent_t_Marshal: four
// bn_prime_t limbs in a fixed order, present only when the build
// enables CRT_FORMAT_RSA (always true for this codec — config.Options
// has no DONTCARE gate for it, matching the original's #error on the
// NO branch).
type PrivateExponent struct {
	Q, DP, DQ, QInv BNPrime
}

func (p PrivateExponent) Marshal(w *wire.Writer) error {
	if err := frame.WriteHeader(w, privateExponentVer, privateExponentMagic); err != nil {
		return err
	}
	for _, limb := range []BNPrime{p.Q, p.DP, p.DQ, p.QInv} {
		if err := limb.Marshal(w); err != nil {
			return err
		}
	}
	return nil
}

func (p *PrivateExponent) Unmarshal(r *wire.Reader) error {
	if _, err := frame.ReadHeader(r, privateExponentMagic, privateExponentVer, "PRIVATE_EXPONENT"); err != nil {
		return err
	}
	for _, limb := range []*BNPrime{&p.Q, &p.DP, &p.DQ, &p.QInv} {
		if err := limb.Unmarshal(r); err != nil {
			return err
		}
	}
	return nil
}
