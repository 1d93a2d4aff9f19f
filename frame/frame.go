// Package frame implements the framed-record and skip-block layers of
// the state codec (spec §4.2): every composite record begins with a
// 6-byte (version, magic) header, and every compile-time-optional
// sub-region is bracketed by a present-flag and a back-patched length so
// a reader that doesn't need it can skip over it untouched.
//
// This is a direct generalization of NVMarshal.c's block_skip struct and
// BLOCK_SKIP_WRITE_PUSH/POP/BLOCK_SKIP_READ macros: the nesting depth-5
// nested fixup stack becomes SkipWriter.stack, and the compile-time
// #ifdef gate on each site becomes a runtime bool supplied by the caller
// (config.Options, see the config package) rather than a build tag.
package frame

import (
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/wire"
)

// Header is the 6-byte record frame: a 16-bit version followed by a
// 32-bit magic.
type Header struct {
	Version uint16
	Magic   uint32
}

// WriteHeader emits the frame for a record of the given magic/version.
func WriteHeader(w *wire.Writer, version uint16, magic uint32) error {
	if err := w.WriteU16(version); err != nil {
		return err
	}
	return w.WriteU32(magic)
}

// ReadHeader reads a frame, validating the magic exactly and requiring
// the stored version to be <= currentVersion (spec §4.2 (a)/(b)).
// recordName is used only for diagnostics.
func ReadHeader(r *wire.Reader, expectMagic uint32, currentVersion uint16, recordName string) (Header, error) {
	var h Header
	version, err := r.ReadU16()
	if err != nil {
		return h, err
	}
	magic, err := r.ReadU32()
	if err != nil {
		return h, err
	}
	h.Version, h.Magic = version, magic
	if magic != expectMagic {
		return h, errs.New(errs.BadTag, "%s: invalid magic, expected 0x%08x, got 0x%08x", recordName, expectMagic, magic)
	}
	if version > currentVersion {
		return h, errs.New(errs.BadVersion, "%s: unsupported version, expected <= %d, got %d", recordName, currentVersion, version)
	}
	return h, nil
}

const maxSkipDepth = 5

// SkipWriter tracks the pending skip-block fixups for one blob-level
// Marshal call. Depth is bounded at 5, matching spec §4.2's nesting
// ceiling.
type SkipWriter struct {
	w     *wire.Writer
	stack []int
}

// NewSkipWriter returns a SkipWriter bound to w.
func NewSkipWriter(w *wire.Writer) *SkipWriter {
	return &SkipWriter{w: w, stack: make([]int, 0, maxSkipDepth)}
}

// Push emits the present-flag and a placeholder length, remembering the
// placeholder's offset for Pop to back-patch later.
func (s *SkipWriter) Push(hasBlock bool) error {
	if len(s.stack) >= maxSkipDepth {
		return errs.New(errs.BadParameter, "skip block nesting exceeds depth %d", maxSkipDepth)
	}
	if err := s.w.WriteBool(hasBlock); err != nil {
		return err
	}
	offset := s.w.Len()
	if err := s.w.WriteU16(0); err != nil {
		return err
	}
	s.stack = append(s.stack, offset)
	return nil
}

// Pop back-patches the most recently pushed placeholder with the number
// of bytes written since it was reserved.
func (s *SkipWriter) Pop() error {
	if len(s.stack) == 0 {
		return errs.New(errs.BadParameter, "skip writer: Pop without matching Push")
	}
	top := len(s.stack) - 1
	offset := s.stack[top]
	s.stack = s.stack[:top]
	skipLen := s.w.Len() - (offset + 2)
	return s.w.PatchU16(offset, uint16(skipLen))
}

// Close asserts every Push was matched by a Pop; called at blob end per
// spec §4.2.
func (s *SkipWriter) Close() error {
	if len(s.stack) != 0 {
		return errs.New(errs.BadParameter, "skip writer: %d block(s) still open at blob end", len(s.stack))
	}
	return nil
}

// ReadSkip implements the reader protocol from spec §4.2: it reads the
// present-flag and length, fails if a mandatory block is missing, skips
// an unneeded-but-present block, and otherwise reports that the caller
// should parse the region inline. recordName/fieldName name the guarded
// region for diagnostics.
func ReadSkip(r *wire.Reader, needsBlock bool, recordName, fieldName string) (shouldParse bool, err error) {
	has, err := r.ReadBool()
	if err != nil {
		return false, err
	}
	skipLen, err := r.ReadU16()
	if err != nil {
		return false, err
	}
	switch {
	case needsBlock && !has:
		return false, errs.New(errs.BadParameter, "%s needs missing %s", recordName, fieldName)
	case has && !needsBlock:
		if err := r.Skip(int(skipLen)); err != nil {
			return false, err
		}
		return false, nil
	default:
		return needsBlock && has, nil
	}
}
