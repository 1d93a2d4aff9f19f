package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swtpm-project/statecodec/errs"
)

func TestPrimitivesRoundTrip(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.WriteU8(0x12))
	require.NoError(t, w.WriteBool(true))
	require.NoError(t, w.WriteBool(false))
	require.NoError(t, w.WriteU16(0xabcd))
	require.NoError(t, w.WriteU32(0xdeadbeef))
	require.NoError(t, w.WriteU64(0x0102030405060708))
	require.NoError(t, w.WriteArray([]byte{1, 2, 3}))

	r := NewReader(w.Bytes())
	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x12), u8)

	b1, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b1)

	b2, err := r.ReadBool()
	require.NoError(t, err)
	require.False(t, b2)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xabcd), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	arr, err := r.ReadArray()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, arr)

	require.Equal(t, 0, r.Remaining())
}

func TestBigEndianLayout(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.WriteU32(0x01020304))
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, w.Bytes())
}

func TestBoolAnyNonzeroIsTrue(t *testing.T) {
	r := NewReader([]byte{0xff})
	b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)
}

func TestInsufficientOnUnderflow(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadU32()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Insufficient))
}

func TestPatchU16(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.WriteU8(1))
	pos := w.Len()
	require.NoError(t, w.WriteU16(0))
	require.NoError(t, w.WriteRaw([]byte{1, 2, 3}))
	require.NoError(t, w.PatchU16(pos, 3))

	r := NewReader(w.Bytes())
	_, err := r.ReadU8()
	require.NoError(t, err)
	length, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(3), length)
}

func TestCursorDiscipline(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.WriteU64(42))
	require.NoError(t, w.WriteArray([]byte("hello")))
	buf := w.Bytes()

	r := NewReader(buf)
	_, err := r.ReadU64()
	require.NoError(t, err)
	_, err = r.ReadArray()
	require.NoError(t, err)
	require.Equal(t, len(buf), r.Pos())
}
