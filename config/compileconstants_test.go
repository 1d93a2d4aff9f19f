package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swtpm-project/statecodec/errs"
	"github.com/swtpm-project/statecodec/wire"
)

func TestCompileConstantsRoundTrip(t *testing.T) {
	o := Default()
	w := wire.NewWriter(0)
	require.NoError(t, o.MarshalCompileConstants(w))

	r := wire.NewReader(w.Bytes())
	require.NoError(t, o.UnmarshalCompileConstants(r))
	require.Equal(t, 0, r.Remaining())
}

func TestCompileConstantsMismatchIsBadParameter(t *testing.T) {
	writer := Default()
	w := wire.NewWriter(0)
	require.NoError(t, writer.MarshalCompileConstants(w))

	reader := Default()
	reader.NumStaticPCR = 16 // disagrees with the value baked into w
	r := wire.NewReader(w.Bytes())
	err := reader.UnmarshalCompileConstants(r)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.BadParameter))
}

func TestCompileConstantsTruncatedArrayIsInsufficient(t *testing.T) {
	o := Default()
	w := wire.NewWriter(0)
	require.NoError(t, o.MarshalCompileConstants(w))
	buf := w.Bytes()
	// Truncate the stream so only part of the array is present; the
	// element count itself is untouched, so the reader's per-field
	// unmarshal underflows with Insufficient rather than silently
	// accepting a short array.
	short := buf[:len(buf)-4]

	r := wire.NewReader(short)
	err := o.UnmarshalCompileConstants(r)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Insufficient))
}
