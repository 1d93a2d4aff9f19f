package record

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/wire"
)

func samplePrivateExponent() PrivateExponent {
	mk := func(v int64) BNPrime { return BNPrime{Value: big.NewInt(v)} }
	return PrivateExponent{Q: mk(1), DP: mk(2), DQ: mk(3), QInv: mk(4)}
}

func TestObjectRoundTripRSAEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.RSA = true
	o := Object{
		PublicArea:      []byte{1, 2},
		Sensitive:       []byte{3, 4, 5},
		PrivateExponent: samplePrivateExponent(),
		QualifiedName:   []byte{6},
		EvictHandle:     0x81000001,
		Name:            []byte{7, 8},
	}

	w := wire.NewWriter(0)
	require.NoError(t, o.Marshal(w, cfg))

	var got Object
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, cfg))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, o.PublicArea, got.PublicArea)
	require.Equal(t, o.PrivateExponent.Q.Value, got.PrivateExponent.Q.Value)
	require.Equal(t, o.EvictHandle, got.EvictHandle)
}

func TestObjectRoundTripRSADisabledSkipsPrivateExponent(t *testing.T) {
	cfg := config.Default()
	cfg.RSA = false
	o := Object{
		PublicArea:    []byte{1},
		Sensitive:     []byte{2},
		QualifiedName: []byte{3},
		EvictHandle:   0x81000002,
		Name:          []byte{4},
	}

	w := wire.NewWriter(0)
	require.NoError(t, o.Marshal(w, cfg))

	var got Object
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, cfg))
	require.Equal(t, 0, r.Remaining())
	require.Nil(t, got.PrivateExponent.Q.Value)
	require.Equal(t, o.EvictHandle, got.EvictHandle)
}

func TestAnyObjectUnoccupiedRoundTrip(t *testing.T) {
	cfg := config.Default()
	a := AnyObject{Attributes: 0}

	w := wire.NewWriter(0)
	require.NoError(t, a.Marshal(w, cfg))

	var got AnyObject
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, cfg))
	require.Equal(t, 0, r.Remaining())
	require.False(t, got.Occupied())
}

func TestAnyObjectPlainRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.RSA = false
	a := AnyObject{
		Attributes: objAttrOccupied,
		Plain: Object{
			PublicArea: []byte{1, 2},
			Sensitive:  []byte{3},
			Name:       []byte{4},
		},
	}

	w := wire.NewWriter(0)
	require.NoError(t, a.Marshal(w, cfg))

	var got AnyObject
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, cfg))
	require.Equal(t, 0, r.Remaining())
	require.True(t, got.Occupied())
	require.False(t, got.IsSequence())
	require.Equal(t, a.Plain.PublicArea, got.Plain.PublicArea)
}

func TestAnyObjectHashSequenceRoundTrip(t *testing.T) {
	cfg := config.Default()
	numAlgs := len(EnabledBanks(cfg))
	states := make([]HashState, numAlgs)
	for i, alg := range EnabledBanks(cfg) {
		states[i] = HashState{Type: 1, HashAlg: alg, State: AnyHashState{Intermediate: make([]byte, hashBlockSize(alg)), MDLen: uint32(bankSize(alg))}}
	}
	a := AnyObject{
		Attributes: objAttrOccupied | objAttrHashSeq,
		NumHashAlg: numAlgs,
		Hash: HashObject{
			Type:    1,
			NameAlg: AlgSHA256,
			Auth:    []byte("auth"),
			HashSeq: true,
			HashStates: states,
		},
	}

	w := wire.NewWriter(0)
	require.NoError(t, a.Marshal(w, cfg))

	got := AnyObject{NumHashAlg: numAlgs}
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, cfg))
	require.Equal(t, 0, r.Remaining())
	require.True(t, got.IsSequence())
	require.Len(t, got.Hash.HashStates, numAlgs)
}
