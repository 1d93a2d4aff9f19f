package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/wire"
)

func TestAnyHashStateRoundTrip(t *testing.T) {
	a := AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA256)), Num: 3, MDLen: 32}
	w := wire.NewWriter(0)
	require.NoError(t, a.Marshal(w, AlgSHA256))

	var got AnyHashState
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, AlgSHA256))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, a, got)
}

func TestHashStateRoundTrip(t *testing.T) {
	h := HashState{
		Type:    1,
		HashAlg: AlgSHA384,
		State:   AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA384)), Num: 1, MDLen: 48},
	}
	w := wire.NewWriter(0)
	require.NoError(t, h.Marshal(w))

	var got HashState
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, h, got)
}

func TestHashStateUnsupportedAlgFailsClosed(t *testing.T) {
	h := HashState{Type: 1, HashAlg: AlgID(0x9999)}
	w := wire.NewWriter(0)
	// Marshal a header and the tag manually since h.State.Marshal would
	// write only an ANY_HASH_STATE header, with no payload, for an
	// unrecognized block size.
	require.NoError(t, w.WriteU16(hashStateVer))
	require.NoError(t, w.WriteU32(hashStateMagic))
	require.NoError(t, w.WriteU16(h.Type))
	require.NoError(t, w.WriteU16(uint16(h.HashAlg)))

	var got HashState
	r := wire.NewReader(w.Bytes())
	err := got.Unmarshal(r)
	require.Error(t, err)
}

func TestHMACStateRoundTrip(t *testing.T) {
	h := HMACState{
		HashState: HashState{
			Type:    2,
			HashAlg: AlgSHA1,
			State:   AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA1)), Num: 0, MDLen: 20},
		},
		HMACKey: []byte("secret"),
	}
	w := wire.NewWriter(0)
	require.NoError(t, h.Marshal(w))

	var got HMACState
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, h, got)
}

func TestHashObjectHashSeqRoundTrip(t *testing.T) {
	h := HashObject{
		Type:             1,
		NameAlg:          AlgSHA256,
		ObjectAttributes: objAttrOccupied | objAttrHashSeq,
		Auth:             []byte("auth"),
		HashSeq:          true,
		HashStates: []HashState{
			{Type: 1, HashAlg: AlgSHA256, State: AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA256)), Num: 1, MDLen: 32}},
			{Type: 1, HashAlg: AlgSHA1, State: AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA1)), Num: 2, MDLen: 20}},
		},
	}
	w := wire.NewWriter(0)
	require.NoError(t, h.Marshal(w))

	got := HashObject{HashSeq: true}
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, 2))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, h.HashStates, got.HashStates)
	require.Equal(t, h.Auth, got.Auth)
}

func TestHashObjectHashSeqWrongCountFailsClosed(t *testing.T) {
	h := HashObject{
		Type: 1, NameAlg: AlgSHA256, HashSeq: true,
		HashStates: []HashState{
			{Type: 1, HashAlg: AlgSHA256, State: AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA256)), MDLen: 32}},
		},
	}
	w := wire.NewWriter(0)
	require.NoError(t, h.Marshal(w))

	got := HashObject{HashSeq: true}
	r := wire.NewReader(w.Bytes())
	err := got.Unmarshal(r, 2) // reader expects 2 enabled banks, writer only wrote 1
	require.Error(t, err)
}

func TestHashObjectHMACSeqRoundTrip(t *testing.T) {
	h := HashObject{
		Type: 2, NameAlg: AlgSHA256, ObjectAttributes: objAttrOccupied | objAttrHMACSeq,
		HMACSeq: true,
		HMACState: HMACState{
			HashState: HashState{Type: 1, HashAlg: AlgSHA256, State: AnyHashState{Intermediate: make([]byte, hashBlockSize(AlgSHA256)), MDLen: 32}},
			HMACKey:   []byte("key"),
		},
	}
	w := wire.NewWriter(0)
	require.NoError(t, h.Marshal(w))

	got := HashObject{HMACSeq: true}
	r := wire.NewReader(w.Bytes())
	require.NoError(t, got.Unmarshal(r, 0))
	require.Equal(t, 0, r.Remaining())
	require.Equal(t, h.HMACState, got.HMACState)
}
