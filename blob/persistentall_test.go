package blob

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/record"
	"github.com/swtpm-project/statecodec/wire"
)

func samplePersistentData(cfg config.Options) record.PersistentData {
	return record.PersistentData{
		DisableClear:      false,
		OwnerAlg:          0x000b,
		EndorsementAlg:    0x000b,
		LockoutAlg:        0x000b,
		OwnerPolicy:       []byte{0xaa, 0xbb},
		EndorsementPolicy: []byte{0xcc},
		LockoutPolicy:     nil,
		OwnerAuth:         []byte("owner"),
		EndorsementAuth:   []byte("endorsement"),
		LockoutAuth:       []byte("lockout"),
		EPSeed:            make([]byte, 32),
		SPSeed:            make([]byte, 32),
		PPSeed:            make([]byte, 32),
		PHProof:           make([]byte, 32),
		SHProof:           make([]byte, 32),
		EHProof:           make([]byte, 32),
		TotalResetCount:   7,
		ResetCount:        3,
		PCRPolicies: record.PCRPolicy{
			HashAlg: []record.AlgID{record.AlgSHA256},
			Policy:  [][]byte{make([]byte, 32)},
		},
		PCRAllocated:       []byte{0x01, 0x02, 0x03},
		PPList:             []byte{0x5a},
		FailedTries:        0,
		MaxTries:           3,
		RecoveryTime:       1000,
		LockoutRecovery:    1000,
		LockOutAuthEnabled: true,
		OrderlyState:       1,
		AuditCommands:      append([]byte{0x01, 0x02}, make([]byte, 30)...),
		AuditHashAlg:       0x000b,
		AuditCounter:       42,
		AlgorithmSet:       1,
		FirmwareV1:         100,
		FirmwareV2:         200,
		TimeEpoch:          555,
	}
}

func TestPersistentAllRoundTrip(t *testing.T) {
	cfg := config.Default()
	mem := backend.NewMemoryNVRAM(1<<20, 1<<16)

	pd := samplePersistentData(cfg)
	require.NoError(t, mem.StorePersistentData(pd))

	od := record.OrderlyData{
		Clock:         1234,
		ClockSafe:     1,
		SelfHealTimer: 10,
		LockoutTimer:  20,
		Time:          30,
	}
	require.NoError(t, mem.StoreOrderlyData(od))

	srd := record.StateResetData{
		NullProof:      []byte{1, 2, 3},
		NullSeed:       make([]byte, 32),
		ClearCount:     1,
		ContextArray:   []byte{4, 5},
		ContextCounter: 9,
		RestartCount:   2,
		PCRCounter:     5,
		CommitCounter:  11,
		CommitNonce:    []byte{6},
		CommitArray:    []byte{7, 8},
	}
	require.NoError(t, mem.StoreStateResetData(srd))

	scd := record.StateClearData{
		SHEnable:    true,
		EHEnable:    true,
		PHEnableNV:  true,
		PlatformAlg: 0x000b,
		PCRSave:     fullPCR(cfg),
		PCRAuthValues: record.PCRAuthValue{
			AuthValue: [][]byte{make([]byte, 32)},
		},
	}
	require.NoError(t, mem.StoreStateClearData(scd))

	require.NoError(t, mem.Put(backend.IndexRAMEntry{Handle: 0x01800001, Attributes: 3, Data: []byte{1, 2}}))

	require.NoError(t, mem.StoreNVIndex(0x01000001, record.NVIndex{PublicArea: []byte{1}, AuthValue: []byte{2}}, []byte{3, 4}))
	require.NoError(t, mem.SetMaxCount(99))

	w := wire.NewWriter(0)
	require.NoError(t, MarshalPersistentAll(w, cfg, mem, mem, mem))

	out := backend.NewMemoryNVRAM(1<<20, 1<<16)
	r := wire.NewReader(w.Bytes())
	require.NoError(t, UnmarshalPersistentAll(r, cfg, out, out, out))
	require.Equal(t, 0, r.Remaining())

	gotPD, err := out.LoadPersistentData()
	require.NoError(t, err)
	require.Equal(t, pd.OwnerAuth, gotPD.OwnerAuth)
	require.Equal(t, pd.TotalResetCount, gotPD.TotalResetCount)
	require.Equal(t, pd.PPList, gotPD.PPList[:len(pd.PPList)])

	gotOD, err := out.LoadOrderlyData()
	require.NoError(t, err)
	require.Equal(t, od.Clock, gotOD.Clock)
	require.Equal(t, od.SelfHealTimer, gotOD.SelfHealTimer)

	handles, err := out.Handles()
	require.NoError(t, err)
	require.Equal(t, []uint32{0x01000001}, handles)

	require.Equal(t, uint64(99), out.MaxCount())
}

func TestPersistentAllCompileConstantMismatchFailsClosed(t *testing.T) {
	writerCfg := config.Default()
	mem := backend.NewMemoryNVRAM(1<<20, 1<<16)
	require.NoError(t, mem.StorePersistentData(samplePersistentData(writerCfg)))
	require.NoError(t, mem.StoreOrderlyData(record.OrderlyData{}))
	require.NoError(t, mem.StoreStateResetData(record.StateResetData{}))
	require.NoError(t, mem.StoreStateClearData(record.StateClearData{PCRSave: fullPCR(writerCfg)}))

	w := wire.NewWriter(0)
	require.NoError(t, MarshalPersistentAll(w, writerCfg, mem, mem, mem))

	readerCfg := config.Default()
	readerCfg.NumStaticPCR = 1 // disagrees with the writer's manifest

	out := backend.NewMemoryNVRAM(1<<20, 1<<16)
	r := wire.NewReader(w.Bytes())
	err := UnmarshalPersistentAll(r, readerCfg, out, out, out)
	require.Error(t, err)
}
