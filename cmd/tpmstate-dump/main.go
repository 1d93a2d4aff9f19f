// tpmstate-dump exercises the state codec against an in-process
// MemoryNVRAM backend: it round-trips a freshly manufactured
// PERSISTENT_ALL or VOLATILE_STATE blob and reports whether Marshal and
// Unmarshal both succeed (the decoded values are not compared), the way a CI smoke test for the real TPM emulator's
// snapshot/restore path would.
//
// Usage: tpmstate-dump -blob=persistent-all
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"v.io/x/lib/vlog"

	"github.com/swtpm-project/statecodec/backend"
	"github.com/swtpm-project/statecodec/blob"
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/record"
	"github.com/swtpm-project/statecodec/wire"
)

var (
	blobFlag = flag.String("blob", "persistent-all", "which blob to round-trip: persistent-all or volatile-state")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	vlog.Infof("tpmstate-dump: starting, blob=%s", *blobFlag)
	if err := run(*blobFlag); err != nil {
		log.Error.Printf("tpmstate-dump: %v", err)
		vlog.Infof("tpmstate-dump: failed")
		os.Exit(1)
	}
	vlog.Infof("tpmstate-dump: round-trip OK")
}

func run(which string) error {
	cfg := config.Default()
	mem := backend.NewMemoryNVRAM(intToUint32(cfg.NVUserDynamicSize), intToUint32(cfg.RAMIndexSpace))

	switch which {
	case "persistent-all":
		return roundTripPersistentAll(cfg, mem)
	case "volatile-state":
		return roundTripVolatileState(cfg, mem)
	default:
		return fmt.Errorf("unknown -blob value %q", which)
	}
}

func intToUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// wellFormedPCR manufactures a PCR with every bank this build enables
// sized to cfg.NumStaticPCR, the shape PCR.Marshal requires (record/pcr.go):
// a zero-value PCR has a nil Banks map and fails PCR.Marshal's bank-size
// check, so neither blob can be round-tripped from a zero-value
// StateClearData/VolatileState without one.
func wellFormedPCR(cfg config.Options) record.PCR {
	banks := make(map[record.AlgID][]byte)
	for _, alg := range record.EnabledBanks(cfg) {
		banks[alg] = make([]byte, cfg.NumStaticPCR*pcrBankSize(alg))
	}
	return record.PCR{Banks: banks}
}

// pcrBankSize mirrors the digest width record.bankSize computes
// internally; the state codec keeps that table unexported, so the CLI's
// own fixture needs its own copy to size wellFormedPCR's banks.
func pcrBankSize(alg record.AlgID) int {
	switch alg {
	case record.AlgSHA1:
		return 20
	case record.AlgSHA256, record.AlgSM3256:
		return 32
	case record.AlgSHA384:
		return 48
	case record.AlgSHA512:
		return 64
	default:
		return 0
	}
}

// wellFormedPCRPolicy and wellFormedAuthValue manufacture the
// fixed-cardinality PCRPolicy/PCRAuthValue tables PERSISTENT_DATA and
// STATE_CLEAR_DATA require; a zero-value table's cardinality (0) never
// matches cfg's, so these round-trips need real data the same way
// wellFormedPCR does for the bank table.
func wellFormedPCRPolicy(cfg config.Options) record.PCRPolicy {
	hashAlg := make([]record.AlgID, cfg.NumPolicyPCRGroup)
	policy := make([][]byte, cfg.NumPolicyPCRGroup)
	for i := range hashAlg {
		hashAlg[i] = record.AlgSHA256
		policy[i] = make([]byte, 32)
	}
	return record.PCRPolicy{HashAlg: hashAlg, Policy: policy}
}

func wellFormedAuthValue(cfg config.Options) record.PCRAuthValue {
	auth := make([][]byte, cfg.NumAuthValuePCRGroup)
	for i := range auth {
		auth[i] = make([]byte, 32)
	}
	return record.PCRAuthValue{AuthValue: auth}
}

func roundTripPersistentAll(cfg config.Options, mem *backend.MemoryNVRAM) error {
	pd := record.PersistentData{PCRPolicies: wellFormedPCRPolicy(cfg)}
	if err := mem.StorePersistentData(pd); err != nil {
		return err
	}
	scd := record.StateClearData{
		PCRSave:       wellFormedPCR(cfg),
		PCRAuthValues: wellFormedAuthValue(cfg),
	}
	if err := mem.StoreStateClearData(scd); err != nil {
		return err
	}

	w := wire.NewWriter(0)
	if err := blob.MarshalPersistentAll(w, cfg, mem, mem, mem); err != nil {
		return err
	}
	r := wire.NewReader(w.Bytes())
	return blob.UnmarshalPersistentAll(r, cfg, mem, mem, mem)
}

func roundTripVolatileState(cfg config.Options, mem *backend.MemoryNVRAM) error {
	v := blob.VolatileState{
		StateClear: record.StateClearData{
			PCRSave:       wellFormedPCR(cfg),
			PCRAuthValues: wellFormedAuthValue(cfg),
		},
		PCRBankTable: wellFormedPCR(cfg),
	}

	w := wire.NewWriter(0)
	if err := blob.MarshalVolatileState(w, cfg, v, mem); err != nil {
		return err
	}
	r := wire.NewReader(w.Bytes())
	_, err := blob.UnmarshalVolatileState(r, cfg, mem)
	return err
}
