package blob

import (
	"github.com/swtpm-project/statecodec/config"
	"github.com/swtpm-project/statecodec/record"
)

// bankSize mirrors record's unexported table for building well-formed
// test fixtures without reaching into package record's internals.
func bankSize(alg record.AlgID) int {
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

func fullPCR(cfg config.Options) record.PCR {
	banks := make(map[record.AlgID][]byte)
	for _, alg := range record.EnabledBanks(cfg) {
		banks[alg] = make([]byte, cfg.NumStaticPCR*bankSize(alg))
	}
	return record.PCR{Banks: banks}
}

func fullPCRAuthValue(cfg config.Options) record.PCRAuthValue {
	auth := make([][]byte, cfg.NumAuthValuePCRGroup)
	for i := range auth {
		auth[i] = make([]byte, 32)
	}
	return record.PCRAuthValue{AuthValue: auth}
}
