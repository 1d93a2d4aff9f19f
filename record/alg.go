// Package record implements the composite on-wire records of the state
// codec: the fixed-layout and algorithm-tagged structures that sit
// between the framed-record layer (package frame) and the four
// top-level blobs (package blob).
package record

// AlgID mirrors the TPM_ALG_ID values NVMarshal.c switches on when
// tagging a PCR bank or a hash-state union. Only the algorithms
// plausibly gated by config.Options are named; anything else on the
// wire is BadParameter.
type AlgID uint16

const (
	AlgNull   AlgID = 0x0010
	AlgSHA1   AlgID = 0x0004
	AlgSHA256 AlgID = 0x000b
	AlgSHA384 AlgID = 0x000c
	AlgSHA512 AlgID = 0x000d
	AlgSM3256 AlgID = 0x0012
)
