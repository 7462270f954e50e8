package validation

import "github.com/cloudx-io/escrowauction/auctionapi"

// BaseValidationResult contains the checks common to every Nitro attestation
type BaseValidationResult struct {
	PCRsValid         bool
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

// KeyValidationResult contains validation results for a receipt key attestation
type KeyValidationResult struct {
	BaseValidationResult
	PublicKeyMatch bool
}

// IsValid returns true if all key validation checks passed
func (r *KeyValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid && r.PublicKeyMatch
}

// ReceiptValidationResult contains validation results for a signed execute receipt.
// Expectations left empty in the input are reported as matching.
type ReceiptValidationResult struct {
	SignatureValid    bool
	ReceiptIDMatch    bool
	ActionMatch       bool
	SenderMatch       bool
	Receipt           *auctionapi.Receipt
	ValidationDetails []string
}

func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.ReceiptIDMatch && r.ActionMatch && r.SenderMatch
}

// PCRSet represents a known-good set of PCR measurements
type PCRSet struct {
	PCR0       string `json:"pcr0"`
	PCR1       string `json:"pcr1"`
	PCR2       string `json:"pcr2"`
	CommitHash string `json:"commit_hash"` // commit used to build the enclave image
}

// PCRConfig represents the PCR configuration file structure
type PCRConfig struct {
	PCRSets []PCRSet `json:"pcr_sets"`
}
