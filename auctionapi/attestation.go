package auctionapi

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// PCRs holds the Nitro Enclaves platform configuration registers as hex strings.
type PCRs struct {
	ImageFileHash   string `json:"0"`
	KernelHash      string `json:"1"`
	ApplicationHash string `json:"2"`
	IAMRoleHash     string `json:"3"`
	InstanceIDHash  string `json:"4"`
	SigningCertHash string `json:"8,omitempty"`
}

// AttestationDoc is the decoded attestation document signed by the Nitro hypervisor.
type AttestationDoc struct {
	ModuleID        string    `json:"module_id"`
	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`
	Certificate     string    `json:"certificate"` // base64 DER
	CABundle        []string  `json:"cabundle"`    // base64 DER, root first
	PublicKey       string    `json:"public_key"`
	Nonce           string    `json:"nonce"`
}

// nitroDocument is the raw CBOR layout of the COSE payload produced by the NSM.
type nitroDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"` // unix milliseconds
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// COSEPayload returns element 2 of an untagged COSE_Sign1 array:
// [protected, unprotected, payload, signature].
func (c COSE) COSEPayload() ([]byte, error) {
	var coseArray []any
	if err := cbor.Unmarshal(c, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}
	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}
	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}
	return payload, nil
}

// ParseAttestationDoc decodes a Nitro attestation and returns the document and its raw user data.
func (c COSE) ParseAttestationDoc() (AttestationDoc, []byte, error) {
	payload, err := c.COSEPayload()
	if err != nil {
		return AttestationDoc{}, nil, err
	}

	var raw nitroDocument
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return AttestationDoc{}, nil, fmt.Errorf("decode attestation document: %w", err)
	}

	doc := AttestationDoc{
		ModuleID:        raw.ModuleID,
		Timestamp:       time.UnixMilli(int64(raw.Timestamp)).UTC(),
		DigestAlgorithm: raw.Digest,
		PCRs:            extractPCRs(raw.PCRs),
		Certificate:     base64.StdEncoding.EncodeToString(raw.Certificate),
		CABundle:        encodeCertificateBundle(raw.CABundle),
		PublicKey:       base64.StdEncoding.EncodeToString(raw.PublicKey),
		Nonce:           string(raw.Nonce),
	}
	return doc, raw.UserData, nil
}

func formatPCR(pcr []byte) string {
	if len(pcr) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", pcr)
}

func extractPCRs(raw map[uint64][]byte) PCRs {
	return PCRs{
		ImageFileHash:   formatPCR(raw[0]),
		KernelHash:      formatPCR(raw[1]),
		ApplicationHash: formatPCR(raw[2]),
		IAMRoleHash:     formatPCR(raw[3]),
		InstanceIDHash:  formatPCR(raw[4]),
		SigningCertHash: formatPCR(raw[8]),
	}
}

func encodeCertificateBundle(bundle [][]byte) []string {
	out := make([]string, len(bundle))
	for i, cert := range bundle {
		out[i] = base64.StdEncoding.EncodeToString(cert)
	}
	return out
}
