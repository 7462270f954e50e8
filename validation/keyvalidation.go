package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// ValidateKeyAttestation validates the Nitro attestation of the receipt signing key.
//
// Parameters:
//   - attestationCOSEBase64: KeyResponse.AttestationCOSEBase64
//   - expectedPublicKey: PEM public key the receipts will be verified with
//   - knownPCRs: accepted enclave image measurements
//
// The returned error is reserved for input that cannot be validated at all; failed checks
// are reported in the result (call result.IsValid()).
func ValidateKeyAttestation(attestationCOSEBase64 auctionapi.COSEBase64, expectedPublicKey string, knownPCRs []PCRSet) (*KeyValidationResult, error) {
	baseResult, userDataBytes, err := validateCommonAttestation(attestationCOSEBase64, knownPCRs)
	if err != nil {
		return nil, err
	}

	result := &KeyValidationResult{
		BaseValidationResult: *baseResult,
	}

	var userData auctionapi.KeyAttestationUserData
	if len(userDataBytes) > 0 {
		if err := json.Unmarshal(userDataBytes, &userData); err != nil {
			return nil, fmt.Errorf("parse user data: %w", err)
		}
	}

	if userData.PublicKey == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Public key missing from attestation")
		return result, nil
	}

	// PEM encoders differ on the trailing newline
	if strings.TrimSpace(expectedPublicKey) == strings.TrimSpace(userData.PublicKey) {
		result.PublicKeyMatch = true
		result.ValidationDetails = append(result.ValidationDetails, "Public key matches attestation")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, "Public key mismatch: provided key does not match attested key")
	}

	return result, nil
}
