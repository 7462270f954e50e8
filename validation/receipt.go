package validation

import (
	"fmt"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// ReceiptValidationInput contains the inputs for validating an execute receipt
type ReceiptValidationInput struct {
	ReceiptCOSEBase64 auctionapi.COSEBase64
	PublicKeyPEM      string // from KeyResponse.PublicKey
	ReceiptID         string // optional, HostResponse.ReceiptID
	Action            string // optional: bid, close or retract
	Sender            string // optional
}

// ValidateReceipt verifies a receipt signature and compares it with the caller's
// expectations. Verification failures are reported in the result; the error is reserved
// for input that cannot be decoded.
func ValidateReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	coseBytes, err := input.ReceiptCOSEBase64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if _, err := ParsePublicKeyPEM(input.PublicKeyPEM); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	result := &ReceiptValidationResult{ValidationDetails: []string{}}

	receipt, err := VerifyReceipt(coseBytes, input.PublicKeyPEM)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt signature invalid: %v", err))
		return result, nil
	}
	result.SignatureValid = true
	result.Receipt = receipt
	result.ValidationDetails = append(result.ValidationDetails, "Receipt signature verified")

	result.ReceiptIDMatch = matchField(result, "Receipt ID", input.ReceiptID, receipt.ID)
	result.ActionMatch = matchField(result, "Action", input.Action, receipt.Action)
	result.SenderMatch = matchField(result, "Sender", input.Sender, receipt.Sender)

	return result, nil
}

func matchField(result *ReceiptValidationResult, name, want, got string) bool {
	switch {
	case want == "":
		return true
	case want == got:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("%s matches: %s", name, got))
		return true
	default:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("%s mismatch: expected %s, got %s", name, want, got))
		return false
	}
}
