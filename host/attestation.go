package host

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// AttesterFunc returns the attester for a request, or an error outside an enclave.
type AttesterFunc func() (EnclaveAttester, error)

// NitroAttester opens the Nitro Security Module handle.
func NitroAttester() (EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate secure nonce: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// GenerateKeyAttestation binds the receipt public key to the enclave measurements.
func GenerateKeyAttestation(attester EnclaveAttester, km *KeyManager) (auctionapi.COSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	publicKeyPEM, err := km.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key to PEM: %w", err)
	}

	userDataBytes, err := json.Marshal(&auctionapi.KeyAttestationUserData{
		KeyAlgorithm: KeyAlgorithm,
		PublicKey:    publicKeyPEM,
		KeyID:        km.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key user data: %w", err)
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(nonce),
	})
	if err != nil {
		return nil, fmt.Errorf("NSM key attestation failed: %w", err)
	}

	return attestationCBOR, nil
}

// HandleKeyRequest returns the receipt public key, attested when an attester is available.
func HandleKeyRequest(attesterFn AttesterFunc, km *KeyManager, logger *zap.Logger) (*auctionapi.KeyResponse, error) {
	publicKeyPEM, err := km.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	resp := &auctionapi.KeyResponse{
		Type:         "key_response",
		PublicKey:    publicKeyPEM,
		KeyAlgorithm: KeyAlgorithm,
	}

	attester, err := attesterFn()
	if err != nil {
		logger.Warn("Returning unattested receipt key", zap.Error(err))
		return resp, nil
	}

	attestation, err := GenerateKeyAttestation(attester, km)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key attestation: %w", err)
	}
	resp.AttestationCOSEBase64 = attestation.EncodeBase64()

	logger.Info("Key attestation generated", zap.Int("bytes", len(attestation)))
	return resp, nil
}
