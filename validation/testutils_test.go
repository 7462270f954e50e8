package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

func newP384Key(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	return key
}

func publicKeyPEM(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	assert.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// signReceipt produces a tagged COSE_Sign1 receipt the way the host does.
func signReceipt(t *testing.T, key *ecdsa.PrivateKey, receipt auctionapi.Receipt) auctionapi.COSE {
	t.Helper()
	payload, err := cbor.Marshal(receipt)
	assert.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES384, key)
	assert.NoError(t, err)
	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES384)
	msg.Payload = payload
	assert.NoError(t, msg.Sign(rand.Reader, nil, signer))

	raw, err := msg.MarshalCBOR()
	assert.NoError(t, err)
	return raw
}

var testPCRs = map[uint64][]byte{
	0: {0x3b, 0x4c, 0xef},
	1: {0x4b, 0x4d, 0x5b},
	2: {0x2b, 0xdd, 0x28},
}

var knownTestPCRs = []PCRSet{
	{PCR0: "aaaa", PCR1: "bbbb", PCR2: "cccc", CommitHash: "old"},
	{PCR0: "3b4cef", PCR1: "4b4d5b", PCR2: "2bdd28", CommitHash: "abc123"},
}

// mockKeyAttestation builds an untagged Nitro COSE_Sign1 signed by a self-signed P-384
// certificate, embedding receiptKeyPEM in the user data.
func mockKeyAttestation(t *testing.T, receiptKeyPEM string) auctionapi.COSEBase64 {
	t.Helper()
	signingKey := newP384Key(t)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "mock-enclave"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &signingKey.PublicKey, signingKey)
	assert.NoError(t, err)

	userData, err := json.Marshal(auctionapi.KeyAttestationUserData{
		KeyAlgorithm: "ECDSA-P384",
		PublicKey:    receiptKeyPEM,
		KeyID:        "key-1",
	})
	assert.NoError(t, err)

	payload, err := cbor.Marshal(map[string]any{
		"module_id":   "test-enclave",
		"digest":      "SHA384",
		"timestamp":   uint64(time.Now().UnixMilli()),
		"pcrs":        testPCRs,
		"certificate": certDER,
		"cabundle":    [][]byte{certDER},
		"public_key":  []byte{},
		"user_data":   userData,
		"nonce":       []byte("nonce"),
	})
	assert.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES384, signingKey)
	assert.NoError(t, err)
	msg := &cose.UntaggedSign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{cose.HeaderLabelAlgorithm: cose.AlgorithmES384},
		},
		Payload: payload,
	}
	assert.NoError(t, msg.Sign(rand.Reader, nil, signer))

	raw, err := msg.MarshalCBOR()
	assert.NoError(t, err)
	return auctionapi.COSE(raw).EncodeBase64()
}
