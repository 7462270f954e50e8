package validation

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

var testReceipt = auctionapi.Receipt{
	ID:     "0b6b1d4e-8f1e-4f7e-bb43-2b2c4c3f6a10",
	Action: "bid",
	Sender: "addr_alice",
	Funds:  []auctionapi.Coin{{Denom: "uescrow", Amount: "10000"}},
	Messages: []auctionapi.Message{{BankSend: &auctionapi.BankSend{
		ToAddress: "addr_owner",
		Amount:    []auctionapi.Coin{{Denom: "uescrow", Amount: "100"}},
	}}},
	Attributes: []auctionapi.Attribute{{Key: "action", Value: "bid"}, {Key: "fee", Value: "100"}},
	Timestamp:  1700000000,
}

func TestVerifyReceipt(t *testing.T) {
	key := newP384Key(t)
	signed := signReceipt(t, key, testReceipt)

	got, err := VerifyReceipt(signed, publicKeyPEM(t, key))
	assert.NoError(t, err)
	check.Equal(t, testReceipt, *got)
}

func TestVerifyReceipt_WrongKey(t *testing.T) {
	signed := signReceipt(t, newP384Key(t), testReceipt)

	_, err := VerifyReceipt(signed, publicKeyPEM(t, newP384Key(t)))
	check.Error(t, err)
}

func TestVerifyReceipt_TamperedPayload(t *testing.T) {
	key := newP384Key(t)
	signed := signReceipt(t, key, testReceipt)

	// Flip one byte of the payload region
	tampered := append(auctionapi.COSE(nil), signed...)
	tampered[len(tampered)/2] ^= 0x01

	_, err := VerifyReceipt(tampered, publicKeyPEM(t, key))
	check.Error(t, err)
}

func TestParsePublicKeyPEM_Rejects(t *testing.T) {
	_, err := ParsePublicKeyPEM("not a pem")
	check.Error(t, err)

	_, err = ParsePublicKeyPEM("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")
	check.Error(t, err)
}

func TestValidateReceipt(t *testing.T) {
	key := newP384Key(t)
	pemKey := publicKeyPEM(t, key)
	encoded := signReceipt(t, key, testReceipt).EncodeBase64()

	t.Run("matching expectations", func(t *testing.T) {
		result, err := ValidateReceipt(&ReceiptValidationInput{
			ReceiptCOSEBase64: encoded,
			PublicKeyPEM:      pemKey,
			ReceiptID:         testReceipt.ID,
			Action:            "bid",
			Sender:            "addr_alice",
		})
		assert.NoError(t, err)
		check.True(t, result.IsValid())
		check.Equal(t, testReceipt.ID, result.Receipt.ID)
	})

	t.Run("no expectations", func(t *testing.T) {
		result, err := ValidateReceipt(&ReceiptValidationInput{ReceiptCOSEBase64: encoded, PublicKeyPEM: pemKey})
		assert.NoError(t, err)
		check.True(t, result.IsValid())
	})

	t.Run("action mismatch", func(t *testing.T) {
		result, err := ValidateReceipt(&ReceiptValidationInput{
			ReceiptCOSEBase64: encoded,
			PublicKeyPEM:      pemKey,
			Action:            "retract",
		})
		assert.NoError(t, err)
		check.True(t, result.SignatureValid)
		check.False(t, result.ActionMatch)
		check.False(t, result.IsValid())
	})

	t.Run("signed by another key", func(t *testing.T) {
		result, err := ValidateReceipt(&ReceiptValidationInput{
			ReceiptCOSEBase64: encoded,
			PublicKeyPEM:      publicKeyPEM(t, newP384Key(t)),
		})
		assert.NoError(t, err)
		check.False(t, result.SignatureValid)
		check.True(t, result.Receipt == nil)
	})

	t.Run("undecodable input", func(t *testing.T) {
		_, err := ValidateReceipt(&ReceiptValidationInput{ReceiptCOSEBase64: "!!!", PublicKeyPEM: pemKey})
		check.Error(t, err)
	})
}
