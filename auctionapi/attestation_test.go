package auctionapi

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func mockNitroCOSE(t *testing.T, userData []byte) COSE {
	t.Helper()
	doc := map[string]any{
		"module_id": "i-0abc-enc0123",
		"digest":    "SHA384",
		"timestamp": uint64(1_700_000_000_123),
		"pcrs": map[uint64][]byte{
			0: {0x3b, 0x4c},
			1: {0x4b, 0x4d},
			2: {0x2b, 0xdd},
		},
		"certificate": []byte("cert"),
		"cabundle":    [][]byte{[]byte("root"), []byte("intermediate")},
		"public_key":  []byte("pk"),
		"user_data":   userData,
		"nonce":       []byte("nonce-1"),
	}
	payload, err := cbor.Marshal(doc)
	assert.NoError(t, err)

	raw, err := cbor.Marshal([]any{[]byte{0xa1, 0x01, 0x38, 0x22}, map[string]any{}, payload, []byte{0x01}})
	assert.NoError(t, err)
	return raw
}

func TestParseAttestationDoc(t *testing.T) {
	doc, userData, err := mockNitroCOSE(t, []byte(`{"key_algorithm":"ECDSA-P384"}`)).ParseAttestationDoc()
	assert.NoError(t, err)

	check.Equal(t, "i-0abc-enc0123", doc.ModuleID)
	check.Equal(t, "SHA384", doc.DigestAlgorithm)
	check.Equal(t, int64(1_700_000_000_123), doc.Timestamp.UnixMilli())
	check.Equal(t, "3b4c", doc.PCRs.ImageFileHash)
	check.Equal(t, "2bdd", doc.PCRs.ApplicationHash)
	check.Equal(t, "", doc.PCRs.SigningCertHash)
	check.Equal(t, "Y2VydA==", doc.Certificate)
	check.Equal(t, 2, len(doc.CABundle))
	check.Equal(t, "nonce-1", doc.Nonce)
	check.Equal(t, `{"key_algorithm":"ECDSA-P384"}`, string(userData))
}

func TestCOSEPayload_RejectsMalformed(t *testing.T) {
	threeElements, err := cbor.Marshal([]any{[]byte{}, map[string]any{}, []byte{}})
	assert.NoError(t, err)
	_, err = COSE(threeElements).COSEPayload()
	check.Error(t, err)

	textPayload, err := cbor.Marshal([]any{[]byte{}, map[string]any{}, "not bytes", []byte{}})
	assert.NoError(t, err)
	_, err = COSE(textPayload).COSEPayload()
	check.Error(t, err)

	_, _, err = COSE([]byte{0xff}).ParseAttestationDoc()
	check.Error(t, err)
}
