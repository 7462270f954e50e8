package auctionapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// COSE is a raw COSE_Sign1 message: a signed receipt or a Nitro attestation.
type COSE []byte

// COSEBase64 is standard base64 of COSE bytes, used in JSON envelopes.
type COSEBase64 string

// COSEGzip is URL-safe unpadded base64 of gzipped COSE bytes, for query strings and headers.
type COSEGzip string

func (c COSE) EncodeBase64() COSEBase64 {
	return COSEBase64(base64.StdEncoding.EncodeToString(c))
}

// EncodeURLSafe encodes without padding so the result can be placed in a URL as is.
func (c COSE) EncodeURLSafe() COSEBase64 {
	return COSEBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip gzips the message and encodes it URL-safe.
func (c COSE) CompressGzip() (COSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(c); err != nil {
		return "", fmt.Errorf("failed to gzip COSE bytes: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return COSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (b COSEBase64) String() string { return string(b) }

// Decode accepts both the standard padded and the URL-safe unpadded alphabets.
func (b COSEBase64) Decode() (COSE, error) {
	if data, err := base64.StdEncoding.DecodeString(string(b)); err == nil {
		return data, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return data, nil
}

// CompressGzip re-encodes a base64 message in the compressed URL-safe form.
func (b COSEBase64) CompressGzip() (COSEGzip, error) {
	data, err := b.Decode()
	if err != nil {
		return "", err
	}
	return data.CompressGzip()
}

func (g COSEGzip) String() string { return string(g) }

func (g COSEGzip) Decompress() (COSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}
	return data, nil
}

// ParseReceipt decodes the receipt carried by a tagged COSE_Sign1 message without
// checking its signature. Use validation.VerifyReceipt to verify it.
func (c COSE) ParseReceipt() (*Receipt, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(c); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}
	var receipt Receipt
	if err := cbor.Unmarshal(msg.Payload, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &receipt, nil
}
