package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/validation"
)

// plainLogger writes bare messages to stdout, without timestamps or levels.
func plainLogger() *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{MessageKey: "msg"})
	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.InfoLevel))
}

var logger = plainLogger()

func main() {
	var (
		responseInput = flag.String("response", "", "Execute response JSON carrying receipt_cose_base64 (file path or inline JSON)")
		publicKeyPath = flag.String("public-key", "", "Path to receipt public key PEM file")
		keyResponse   = flag.String("key-response", "", "Key response JSON to take the public key from (file path or inline JSON)")
		action        = flag.String("action", "", "Expected action: instantiate, bid, close or retract")
		sender        = flag.String("sender", "", "Expected sender identity")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *responseInput == "" || (*publicKeyPath == "" && *keyResponse == "") {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --response and one of --public-key or --key-response are required\n")
		os.Exit(1)
	}

	var resp auctionapi.HostResponse
	if err := readJSONInput(*responseInput, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(2)
	}
	if resp.ReceiptCOSEBase64 == "" {
		fmt.Fprintf(os.Stderr, "Error reading response: missing receipt_cose_base64 field\n")
		os.Exit(2)
	}

	publicKey, err := readPublicKey(*publicKeyPath, *keyResponse)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	result, err := validation.ValidateReceipt(&validation.ReceiptValidationInput{
		ReceiptCOSEBase64: resp.ReceiptCOSEBase64,
		PublicKeyPEM:      publicKey,
		ReceiptID:         resp.ReceiptID,
		Action:            *action,
		Sender:            *sender,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Escrow Auction Receipt Verifier")
	logger.Info("")
	logger.Info("Verifies the signed receipt returned for a committed auction call.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  receipt-verifier --response <json> (--public-key <pem> | --key-response <json>) [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --response <json>                 Execute response (file path or inline JSON)")
	logger.Info("  --public-key <path>               Receipt public key PEM file")
	logger.Info("  --key-response <json>             Or: key_request response holding the public key")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --action <action>                 Expected action (instantiate, bid, close, retract)")
	logger.Info("  --sender <identity>               Expected sender")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

// readJSONInput accepts a file path or an inline JSON document.
func readJSONInput(input string, v any) error {
	data := []byte(input)
	if !strings.HasPrefix(strings.TrimSpace(input), "{") {
		fileData, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		data = fileData
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func readPublicKey(path, keyResponseInput string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	var keyResp auctionapi.KeyResponse
	if err := readJSONInput(keyResponseInput, &keyResp); err != nil {
		return "", err
	}
	if keyResp.PublicKey == "" {
		return "", fmt.Errorf("missing public_key field in key response")
	}
	return keyResp.PublicKey, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	logger.Info("Escrow Auction Receipt Verifier")
	logger.Info("===============================")
	logger.Info("")

	if r := result.Receipt; r != nil {
		logger.Info("Receipt:")
		logger.Info(fmt.Sprintf("  ID:       %s", r.ID))
		logger.Info(fmt.Sprintf("  Action:   %s", r.Action))
		logger.Info(fmt.Sprintf("  Sender:   %s", r.Sender))
		logger.Info(fmt.Sprintf("  Ledger:   %s", r.LedgerHash))
		for _, msg := range r.Messages {
			if msg.BankSend == nil {
				continue
			}
			for _, c := range msg.BankSend.Amount {
				logger.Info(fmt.Sprintf("  Payout:   %s%s -> %s", c.Amount, c.Denom, msg.BankSend.ToAddress))
			}
		}
		logger.Info("")
	}

	logger.Info("Details:")
	for _, d := range result.ValidationDetails {
		logger.Info("  " + d)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signature Valid:   %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Receipt ID Match:  %v", result.ReceiptIDMatch))
	logger.Info(fmt.Sprintf("  Action Match:      %v", result.ActionMatch))
	logger.Info(fmt.Sprintf("  Sender Match:      %v", result.SenderMatch))

	logger.Info("")
	logger.Info("===============================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) error {
	output := map[string]any{
		"valid":            result.IsValid(),
		"signature_valid":  result.SignatureValid,
		"receipt_id_match": result.ReceiptIDMatch,
		"action_match":     result.ActionMatch,
		"sender_match":     result.SenderMatch,
		"receipt":          result.Receipt,
		"details":          result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
