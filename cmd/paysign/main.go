// Package main is a CLI for producing and checking signed payment payloads
// against a local keystore.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seqrpay/internal/keys"
	"seqrpay/internal/keys/directory"
	"seqrpay/internal/keys/securestore"
	"seqrpay/internal/payment/signer"
	"seqrpay/internal/payment/verifier"
	"seqrpay/internal/platform/logger"
	"seqrpay/internal/scan/classifier"
)

const (
	defaultDataDir = ".seqrpay"
	passphraseEnv  = "SEQRPAY_KEYSTORE_PASSPHRASE"
	maxPayloadSize = 64 << 10
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "sign":
		err = runSign(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "classify":
		err = runClassify(os.Args[2:])
	case "key":
		err = runKey(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type keystoreFlags struct {
	dataDir  string
	logLevel string
}

func (k *keystoreFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&k.dataDir, "data-dir", defaultDataDir, "Keystore directory")
	fs.StringVar(&k.logLevel, "log-level", "warn", "Log level")
}

func (k *keystoreFlags) manager() (*keys.Manager, *slog.Logger, error) {
	log := logger.NewWithWriter(os.Stderr, k.logLevel)
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		return nil, nil, fmt.Errorf("%s must be set", passphraseEnv)
	}
	store, err := securestore.NewFileStore(filepath.Join(k.dataDir, "keys"), passphrase)
	if err != nil {
		return nil, nil, err
	}
	index := keys.NewFileIndex(filepath.Join(k.dataDir, "public_keys.json"), keys.WithIndexLogger(log))
	return keys.NewManager(store, index, keys.WithLogger(log)), log, nil
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	var ks keystoreFlags
	ks.register(fs)
	payee := fs.String("payee", "", "Payee username (required)")
	amount := fs.String("amount", "", "Decimal amount, e.g. 12.50 (required)")
	currency := fs.String("currency", "", "ISO 4217 currency code (required)")
	_ = fs.Parse(args)

	manager, log, err := ks.manager()
	if err != nil {
		return err
	}
	env, err := signer.New(manager, signer.WithLogger(log)).BuildAndSign(context.Background(), signer.Request{
		Payee:    *payee,
		Amount:   *amount,
		Currency: *currency,
	})
	if err != nil {
		return err
	}
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var ks keystoreFlags
	ks.register(fs)
	directoryURL := fs.String("directory", "", "Key directory base URL; local keystore when empty")
	timeout := fs.Duration("timeout", 5*time.Second, "Directory lookup timeout")
	_ = fs.Parse(args)

	raw, err := readPayload()
	if err != nil {
		return err
	}
	payload := classifier.Classify(raw)
	if payload.Kind != classifier.KindSignedPayment {
		return fmt.Errorf("input is not a signed payment request (classified as %s)", payload.Kind)
	}

	var dir keys.Directory
	if *directoryURL != "" {
		dir = directory.NewClient(*directoryURL, *timeout)
	} else {
		manager, log, err := ks.manager()
		if err != nil {
			return err
		}
		dir = directory.NewLocalStub(manager, log)
	}

	outcome := verifier.New().Verify(context.Background(), payload.Envelope, dir)
	if err := printJSON(map[string]any{
		"outcome": outcome.String(),
		"display": payload.Display,
	}); err != nil {
		return err
	}
	if !outcome.Verified {
		os.Exit(2)
	}
	return nil
}

func runClassify(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	_ = fs.Parse(args)

	raw, err := readPayload()
	if err != nil {
		return err
	}
	payload := classifier.Classify(raw)
	out := map[string]any{"kind": payload.Kind}
	switch payload.Kind {
	case classifier.KindURL:
		out["url"] = payload.URL
	case classifier.KindSignedPayment:
		out["display"] = payload.Display
	}
	return printJSON(out)
}

func runKey(args []string) error {
	fs := flag.NewFlagSet("key", flag.ExitOnError)
	var ks keystoreFlags
	ks.register(fs)
	identity := fs.String("identity", "", "Identity whose public key to export (required)")
	ensure := fs.Bool("ensure", false, "Generate a keypair when none exists")
	_ = fs.Parse(args)

	manager, _, err := ks.manager()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if *ensure {
		if err := manager.EnsureKeypair(ctx, *identity); err != nil {
			return err
		}
	}
	pub, err := manager.PublicKey(ctx, *identity)
	if err != nil {
		return err
	}
	exported, err := pub.Export()
	if err != nil {
		return err
	}
	return printJSON(directory.Entry{Identity: *identity, PublicKey: exported})
}

func readPayload() (string, error) {
	raw, err := io.ReadAll(io.LimitReader(os.Stdin, maxPayloadSize))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("no payload on stdin")
	}
	return text, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println(`paysign - signed payment request tool

Usage:
  paysign <command> [flags]

Commands:
  sign       Sign a payment request and print the QR payload
  verify     Verify a payload read from stdin
  classify   Classify scanned text read from stdin
  key        Print an identity's exported public key

Environment:
  SEQRPAY_KEYSTORE_PASSPHRASE   passphrase protecting the local keystore

Examples:
  paysign sign -payee bob -amount 12.50 -currency USD
  paysign sign -payee bob -amount 5 -currency KZT | paysign verify
  echo "shop.example/pay" | paysign classify`)
}
