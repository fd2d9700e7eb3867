// Command coordinator is a local driver over internal/coordinator: it
// exposes the seven operations of the coordination contract as
// subcommands, wiring the HTTP chain gateway, in-memory session store,
// and per-deployment defaults read from the environment. An HTTP/SSE
// frontend is an explicit non-goal left to an external collaborator;
// this binary is for manual operation and scripting.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/cli"
	"github.com/arclabs/msigcoord/internal/config"
	"github.com/arclabs/msigcoord/internal/coordinator"
	"github.com/arclabs/msigcoord/internal/gateway"
	"github.com/arclabs/msigcoord/internal/logging"
	"github.com/arclabs/msigcoord/internal/session"
	"github.com/arclabs/msigcoord/internal/txbuilder"
	"go.uber.org/zap"
)

// logger is set once in main and used by fail() for structured
// diagnostics regardless of which subcommand is running.
var logger *zap.Logger

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return
	}
	if cmd == "version" {
		fmt.Println("coordinator dev")
		return
	}

	logger = logging.New(os.Getenv("MSIG_LOG_DEBUG") == "true")
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		fail(err)
	}

	gw := gateway.NewHTTPGateway(cfg.IndexerBaseURL, cfg.IndexerProjectID, time.Duration(cfg.IndexerTimeoutSec)*time.Second, logger)
	defer gw.Close()

	store := session.New()

	defaults, err := defaultsFromConfig(cfg)
	if err != nil {
		fail(err)
	}

	svc := coordinator.New(gw, store, defaults, logger)
	ctx := context.Background()

	switch cmd {
	case "create-session":
		runCreateSession(ctx, svc, args)
	case "get-body":
		runGetBody(svc, args)
	case "list-witnesses":
		runListWitnesses(svc, args)
	case "submit-witness":
		runSubmitWitness(svc, args)
	case "status":
		runStatus(svc, args)
	case "submit":
		runSubmit(ctx, svc, args)
	case "reset":
		runReset(svc, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: coordinator <command> [args]

commands:
  create-session  [--mode sweep_all|explicit] [--dest ADDR] [--outputs JSON]
  get-body        --session ID
  list-witnesses  --session ID
  submit-witness  --session ID --witness HEX
  status          --session ID
  submit          --session ID
  reset           [--session ID]
  version
  help

Set MSIG_CLI_MODE=dashboard to receive single-line JSON responses on
stdout with logs on stderr; the default is human-readable text.`)
}

// defaultsFromConfig turns the per-deployment environment configuration
// into the coordinator.Defaults every session is built against.
func defaultsFromConfig(cfg *config.Config) (coordinator.Defaults, error) {
	var d coordinator.Defaults
	d.MultisigAddress = cfg.MultisigAddress
	d.DestAddress = cfg.DestAddress
	d.NetworkID = cfg.NetworkID()
	d.MinAdaLovelace = cfg.MinAdaLovelace
	d.MRequired = uint32(cfg.MRequired)

	if cfg.PaymentScriptCborHex != "" {
		scriptBytes, err := hex.DecodeString(cfg.PaymentScriptCborHex)
		if err != nil {
			return d, apperr.Wrap(apperr.InvalidScript, "MSIG_PAYMENT_SCRIPT_CBOR_HEX is not valid hex", err)
		}
		d.PaymentScriptBytes = scriptBytes
	}

	if cfg.RequiredKeyHashesCSV != "" {
		for _, h := range strings.Split(cfg.RequiredKeyHashesCSV, ",") {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			kh, err := cardano.KeyHashFromHex(h)
			if err != nil {
				return d, apperr.Wrap(apperr.InvalidWitnessCbor, "MSIG_REQUIRED_KEY_HASHES contains an invalid key hash", err)
			}
			d.RequiredKeyHashes = append(d.RequiredKeyHashes, kh)
		}
	}
	return d, nil
}

// flagSet is a tiny hand-rolled --key value parser: the subcommand
// surface is small and fixed, so flag.FlagSet's error-formatting and
// usage machinery would only get in the way of single-line JSON output.
func flagSet(args []string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			continue
		}
		key := strings.TrimPrefix(a, "--")
		if i+1 < len(args) {
			out[key] = args[i+1]
			i++
		} else {
			out[key] = ""
		}
	}
	return out
}

func emit(v interface{}) {
	if cli.IsDashboard() {
		cli.WriteResult(v)
		return
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(pretty))
}

func fail(err error) {
	if logger != nil {
		logger.Error("command failed", zap.Error(err))
	}
	if ae, ok := err.(*apperr.Error); ok {
		if cli.IsDashboard() {
			cli.WriteError(string(ae.Kind), ae.Message, ae.Detail)
		} else {
			fmt.Fprintf(os.Stderr, "error: [%s] %s\n", ae.Kind, ae.Message)
		}
		os.Exit(1)
	}
	if cli.IsDashboard() {
		cli.WriteError("internal_error", err.Error(), nil)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func runCreateSession(ctx context.Context, svc *coordinator.Service, args []string) {
	f := flagSet(args)
	req := coordinator.CreateSessionRequest{
		Mode:        txbuilder.Mode(valueOr(f["mode"], string(txbuilder.SweepAll))),
		DestAddress: f["dest"],
	}
	if raw, ok := f["outputs"]; ok && raw != "" {
		var outs []txbuilder.OutputRequest
		if err := json.Unmarshal([]byte(raw), &outs); err != nil {
			fail(apperr.Wrap(apperr.MissingParams, "--outputs is not valid JSON", err))
		}
		req.Outputs = outs
	}

	resp, err := svc.CreateSession(ctx, req)
	if err != nil {
		fail(err)
	}
	emit(resp)
}

func runGetBody(svc *coordinator.Service, args []string) {
	f := flagSet(args)
	resp, err := svc.GetBody(f["session"])
	if err != nil {
		fail(err)
	}
	emit(resp)
}

func runListWitnesses(svc *coordinator.Service, args []string) {
	f := flagSet(args)
	resp, err := svc.ListWitnesses(f["session"])
	if err != nil {
		fail(err)
	}
	emit(resp)
}

func runSubmitWitness(svc *coordinator.Service, args []string) {
	f := flagSet(args)
	blob, err := hex.DecodeString(f["witness"])
	if err != nil {
		fail(apperr.Wrap(apperr.InvalidWitnessCbor, "--witness is not valid hex", err))
	}
	resp, err := svc.SubmitWitness(f["session"], blob)
	if err != nil {
		fail(err)
	}
	emit(resp)
}

func runStatus(svc *coordinator.Service, args []string) {
	f := flagSet(args)
	resp, err := svc.Status(f["session"])
	if err != nil {
		fail(err)
	}
	emit(resp)
}

func runSubmit(ctx context.Context, svc *coordinator.Service, args []string) {
	f := flagSet(args)
	txHash, err := svc.Submit(ctx, f["session"])
	if err != nil {
		fail(err)
	}
	emit(struct {
		TxHash string `json:"tx_hash"`
	}{TxHash: txHash})
}

func runReset(svc *coordinator.Service, args []string) {
	f := flagSet(args)
	svc.Reset(f["session"])
	emit(struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
