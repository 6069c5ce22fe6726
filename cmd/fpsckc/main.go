// Command fpsckc runs the content-key delivery pipeline over a single
// batched fairplay-streaming-request document read from stdin (or
// -in), writing the fairplay-streaming-response document to stdout (or
// -out).
//
// Flag handling and log setup follow ro/main.go's shape; the
// raw-mode single-keypress confirmation guarding a run against live
// credentials is grounded on permissionsedit/main.go's selectMenu,
// narrowed from a full menu to a single y/n read.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/barnettlynn/fpsckc/internal/batch"
	"github.com/barnettlynn/fpsckc/internal/binder"
	"github.com/barnettlynn/fpsckc/internal/credentials"
	"github.com/barnettlynn/fpsckc/internal/fpsconfig"
	"github.com/barnettlynn/fpsckc/internal/fpslog"
	"github.com/barnettlynn/fpsckc/internal/policy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to server configuration")
	inPath := flag.String("in", "-", "path to the request JSON document, - for stdin")
	outPath := flag.String("out", "-", "path to write the response JSON document, - for stdout")
	verbose := flag.Bool("v", false, "enable debug logging")
	confirm := flag.Bool("confirm", false, "require an interactive y/n keypress before processing live credentials")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	fpslog.Configure(os.Stderr, level)
	logger := fpslog.Logger()

	cfg, err := fpsconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *confirm {
		if !confirmKeypress(fmt.Sprintf("About to process a batch against credentials at %s. Continue? [y/N] ", cfg.Credentials.PrivateKeyV1Path)) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(1)
		}
	}

	creds, err := credentials.NewFileProvider(cfg.Credentials.PrivateKeyV1Path, cfg.Credentials.PrivateKeyV2Path, cfg.Credentials.ProvisioningDataPath)
	if err != nil {
		log.Fatalf("load credentials: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
	}()

	orch := &batch.Orchestrator{
		Credentials: creds,
		Policy: policy.Config{
			MinKDLVersion:    uint32(*cfg.Policy.MinKDLVersion),
			RejectVMPlayback: *cfg.Policy.RejectVMPlayback,
		},
		Binder: binder.NewAdapter(unimplementedNative),
	}

	raw, err := readInput(*inPath)
	if err != nil {
		log.Fatalf("read request: %v", err)
	}

	resp := orch.Run(raw)

	if err := writeOutput(*outPath, resp); err != nil {
		log.Fatalf("write response: %v", err)
	}
}

// unimplementedNative is the seam a real deployment wires to the
// precompiled KSMCreateKeyPayload routine; this binary has no native
// crypto library to link against, so it returns an error (which the
// binder adapter reports as InternalErr) rather than guessing at a fake
// implementation.
func unimplementedNative(req binder.Request) (binder.Response, error) {
	return binder.Response{}, fmt.Errorf("fpsckc: no native key-payload binder linked into this binary")
}

func encodeResponse(w io.Writer, resp batch.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, resp batch.Response) error {
	w := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return encodeResponse(f, resp)
	}
	return encodeResponse(w, resp)
}

// confirmKeypress puts stdin into raw mode, prints prompt, and reads a
// single byte: 'y'/'Y' confirms, anything else (including Ctrl-C)
// declines.
func confirmKeypress(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// No controlling terminal: fail closed rather than silently
		// proceeding against live credentials.
		fmt.Fprintln(os.Stderr)
		return false
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	n, err := os.Stdin.Read(buf)
	fmt.Fprint(os.Stderr, "\r\n")
	if err != nil || n != 1 {
		return false
	}
	return buf[0] == 'y' || buf[0] == 'Y'
}
