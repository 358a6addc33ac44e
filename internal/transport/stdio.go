// Package transport provides the line-delimited JSON-RPC 2.0 stdio bridge
// spec.md §1 places out of scope for the tool façade itself (component
// C13's wire framing). Grounded directly on the teacher's
// internal/api/mcp/transport.go StdioTransport: a buffered line scanner
// reading stdin, one response line written to stdout per request, with all
// diagnostic output directed to stderr so the protocol stream stays clean.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/nodalmind/memoria/internal/facade"
)

// maxLine bounds a single JSON-RPC request line, matching the teacher's 4 MiB
// scanner buffer sizing for large batch/content payloads.
const maxLine = 4 * 1024 * 1024

// StdioTransport serves a facade.Server over line-delimited JSON-RPC 2.0.
type StdioTransport struct {
	srv *facade.Server
	in  io.Reader
	out io.Writer
	log *zap.SugaredLogger
}

// NewStdioTransport builds a StdioTransport reading from in and writing to
// out. Typical construction wires os.Stdin/os.Stdout.
func NewStdioTransport(srv *facade.Server, in io.Reader, out io.Writer, log *zap.SugaredLogger) *StdioTransport {
	return &StdioTransport{srv: srv, in: in, out: out, log: log}
}

// Serve processes requests until stdin is closed or ctx is cancelled,
// matching the teacher's Serve loop: one request in, one response out, no
// inter-request concurrency at the transport level (spec.md §1's framing is
// synchronous request/response).
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	buf := make([]byte, maxLine)
	scanner.Buffer(buf, maxLine)

	for {
		select {
		case <-ctx.Done():
			t.log.Info("context cancelled, shutting down transport")
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("transport: stdin scanner: %w", err)
			}
			t.log.Info("stdin closed, shutting down transport")
			return nil
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		req := make([]byte, len(line))
		copy(req, line)

		resp := facade.HandleRequest(ctx, t.srv, req)
		if _, err := fmt.Fprintf(t.out, "%s\n", resp); err != nil {
			return fmt.Errorf("transport: write response: %w", err)
		}

		select {
		case <-ctx.Done():
			t.log.Info("context cancelled after handling request, shutting down transport")
			return ctx.Err()
		default:
		}
	}
}
