package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/modguard/modguard/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

// Session tracks command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start session
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures receipt
type Option func(*Receipt)

// WithPolicy option
func WithPolicy(path, preset string) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := &PolicyRef{Path: path, Preset: preset}
		// Compute SHA256 if file exists
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.Policy = ref
	}
}

// WithCheck option
func WithCheck(filesChecked, violations, suppressed, warnings int) Option {
	return func(r *Receipt) {
		status := "pass"
		if violations > 0 {
			status = "fail"
		}
		r.Check = &CheckSummary{
			FilesChecked: filesChecked,
			Violations:   violations,
			Suppressed:   suppressed,
			Warnings:     warnings,
			Status:       status,
		}
	}
}

// WithBaseline option
func WithBaseline(path string, entries int) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		r.Baseline = &BaselineRef{Path: path, Entries: entries}
	}
}

// WithRegistryPin option
func WithRegistryPin(ref, digest string) Option {
	return func(r *Receipt) {
		if ref == "" {
			return
		}
		r.Registry = &RegistryPin{Ref: ref, Digest: digest}
	}
}

// Finish and write receipt
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		// No writer configured, receipts disabled
		return nil
	}

	// Redact sensitive CLI arguments before storing
	redactedArgs, wasRedacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          redactedArgs,
		ArgsRedacted:  wasRedacted,
	}

	if err != nil {
		r.Result = Result{
			Status: "fail",
			Error:  truncateError(err.Error()),
		}
	} else {
		r.Result = Result{
			Status: "success",
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

// computeSHA256 helper
func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// truncateError helper
func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
