package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/modguard/modguard/internal/observability"
	"github.com/modguard/modguard/internal/observability/logging"
	otelobs "github.com/modguard/modguard/internal/observability/otel"
	"github.com/modguard/modguard/internal/observability/receipt"
	"github.com/modguard/modguard/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modguard",
	Short: "Architectural boundary checker for multi-language repos",
	Long: `modguard: module boundaries as policy.
Evaluates scanner output against a declarative module policy and fails
CI when imports cross boundaries they should not.`,
	Version:           version.BuildVersion(),
	PersistentPreRunE: setupObservability,
	PersistentPostRun: teardownObservability,
}

var (
	logFormatFlag    string
	logLevelFlag     string
	logOutputFlag    string
	otelFlag         bool
	otelEndpointFlag string
	otelProtocolFlag string
	otelInsecureFlag bool
	receiptFlag      string
	receiptModeFlag  string
)

// closed on teardown
var (
	activeLogger logging.Logger
	activeOtel   *otelobs.Handle
	activeWriter receipt.Writer
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: pretty or jsonl (env MODGUARD_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (env MODGUARD_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logOutputFlag, "log-output", "", "Log destination: stderr or a file path (env MODGUARD_LOG_OUTPUT)")
	rootCmd.PersistentFlags().BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&otelProtocolFlag, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	rootCmd.PersistentFlags().BoolVar(&otelInsecureFlag, "otel-insecure", false, "Allow insecure OTLP connections")
	rootCmd.PersistentFlags().StringVar(&receiptFlag, "receipt", "", "Write an evidence receipt to this path (env MODGUARD_RECEIPT)")
	rootCmd.PersistentFlags().StringVar(&receiptModeFlag, "receipt-mode", "overwrite", "Receipt write mode: overwrite or append")

	rootCmd.AddCommand(GetCheckCmd())
	rootCmd.AddCommand(GetResolveCmd())
	rootCmd.AddCommand(GetPolicyCmd())
	rootCmd.AddCommand(GetBaselineCmd())
	rootCmd.AddCommand(GetDiffCmd())
	rootCmd.AddCommand(GetKeygenCmd())
	rootCmd.AddCommand(GetSignCmd())
	rootCmd.AddCommand(GetVerifyCmd())
}

// setupObservability wires logging, tracing, and receipts into the command
// context. Runs once per invocation before any subcommand.
func setupObservability(cmd *cobra.Command, args []string) error {
	// Local .env is a convenience for development; missing is fine.
	_ = godotenv.Load()

	ctx := observability.WithOpID(cmd.Context())

	logCfg := logging.DefaultConfig()
	if v := firstNonEmpty(logFormatFlag, os.Getenv("MODGUARD_LOG_FORMAT")); v != "" {
		logCfg.Format = v
	}
	if v := firstNonEmpty(logLevelFlag, os.Getenv("MODGUARD_LOG_LEVEL")); v != "" {
		logCfg.Level = v
	}
	if v := firstNonEmpty(logOutputFlag, os.Getenv("MODGUARD_LOG_OUTPUT")); v != "" {
		logCfg.Output = v
	}

	log, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	activeLogger = log
	ctx = logging.WithLogger(ctx, log)

	if otelFlag {
		otelCfg := otelobs.DefaultConfig()
		otelCfg.Enabled = true
		otelCfg.Endpoint = otelEndpointFlag
		otelCfg.Protocol = otelProtocolFlag
		otelCfg.Insecure = otelInsecureFlag

		handle, err := otelobs.Init(ctx, otelCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		activeOtel = handle
		ctx = otelobs.WithHandle(ctx, handle)
	}

	receiptPath := firstNonEmpty(receiptFlag, os.Getenv("MODGUARD_RECEIPT"))
	if receiptPath != "" {
		w, err := receipt.NewWriter(receiptPath, receiptModeFlag)
		if err != nil {
			return fmt.Errorf("failed to initialize receipt writer: %w", err)
		}
		activeWriter = w
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

func teardownObservability(cmd *cobra.Command, args []string) {
	if activeOtel != nil {
		_ = activeOtel.Shutdown(cmd.Context())
	}
	if activeWriter != nil {
		_ = activeWriter.Close()
	}
	if activeLogger != nil {
		_ = activeLogger.Close()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
