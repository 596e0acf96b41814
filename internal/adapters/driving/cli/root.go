// Package cli provides the cobra command tree for qir-evidence.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipWireAnnotation marks commands that need no services at all.
const skipWireAnnotation = "skip-wire"

// settingsOnlyAnnotation marks commands that only need the settings service,
// so a broken provider configuration can still be inspected and fixed.
const settingsOnlyAnnotation = "settings-only"

// Services holds the driving ports the commands call.
type Services struct {
	Evidence  driving.EvidenceService
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Draft     driving.DraftService
	Settings  driving.SettingsService

	// ConfigPath is the configuration file in use.
	ConfigPath string
}

// WireOptions tells the wiring function what the command needs.
type WireOptions struct {
	ConfigDir    string
	SettingsOnly bool
}

// WireFunc builds services from configuration. The returned cleanup is
// called after the command finishes.
type WireFunc func(opts WireOptions) (*Services, func(), error)

var (
	evidenceService  driving.EvidenceService
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	draftService     driving.DraftService
	settingsService  driving.SettingsService
	configPath       string

	wire    WireFunc
	cleanup func()
	wired   bool

	flagConfigDir string
	flagVerbose   bool

	// now stamps sources, chunk builds, index builds and saved drafts.
	now = func() time.Time { return time.Now().UTC() }
)

var rootCmd = &cobra.Command{
	Use:   "qir-evidence",
	Short: "Evidence-grounded drafting for quarterly incident reviews",
	Long: `qir-evidence ingests incident evidence, indexes it with a local Ollama
embedding model and drafts report sections that may only cite approved
evidence chunks.

All model calls go to a loopback Ollama endpoint (http://127.0.0.1).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.qir-evidence)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetWire sets the function used to build services before a command runs.
func SetWire(fn WireFunc) {
	wire = fn
}

// SetServices injects services directly, bypassing wiring.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	evidenceService = s.Evidence
	indexService = s.Index
	retrievalService = s.Retrieval
	draftService = s.Draft
	settingsService = s.Settings
	configPath = s.ConfigPath
	wired = true
}

// Execute runs the root command and returns the process exit code.
// SIGINT and SIGTERM cancel the command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)
	if wired || wire == nil || hasAnnotation(cmd, skipWireAnnotation) {
		return nil
	}

	settingsOnly := hasAnnotation(cmd, settingsOnlyAnnotation)
	svc, done, err := wire(WireOptions{ConfigDir: flagConfigDir, SettingsOnly: settingsOnly})
	if err != nil {
		return err
	}
	SetServices(svc)
	cleanup = done
	logger.Debug("Services wired (settings only: %t, config: %s)", settingsOnly, configPath)
	return nil
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

// printError writes err in the "error [CODE]: message (details)" form.
func printError(w io.Writer, err error) {
	var coded *domain.Error
	if !errors.As(err, &coded) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	if coded.Details != "" {
		fmt.Fprintf(w, "error [%s]: %s (%s)\n", coded.Code, coded.Message, coded.Details)
	} else {
		fmt.Fprintf(w, "error [%s]: %s\n", coded.Code, coded.Message)
	}
	if coded.Retryable {
		fmt.Fprintln(w, "retryable: true")
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// embeddingModel returns the configured embedding model.
func embeddingModel() (string, error) {
	if settingsService == nil {
		return domain.DefaultEmbeddingModel, nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return "", err
	}
	return settings.Ollama.EmbeddingModel, nil
}

func notConfigured(name string) error {
	return fmt.Errorf("%s service not configured", name)
}
