package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparklens/internal/analysis"
	"sparklens/internal/llmclient"
	"sparklens/internal/logging"
	"sparklens/internal/logparse"
	"sparklens/internal/store"
)

var (
	analyzeType     string
	analyzeProvider string
	analyzeModel    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file-id]",
	Short: "Run an AI analysis over an ingested file",
	Long: `Runs the selected analysis type over a previously ingested file's entries
and stores the result.

Analysis types: full, root_cause, memory_issues, performance, config_optimization
Providers: openai, anthropic, gemini, openrouter, ollama (auto-detected from
configured credentials when not given)`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "full", "analysis type")
	analyzeCmd.Flags().StringVarP(&analyzeProvider, "provider", "p", "", "AI provider (default: auto-detect)")
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "model override for this run")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	fileID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid file id %q", args[0])
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	file, err := st.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	entries, err := st.GetEntries(ctx, fileID, store.EntryFilter{Limit: cfg.Analysis.MaxEntries})
	if err != nil {
		return err
	}

	client, err := llmclient.FromConfig(ctx, cfg, analyzeProvider)
	if err != nil {
		return err
	}

	scheduler := llmclient.NewScheduler(cfg.LLM.MaxConcurrent)
	defer scheduler.Stop()

	orch := analysis.NewOrchestrator(analysis.Options{
		Registry:       analysis.NewRegistry(cfg.Analysis.TokenBudget),
		Scheduler:      scheduler,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BackoffBase:    cfg.Retry.BackoffBaseDuration(),
		BackoffMax:     cfg.Retry.BackoffMaxDuration(),
		ErrorThreshold: cfg.Analysis.ErrorThreshold,
		InvokeTimeout:  cfg.LLM.TimeoutDuration(),
	})

	requestID := uuid.NewString()
	logging.Analysis("request %s: %s analysis of file %d (%s) via %s",
		requestID, analyzeType, fileID, file.Filename, client.Provider())
	logger.Info("analysis started",
		zap.String("request_id", requestID),
		zap.String("type", analyzeType),
		zap.Int64("file_id", fileID),
		zap.String("file", file.Filename),
		zap.Int("entries", len(entries)),
		zap.String("provider", string(client.Provider())))
	fmt.Printf("Analyzing %s (%d entries) via %s...\n", file.Filename, len(entries), client.Provider())

	result, err := orch.Analyze(ctx, client, analysis.Request{
		Entries: entries,
		Context: logparse.ExecutionContext{
			Mode:             file.Mode,
			DominantLanguage: file.DominantLanguage,
		},
		Type:      analysis.Type(analyzeType),
		Provider:  client.Provider(),
		ModelHint: analyzeModel,
	})
	if err != nil {
		logger.Error("analysis failed", zap.String("request_id", requestID), zap.Error(err))
		return fmt.Errorf("request %s: %w", requestID, err)
	}
	logger.Info("analysis completed",
		zap.String("request_id", requestID),
		zap.String("severity", string(result.Severity)),
		zap.Duration("elapsed", result.ProcessingTime))

	if _, err := st.SaveResult(ctx, fileID, analysis.Type(analyzeType), result); err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(r *analysis.Result) {
	fmt.Printf("\nSeverity: %s (completed in %v)\n", strings.ToUpper(string(r.Severity)), r.ProcessingTime.Round(10*time.Millisecond))
	fmt.Printf("\nSummary:\n  %s\n", r.Summary)
	if r.RootCause != "" {
		fmt.Printf("\nRoot cause:\n  %s\n", r.RootCause)
	}
	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for i, rec := range r.Recommendations {
			fmt.Printf("  %d. [%s] %s\n     %s\n", i+1, rec.Priority, rec.Title, rec.Description)
		}
	}
	if len(r.ConfigSuggestions) > 0 {
		fmt.Println("\nConfiguration suggestions:")
		for _, s := range r.ConfigSuggestions {
			current := s.CurrentValue
			if current == "" {
				current = "(unset)"
			}
			fmt.Printf("  %s: %s -> %s\n     %s\n", s.Key, current, s.SuggestedValue, s.Rationale)
		}
	}
}
