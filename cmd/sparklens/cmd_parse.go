package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparklens/internal/config"
	"sparklens/internal/ingest"
	"sparklens/internal/logparse"
	"sparklens/internal/store"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Parse log files into structured entries",
	Long: `Parses one or more Spark log files (plain text, .gz, or .zip) and stores
the structured entries. With --json the entries are printed to stdout instead
of being stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print entries as JSON instead of storing them")
}

// buildParser constructs the parser from the configured signature tables.
// Empty tables select the compiled-in defaults.
func buildParser(cfg *config.Config) *logparse.Parser {
	var opts []logparse.Option
	if len(cfg.Signatures.Modes) > 0 {
		modes := make([]logparse.ModeSignature, len(cfg.Signatures.Modes))
		for i, m := range cfg.Signatures.Modes {
			modes[i] = logparse.ModeSignature{Mode: logparse.SparkMode(m.Name), Markers: m.Markers}
		}
		opts = append(opts, logparse.WithModeSignatures(modes))
	}
	if len(cfg.Signatures.Languages) > 0 {
		langs := make([]logparse.LanguageSignature, len(cfg.Signatures.Languages))
		for i, l := range cfg.Signatures.Languages {
			langs[i] = logparse.LanguageSignature{Language: logparse.SourceLanguage(l.Name), Markers: l.Markers}
		}
		opts = append(opts, logparse.WithLanguageSignatures(langs))
	}
	if cfg.Signatures.PrefixLines > 0 {
		opts = append(opts, logparse.WithDetectionPrefix(cfg.Signatures.PrefixLines))
	}
	return logparse.NewParser(opts...)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	parser := buildParser(cfg)

	if parseJSON {
		return parseToStdout(cmd, parser, args)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := ingest.NewService(parser, st, cfg.Ingest.Workers)
	files, err := svc.IngestAll(ctx, args)
	if err != nil {
		return err
	}

	for _, f := range files {
		logger.Info("file ingested",
			zap.Int64("id", f.ID),
			zap.String("file", f.Filename),
			zap.Int("entries", f.EntryCount),
			zap.Int("errors", f.ErrorCount),
			zap.String("mode", string(f.Mode)),
			zap.String("language", string(f.DominantLanguage)))
		fmt.Printf("[%d] %s: %d entries (%d errors), mode=%s, language=%s\n",
			f.ID, f.Filename, f.EntryCount, f.ErrorCount, f.Mode, f.DominantLanguage)
	}
	return nil
}

func parseToStdout(cmd *cobra.Command, parser *logparse.Parser, paths []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, path := range paths {
		sources, err := ingest.Open(path)
		if err != nil {
			return err
		}
		for _, src := range sources {
			entries, execCtx, stats, err := parser.ParseAll(ctx, src.Reader)
			src.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", src.Name, err)
			}
			logger.Debug("parsed",
				zap.String("file", src.Name),
				zap.Int("lines", stats.Lines),
				zap.Int("entries", len(entries)))
			out := struct {
				Filename string                    `json:"filename"`
				Context  logparse.ExecutionContext `json:"execution_context"`
				Lines    int                       `json:"lines"`
				Entries  []*logparse.LogEntry      `json:"entries"`
			}{src.Name, execCtx, stats.Lines, entries}
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
	}
	return nil
}
