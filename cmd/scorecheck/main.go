package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scorecheck/backend/internal/answerkey"
	"github.com/scorecheck/backend/internal/config"
	"github.com/scorecheck/backend/internal/report"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/scoring"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scorecheck",
		Short: "Score a response sheet against an answer key without a database",
	}
	root.AddCommand(scoreCmd(), validateCmd())
	return root
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <sheet-file-or-url>",
		Short: "Parse a response sheet and print the score per subject",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.StringP("key", "k", "", "Answer-key file (Sno, Subject, QuestionID, AnswerID)")
	f.Float64("correct", scoring.DefaultMarkingScheme.CorrectMarks, "Marks for a correct answer")
	f.Float64("incorrect", scoring.DefaultMarkingScheme.IncorrectMarks, "Marks for an incorrect answer")
	f.Float64("unattempted", scoring.DefaultMarkingScheme.UnattemptedMarks, "Marks for an unattempted question")
	f.StringP("output", "o", "table", "Output format (table, json, legacy)")
	f.Duration("fetch-timeout", 0, "Timeout for fetching a sheet by URL (0 = default)")
	f.Int64("fetch-max-bytes", 0, "Maximum sheet size fetched by URL (0 = default)")
	f.Bool("details", false, "Also print every question")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <answer-key-file>",
		Short: "Check an answer-key file before uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := answerkey.Validate(string(raw)); err != nil {
				return err
			}
			res := answerkey.Parse(string(raw))
			for subject, entries := range answerkey.GroupBySubject(res.Entries) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d questions\n", subject, len(entries))
			}
			return nil
		},
	}
	return cmd
}

// viperForCmd binds a command's flags and SCORECHECK_* environment.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SCORECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("scorecheck")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/scorecheck")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	}
	return v
}

func runScore(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	config.SetupLogging(config.LoggingConfig{
		Level:  v.GetString("log-level"),
		Format: v.GetString("log-format"),
	}, cmd.ErrOrStderr())

	rawKey, err := os.ReadFile(v.GetString("key"))
	if err != nil {
		return fmt.Errorf("read answer key: %w", err)
	}
	if err := answerkey.Validate(string(rawKey)); err != nil {
		return err
	}
	scheme := scoring.MarkingScheme{
		CorrectMarks:     v.GetFloat64("correct"),
		IncorrectMarks:   v.GetFloat64("incorrect"),
		UnattemptedMarks: v.GetFloat64("unattempted"),
	}
	keys, schemes := buildKeys(answerkey.Parse(string(rawKey)).Entries, scheme)

	sheet, err := loadSheet(cmd.Context(), args[0], v)
	if err != nil {
		return err
	}

	res, err := scoring.Score(scoring.Scope{}, sheet.Responses, keys, schemes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch v.GetString("output") {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Assemble(res))
	case "legacy":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Legacy(res))
	default:
		rep := report.Assemble(res)
		renderCandidate(out, sheet.Candidate)
		renderSubjects(out, rep)
		if v.GetBool("details") {
			renderQuestions(out, rep.DetailedComparison)
		}
		return nil
	}
}

func loadSheet(ctx context.Context, input string, v *viper.Viper) (*responsesheet.Sheet, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fetcher := responsesheet.NewHTTPFetcher(v.GetDuration("fetch-timeout"), v.GetInt64("fetch-max-bytes"))
	parser := responsesheet.New(fetcher).WithLogger(slog.Default())

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		raw, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("read response sheet: %w", err)
		}
		input = string(raw)
	}
	return parser.Parse(ctx, input)
}

// buildKeys applies one scheme to every subject in the key, sized to that
// subject's question count.
func buildKeys(entries []answerkey.Entry, scheme scoring.MarkingScheme) (map[string][]scoring.KeyEntry, map[string]scoring.MarkingScheme) {
	keys := make(map[string][]scoring.KeyEntry)
	schemes := make(map[string]scoring.MarkingScheme)
	for subject, group := range answerkey.GroupBySubject(entries) {
		for _, e := range group {
			keys[subject] = append(keys[subject], scoring.KeyEntry{
				QuestionID:       e.QuestionID,
				CorrectAnswerIDs: []string{e.CorrectAnswerID},
			})
		}
		s := scheme
		s.TotalQuestions = len(group)
		s.TotalMarks = float64(len(group)) * scheme.CorrectMarks
		schemes[subject] = s
	}
	return keys, schemes
}
