package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/antoniostano/smartdoc/internal/interview"
	"github.com/antoniostano/smartdoc/internal/observability"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview in the terminal",
	Long:  "Run an interview in the terminal. The continuation token is held by this client loop only.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Keep the transcript readable: only warnings go to stderr.
		level := cfg.LogLevel
		if level == "" || level == "info" || level == "debug" || level == "trace" {
			level = "warn"
		}
		logger := observability.NewLogger(level, "console")
		metrics := observability.NewMetricsWith(cfg.MetricsNamespace, prometheus.NewRegistry())

		st, err := buildStack(cmd.Context(), cfg, metrics, logger)
		if err != nil {
			return err
		}
		defer st.store.Close()

		return runInterview(cmd.Context(), st.orchestrator, userID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	interviewCmd.Flags().String("user", "cli-user", "User id the interview is run for")
}

type advancer interface {
	Advance(ctx context.Context, req interview.TurnRequest) (interview.TurnResult, error)
}

// runInterview drives turns from in until the interview completes or input ends.
// A failed turn leaves the token untouched so the same answer can be retried.
func runInterview(ctx context.Context, adv advancer, userID string, in io.Reader, out io.Writer) error {
	var token string
	res, err := adv.Advance(ctx, interview.TurnRequest{UserID: userID})
	if err != nil {
		return err
	}
	token = res.ConversationID
	fmt.Fprintf(out, "doctor> %s\n", res.Message)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		res, err := adv.Advance(ctx, interview.TurnRequest{UserID: userID, Message: line, ConversationID: token})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "error: %v (answer again to retry)\n", err)
			continue
		}
		fmt.Fprintf(out, "doctor> %s\n", res.Message)
		if res.IsComplete {
			printDiagnosis(out, res.Diagnosis)
			return nil
		}
		token = res.ConversationID
	}
}

func printDiagnosis(out io.Writer, d *interview.DiagnosisResult) {
	if d == nil {
		return
	}
	fmt.Fprintf(out, "\nSummary:\n  %s\n\nPossible diagnoses:\n", d.Summary)
	for i, dx := range d.Diagnoses {
		fmt.Fprintf(out, "  %d. %s\n     %s\n     Treatment: %s\n", i+1, dx.Name, dx.Explanation, dx.TreatmentPlan)
	}
}
