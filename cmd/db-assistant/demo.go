package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/traego/mcp-db-assistant/pkg/assistant"
)

func askOne(ctx context.Context, a *assistant.Assistant, question string, out io.Writer) error {
	fmt.Fprintf(out, "Human: %s\n", question)
	answer, err := a.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assistant: %s\n", answer)
	return nil
}

func demoConversation(ctx context.Context, a *assistant.Assistant, table string, out io.Writer) error {
	fmt.Fprintln(out, "=== AI ASSISTANT DATABASE DEMO ===")
	fmt.Fprintln(out)

	turns, err := a.Converse(ctx, assistant.DemoQuestions)
	for _, turn := range turns {
		fmt.Fprintf(out, "Human: %s\n", turn.Question)
		fmt.Fprintf(out, "Assistant: %s\n\n", turn.Answer)
	}
	if err != nil {
		var qErr *assistant.QuestionError
		if errors.As(err, &qErr) {
			fmt.Fprintf(out, "Human: %s\n", qErr.Question)
		}
		return err
	}

	fmt.Fprintln(out, "Human: Can you analyze the database performance?")
	analysis, err := a.AnalyzePerformance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assistant: %s\n\n", analysis)

	fmt.Fprintf(out, "Human: Any optimization suggestions for the %s table?\n", table)
	suggestions, err := a.SuggestOptimizations(ctx, table)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assistant: %s\n\n", suggestions)

	return nil
}

func advancedIntegration(ctx context.Context, a *assistant.Assistant, batchSize int, out io.Writer) error {
	fmt.Fprintln(out, "\n=== ADVANCED AI INTEGRATION ===")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Generating executive summary report...")
	fmt.Fprintln(out)
	summary, err := a.ExecutiveSummary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(out, summary)

	fmt.Fprintln(out, "\nPreparing data for ML model training...")
	sample, err := a.TrainingSample(ctx, batchSize)
	if err != nil {
		return err
	}
	fmt.Fprint(out, sample)

	return nil
}
