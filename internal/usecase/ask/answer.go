package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/jetkart/jetkart/internal/domain"
)

const answerSystemPrompt = `You are a travel assistant. Answer the user's question using only the evidence provided. Cite concrete flights and policy passages from the evidence; if the evidence does not cover part of the question, say so rather than inventing details. Be concise.`

// SynthAnswerer produces the final answer text from the merged
// evidence set with one grounded LLM call.
type SynthAnswerer struct {
	completer domain.Completer
}

// NewAnswerer creates the answer synthesis step.
func NewAnswerer(completer domain.Completer) *SynthAnswerer {
	return &SynthAnswerer{completer: completer}
}

// Answer implements Answerer. Without evidence it answers from an
// empty context so the model can state that nothing was found.
func (a *SynthAnswerer) Answer(
	ctx context.Context, query string, evidence []domain.Candidate,
) (string, error) {
	out, err := a.completer.Complete(ctx, domain.CompletionRequest{
		UseCase:     domain.UseCaseAnswer,
		System:      answerSystemPrompt,
		User:        buildAnswerPrompt(query, evidence),
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAnswerUnavailable, err)
	}
	return strings.TrimSpace(out), nil
}

func buildAnswerPrompt(query string, evidence []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nEvidence:\n")
	if len(evidence) == 0 {
		b.WriteString("(none)\n")
	}
	for i, c := range evidence {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, c.Path(), c.Content())
	}
	return b.String()
}
