package domain

import "context"

// LLM use case labels, used for prompt routing metrics and logging.
const (
	UseCaseClassify = "classification"
	UseCaseFilters  = "filter_synthesis"
	UseCaseRerank   = "rerank"
	UseCaseAnswer   = "answer_synthesis"
)

// CompletionRequest is one structured-or-text generation request. The
// same chat model serves classification, filter synthesis, reranking
// and answer synthesis; each use case supplies its own prompt and
// output schema through this request.
type CompletionRequest struct {
	UseCase     string
	System      string
	User        string
	JSONMode    bool
	Temperature float32
	MaxTokens   int
}

// Completer is the shared text -> structured-or-text contract over the
// chat model provider.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
