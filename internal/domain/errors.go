package domain

import "errors"

var (
	// ErrNotFound signals a missing collection.
	ErrNotFound = errors.New("not found")
	// ErrInvalidVocabulary signals a malformed filter vocabulary.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrClassifierUnavailable signals that query classification failed;
	// the pipeline falls back to the "both" label.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrFilterSynthesisInvalid signals that filter synthesis produced no
	// usable output; distinct from a legitimately empty predicate set.
	ErrFilterSynthesisInvalid = errors.New("filter synthesis invalid")
	// ErrRetrievalUnavailable signals that the retrieval backend failed.
	// Fatal for the affected path.
	ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")
	// ErrFlightPathLost and ErrInfoPathLost name the retrieval path a
	// backend failure took down, so user-visible failures can say which
	// path was lost without exposing provider internals.
	ErrFlightPathLost = errors.New("flight path lost")
	ErrInfoPathLost   = errors.New("info path lost")
	// ErrRerankUnavailable signals a reranker failure; callers keep the
	// pre-rerank order.
	ErrRerankUnavailable = errors.New("rerank unavailable")
	// ErrAnswerUnavailable signals that answer synthesis failed after
	// evidence was gathered.
	ErrAnswerUnavailable = errors.New("answer synthesis unavailable")

	// ErrChatProviderError signals a chat model provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
