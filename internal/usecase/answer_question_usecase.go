package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra/ratelimit"
	"answer-orchestrator/internal/worker"
)

// AnswerQuestionsInput carries a batch of questions through synthesis.
type AnswerQuestionsInput struct {
	Questions []domain.Question
}

// AnswerQuestionsOutput returns one answer per input question, in input
// order. Failed questions appear as FAILED answers, never as gaps.
type AnswerQuestionsOutput struct {
	Answers []domain.Answer
}

// AnswerQuestionUsecase runs the synthesis state machine for each question:
// retrieve context, assemble it under the token budget, generate, then
// format for the declared type. A failure in one question does not abort
// the batch.
type AnswerQuestionUsecase interface {
	Execute(ctx context.Context, input AnswerQuestionsInput) (*AnswerQuestionsOutput, error)
	AnswerOne(ctx context.Context, q domain.Question) domain.Answer
}

type answerQuestionUsecase struct {
	retriever   RetrieveContextUsecase
	builder     PromptBuilder
	generator   domain.LLMClient
	formatter   AnswerFormatter
	budget      *TokenBudget
	gate        ratelimit.Gate
	retry       domain.RetryPolicy
	topK        int
	topN        int
	maxTokens   int
	concurrency int
	logger      *slog.Logger
}

// NewAnswerQuestionUsecase creates a new AnswerQuestionUsecase. gate is
// shared across the batch so concurrent workers still respect the
// generation service's pacing.
func NewAnswerQuestionUsecase(
	retriever RetrieveContextUsecase,
	builder PromptBuilder,
	generator domain.LLMClient,
	formatter AnswerFormatter,
	budget *TokenBudget,
	gate ratelimit.Gate,
	retry domain.RetryPolicy,
	topK, topN, maxTokens, concurrency int,
	logger *slog.Logger,
) AnswerQuestionUsecase {
	return &answerQuestionUsecase{
		retriever:   retriever,
		builder:     builder,
		generator:   generator,
		formatter:   formatter,
		budget:      budget,
		gate:        gate,
		retry:       retry,
		topK:        topK,
		topN:        topN,
		maxTokens:   maxTokens,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (u *answerQuestionUsecase) Execute(ctx context.Context, input AnswerQuestionsInput) (*AnswerQuestionsOutput, error) {
	batchID := uuid.NewString()
	u.logger.Info("batch_started", "batch_id", batchID, "questions", len(input.Questions))

	answers := worker.RunCollect(ctx, u.concurrency, input.Questions, func(ctx context.Context, q domain.Question) domain.Answer {
		// A cancelled batch fails the remaining questions instead of
		// dropping them, so the output always covers the input.
		if err := ctx.Err(); err != nil {
			return failedAnswer(q, "batch cancelled: "+err.Error())
		}
		return u.AnswerOne(ctx, q)
	})

	failed := 0
	for _, a := range answers {
		if a.State == domain.StateFailed {
			failed++
		}
	}
	u.logger.Info("batch_completed",
		"batch_id", batchID,
		"questions", len(input.Questions),
		"failed", failed)
	return &AnswerQuestionsOutput{Answers: answers}, nil
}

// AnswerOne walks a single question through the state machine. It never
// returns an error: every terminal condition is encoded in the answer state.
func (u *answerQuestionUsecase) AnswerOne(ctx context.Context, q domain.Question) domain.Answer {
	answer := domain.Answer{
		QuestionID:   q.ID,
		DeclaredType: q.DeclaredType,
		State:        domain.StatePending,
	}
	if !q.DeclaredType.Valid() {
		return failedAnswer(q, "unknown question type "+string(q.DeclaredType))
	}

	// PENDING -> CONTEXT_ASSEMBLED
	retrieved, err := u.retriever.Execute(ctx, RetrieveContextInput{
		Question:    q.Text,
		TopKInitial: u.topK,
		TopNFinal:   u.topN,
	})
	if err != nil {
		u.logger.Error("retrieval_failed", "question_id", q.ID, "error", err)
		return failedAnswer(q, "context retrieval failed: "+err.Error())
	}
	contextText, contextIDs := u.budget.Assemble(retrieved.Items)
	answer.ContextIDs = contextIDs
	answer.Degraded = retrieved.Degraded
	answer.State = domain.StateContextAssembled
	if len(retrieved.Items) > 0 {
		answer.Confidence = float64(retrieved.Items[0].Relevance)
	}

	// CONTEXT_ASSEMBLED -> GENERATED
	messages, err := u.builder.Build(PromptInput{Question: q, Context: contextText})
	if err != nil {
		return failedAnswer(q, "prompt build failed: "+err.Error())
	}

	resp, err := domain.Retry(ctx, u.retry, func() (*domain.LLMResponse, error) {
		if err := u.gate.Wait(ctx); err != nil {
			return nil, err
		}
		return u.generator.Generate(ctx, messages, u.maxTokens)
	})
	if err != nil {
		u.logger.Error("generation_failed", "question_id", q.ID, "error", err)
		failed := failedAnswer(q, "generation failed: "+err.Error())
		failed.ContextIDs = contextIDs
		failed.Degraded = answer.Degraded
		return failed
	}
	answer.State = domain.StateGenerated

	// GENERATED -> FORMATTED
	formatted, err := u.formatter.Format(q, resp.Text)
	if err != nil {
		// Format mismatch degrades to the raw text rather than failing
		// the question. The answer is still useful, just unstructured.
		u.logger.Warn("format_mismatch", "question_id", q.ID, "question_type", q.DeclaredType, "error", err)
		answer.FormattedText = strings.TrimSpace(resp.Text)
		answer.Degraded = true
		answer.State = domain.StateFormatted
		return answer
	}
	answer.FormattedText = formatted
	answer.State = domain.StateFormatted
	return answer
}

func failedAnswer(q domain.Question, reason string) domain.Answer {
	return domain.Answer{
		QuestionID:    q.ID,
		DeclaredType:  q.DeclaredType,
		State:         domain.StateFailed,
		FailureReason: reason,
	}
}
