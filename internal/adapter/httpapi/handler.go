package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"
)

// Handler exposes ingestion, retrieval, and answer synthesis over HTTP.
type Handler struct {
	indexUsecase    usecase.IndexKnowledgeUsecase
	retrieveUsecase usecase.RetrieveContextUsecase
	answerUsecase   usecase.AnswerQuestionUsecase
	index           domain.VectorIndex
	collection      string
}

func NewHandler(
	indexUsecase usecase.IndexKnowledgeUsecase,
	retrieveUsecase usecase.RetrieveContextUsecase,
	answerUsecase usecase.AnswerQuestionUsecase,
	index domain.VectorIndex,
	collection string,
) *Handler {
	return &Handler{
		indexUsecase:    indexUsecase,
		retrieveUsecase: retrieveUsecase,
		answerUsecase:   answerUsecase,
		index:           index,
		collection:      collection,
	}
}

// Register mounts the API routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/v1/health", h.Health)
	e.POST("/v1/ingest", h.Ingest)
	e.POST("/v1/retrieve", h.Retrieve)
	e.POST("/v1/answers", h.Answer)
}

// IngestRequest carries one document to index.
type IngestRequest struct {
	Source        string `json:"source"`
	Text          string `json:"text"`
	ForceRecreate bool   `json:"force_recreate"`
}

// IngestResponse reports what the ingestion run produced.
type IngestResponse struct {
	ChunksProduced int            `json:"chunks_produced"`
	ChunksIndexed  int            `json:"chunks_indexed"`
	CountByType    map[string]int `json:"count_by_type"`
	CollectionSize int            `json:"collection_size"`
	ElapsedMs      int64          `json:"elapsed_ms"`
}

// Ingest chunks, embeds, and indexes a document.
// (POST /v1/ingest)
func (h *Handler) Ingest(ctx echo.Context) error {
	var req IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Source == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing source"})
	}
	if req.Text == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing text"})
	}

	output, err := h.indexUsecase.Execute(ctx.Request().Context(), usecase.IndexKnowledgeInput{
		Source:        req.Source,
		Text:          req.Text,
		ForceRecreate: req.ForceRecreate,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	byType := make(map[string]int, len(output.CountByType))
	for t, n := range output.CountByType {
		byType[string(t)] = n
	}
	return ctx.JSON(http.StatusOK, IngestResponse{
		ChunksProduced: output.ChunksProduced,
		ChunksIndexed:  output.ChunksIndexed,
		CountByType:    byType,
		CollectionSize: output.CollectionSize,
		ElapsedMs:      output.Elapsed.Milliseconds(),
	})
}

// RetrieveRequest asks for context chunks relevant to a question.
type RetrieveRequest struct {
	Question    string `json:"question"`
	TopKInitial int    `json:"top_k_initial"`
	TopNFinal   int    `json:"top_n_final"`
	ContentType string `json:"content_type"`
	Section     string `json:"section"`
}

// RetrievedItem is one context chunk in the response.
type RetrievedItem struct {
	ChunkID     string  `json:"chunk_id"`
	Text        string  `json:"text"`
	Section     string  `json:"section,omitempty"`
	ContentType string  `json:"content_type"`
	Importance  float64 `json:"importance"`
	Relevance   float32 `json:"relevance"`
}

// RetrieveResponse lists the retrieved chunks in final rank order.
type RetrieveResponse struct {
	Items    []RetrievedItem `json:"items"`
	Degraded bool            `json:"degraded"`
}

// Retrieve runs two-stage retrieval without answer generation.
// (POST /v1/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req RetrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Question == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing question"})
	}

	var filter *domain.SearchFilter
	if req.ContentType != "" || req.Section != "" {
		filter = &domain.SearchFilter{
			ContentType: domain.ContentType(req.ContentType),
			Section:     req.Section,
		}
	}

	output, err := h.retrieveUsecase.Execute(ctx.Request().Context(), usecase.RetrieveContextInput{
		Question:    req.Question,
		TopKInitial: req.TopKInitial,
		TopNFinal:   req.TopNFinal,
		Filter:      filter,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	items := make([]RetrievedItem, 0, len(output.Items))
	for _, item := range output.Items {
		items = append(items, RetrievedItem{
			ChunkID:     item.Chunk.ID,
			Text:        item.Chunk.Text,
			Section:     item.Chunk.Section,
			ContentType: string(item.Chunk.Type),
			Importance:  item.Chunk.Importance,
			Relevance:   item.Relevance,
		})
	}
	return ctx.JSON(http.StatusOK, RetrieveResponse{Items: items, Degraded: output.Degraded})
}

// AnswerRequest carries a batch of questions to answer.
type AnswerRequest struct {
	Questions []domain.Question `json:"questions"`
}

// AnswerResponse returns one answer per question, in request order.
type AnswerResponse struct {
	Answers []domain.Answer `json:"answers"`
	Failed  int             `json:"failed"`
}

// Answer synthesizes answers for a question batch.
// (POST /v1/answers)
func (h *Handler) Answer(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Questions) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing questions"})
	}
	for _, q := range req.Questions {
		if q.ID == "" {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question without question_id"})
		}
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerQuestionsInput{
		Questions: req.Questions,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	failed := 0
	for _, a := range output.Answers {
		if a.State == domain.StateFailed {
			failed++
		}
	}
	return ctx.JSON(http.StatusOK, AnswerResponse{Answers: output.Answers, Failed: failed})
}

// HealthResponse reports service liveness and collection size.
type HealthResponse struct {
	Status         string `json:"status"`
	Collection     string `json:"collection"`
	CollectionSize int    `json:"collection_size"`
}

// Health reports liveness and the indexed chunk count.
// (GET /v1/health)
func (h *Handler) Health(ctx echo.Context) error {
	size, err := h.index.Count(ctx.Request().Context(), h.collection)
	if err != nil {
		// The service is up even when the collection does not exist yet.
		size = 0
	}
	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		Collection:     h.collection,
		CollectionSize: size,
	})
}
