package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"recruithub/internal/api/middleware"
	"recruithub/internal/candidate"
	"recruithub/internal/pipeline"
)

// boardEventsChannel 是看板实时事件的 Redis 频道，WebSocket 端订阅它。
const boardEventsChannel = "board:events"

// CandidateHandler 处理候选人的增删改查以及阶段移动。
type CandidateHandler struct {
	store    *candidate.Store
	board    *pipeline.Board
	settings *pipeline.SettingsStore
	redis    redis.UniversalClient
	logger   *slog.Logger
}

// NewCandidateHandler 构造候选人处理器。
func NewCandidateHandler(store *candidate.Store, board *pipeline.Board, settings *pipeline.SettingsStore, redisClient redis.UniversalClient, logger *slog.Logger) *CandidateHandler {
	return &CandidateHandler{
		store:    store,
		board:    board,
		settings: settings,
		redis:    redisClient,
		logger:   logger,
	}
}

// List 返回全部候选人，并用结果刷新看板的可见状态。
func (h *CandidateHandler) List(c *gin.Context) {
	candidates, err := h.store.List(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list candidates failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.board.Load(candidates)
	c.JSON(http.StatusOK, candidates)
}

// Create 新建候选人。没有指定阶段时落在当前配置的第一个阶段。
func (h *CandidateHandler) Create(c *gin.Context) {
	var payload candidate.Candidate
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if payload.PipelineStage == "" {
		stages, err := h.settings.Stages(ctx)
		if err != nil {
			logger.Error("load pipeline stages failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		payload.PipelineStage = stages[0]
	}

	created, err := h.store.Create(ctx, payload)
	switch {
	case errors.Is(err, candidate.ErrInvalidInput):
		BadRequest(c, err.Error())
		return
	case errors.Is(err, candidate.ErrDuplicateEmail):
		Conflict(c, "a candidate with this email already exists")
		return
	case err != nil:
		logger.Error("create candidate failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("candidate created", slog.String("candidate_id", created.ID))
	c.JSON(http.StatusCreated, created)
}

// Update 整体替换候选人资料，子集合字段按提交内容重写。
func (h *CandidateHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var payload candidate.Candidate
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := middleware.LoggerFromContext(c)
	updated, err := h.store.Update(c.Request.Context(), id, payload)
	switch {
	case errors.Is(err, candidate.ErrInvalidInput):
		BadRequest(c, err.Error())
		return
	case errors.Is(err, candidate.ErrNotFound):
		NotFound(c, "candidate not found")
		return
	case errors.Is(err, candidate.ErrDuplicateEmail):
		Conflict(c, "a candidate with this email already exists")
		return
	case err != nil:
		logger.Error("update candidate failed", slog.Any("error", err), slog.String("candidate_id", id))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, updated)
}

type updateStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

type boardEvent struct {
	Type        string `json:"type"`
	CandidateID string `json:"candidateId"`
	Stage       string `json:"stage,omitempty"`
}

// UpdateStage 把候选人移动到新阶段。看板先推测性应用，持久化失败再回滚。
func (h *CandidateHandler) UpdateStage(c *gin.Context) {
	id := c.Param("id")

	var req updateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	// 看板在进程重启后是空的，此时先补一次全量装载。
	if _, known := h.board.Candidate(id); !known {
		candidates, err := h.store.List(ctx)
		if err != nil {
			logger.Error("reload board failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		h.board.Load(candidates)
	}

	if _, known := h.board.Candidate(id); !known {
		NotFound(c, "candidate not found")
		return
	}

	if err := h.board.RequestTransition(ctx, id, req.Stage); err != nil {
		if errors.Is(err, candidate.ErrNotFound) {
			NotFound(c, "candidate not found")
			return
		}
		logger.Error("stage transition failed", slog.Any("error", err),
			slog.String("candidate_id", id), slog.String("stage", req.Stage))
		Internal(c, "internal error")
		return
	}

	h.publishEvent(c, boardEvent{Type: "stage_changed", CandidateID: id, Stage: req.Stage})

	updated, _ := h.board.Candidate(id)
	c.JSON(http.StatusOK, updated)
}

// Delete 删除候选人，子表行靠级联删除清理。
func (h *CandidateHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, candidate.ErrNotFound) {
			NotFound(c, "candidate not found")
			return
		}
		middleware.LoggerFromContext(c).Error("delete candidate failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.publishEvent(c, boardEvent{Type: "candidate_deleted", CandidateID: id})
	c.Status(http.StatusNoContent)
}

// publishEvent 向看板频道广播事件。广播失败只记日志，不影响请求结果。
func (h *CandidateHandler) publishEvent(c *gin.Context, event boardEvent) {
	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := h.redis.Publish(c.Request.Context(), boardEventsChannel, payload).Err(); err != nil {
		middleware.LoggerFromContext(c).Warn("publish board event failed", slog.Any("error", err))
	}
}
