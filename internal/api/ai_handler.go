package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"recruithub/internal/ai"
	"recruithub/internal/api/middleware"
	"recruithub/internal/candidate"
	"recruithub/internal/errcode"
)

// AIHandler 把简历解析、职位匹配与面试问题生成代理到激活的 AI 供应商。
// 上游失败按类别映射，前端据此区分密钥失效、限流与模型配置错误。
type AIHandler struct {
	client             *ai.Client
	store              *candidate.Store
	redis              redis.UniversalClient
	logger             *slog.Logger
	rateLimitPerMinute int
}

// NewAIHandler 构造 AI 代理处理器。
func NewAIHandler(client *ai.Client, store *candidate.Store, redisClient redis.UniversalClient, logger *slog.Logger, rateLimitPerMinute int) *AIHandler {
	return &AIHandler{
		client:             client,
		store:              store,
		redis:              redisClient,
		logger:             logger,
		rateLimitPerMinute: rateLimitPerMinute,
	}
}

// allow 做每用户每分钟的限流，通过时返回 true。
func (h *AIHandler) allow(c *gin.Context) bool {
	if h.redis == nil || h.rateLimitPerMinute <= 0 {
		return true
	}

	userID := "anonymous"
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		userID = claims.UserID
	}

	key := "rate:ai:" + userID + ":" + time.Now().UTC().Format("200601021504")
	count, err := incrWithTTL(c.Request.Context(), h.redis, key, time.Minute)
	if err != nil {
		// Redis 故障时放行，限流是保护而不是前置条件。
		return true
	}
	if count > int64(h.rateLimitPerMinute) {
		ErrorCode(c, http.StatusTooManyRequests, errcode.RateLimited, "AI request rate limit exceeded")
		return false
	}
	return true
}

type parseResumeRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ParseResume 把上传的简历交给 Gemini 做多模态解析。
func (h *AIHandler) ParseResume(c *gin.Context) {
	if !h.allow(c) {
		return
	}

	var req parseResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, err.Error())
		return
	}

	raw, err := h.client.ParseResume(c.Request.Context(), candidate.OriginalResume{
		Name:    req.Name,
		Type:    req.Type,
		Content: req.Content,
	})
	if err != nil {
		h.writeAIError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

type matchRequest struct {
	JobDescription string `json:"jobDescription" binding:"required"`
}

// MatchCandidates 让模型按职位描述给全部候选人排序，返回前五名。
func (h *AIHandler) MatchCandidates(c *gin.Context) {
	if !h.allow(c) {
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, err.Error())
		return
	}

	ctx := c.Request.Context()
	candidates, err := h.store.List(ctx)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list candidates for matching failed", slog.Any("error", err))
		ErrorCode(c, http.StatusInternalServerError, errcode.SystemError, "internal error")
		return
	}

	results, err := h.client.MatchCandidates(ctx, req.JobDescription, candidates)
	if err != nil {
		h.writeAIError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

type generateQuestionsRequest struct {
	CandidateID    string `json:"candidateId" binding:"required"`
	JobDescription string `json:"jobDescription" binding:"required"`
}

// GenerateQuestions 基于候选人画像与职位描述生成面试问题。
func (h *AIHandler) GenerateQuestions(c *gin.Context) {
	if !h.allow(c) {
		return
	}

	var req generateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, err.Error())
		return
	}

	ctx := c.Request.Context()
	cand, err := h.store.Get(ctx, req.CandidateID)
	if err != nil {
		if errors.Is(err, candidate.ErrNotFound) {
			ErrorCode(c, http.StatusNotFound, errcode.ResourceMissing, "candidate not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load candidate for questions failed", slog.Any("error", err))
		ErrorCode(c, http.StatusInternalServerError, errcode.SystemError, "internal error")
		return
	}

	questions, err := h.client.GenerateInterviewQuestions(ctx, *cand, req.JobDescription)
	if err != nil {
		h.writeAIError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// writeAIError 把网关错误翻译成对前端有指导意义的状态码与错误码。
func (h *AIHandler) writeAIError(c *gin.Context, err error) {
	logger := middleware.LoggerFromContext(c)

	var provErr *ai.ProviderError
	switch {
	case errors.Is(err, ai.ErrNoActiveProvider):
		ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, err.Error())
	case errors.Is(err, ai.ErrParseUnsupported):
		ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, err.Error())
	case errors.As(err, &provErr):
		logger.Warn("AI provider error",
			slog.String("provider", provErr.Provider),
			slog.Int("status", provErr.Status),
		)
		switch provErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			ErrorCode(c, http.StatusUnauthorized, errcode.ProviderError, "the AI provider rejected the API key")
		case http.StatusTooManyRequests:
			ErrorCode(c, http.StatusTooManyRequests, errcode.RateLimited, "the AI provider rate limit was exceeded")
		case http.StatusNotFound:
			ErrorCode(c, http.StatusBadRequest, errcode.InvalidInput, "the configured model was not found at the provider")
		default:
			ErrorCode(c, http.StatusBadGateway, errcode.ProviderError, "the AI provider returned an error")
		}
	case errors.Is(err, ai.ErrMalformedReply):
		logger.Warn("AI reply unusable", slog.Any("error", err))
		ErrorCode(c, http.StatusInternalServerError, errcode.ProviderBadReply, "the AI returned a malformed response")
	case isTransportError(err):
		logger.Warn("AI provider unreachable", slog.Any("error", err))
		ErrorCode(c, http.StatusBadGateway, errcode.ProviderError, "the AI provider is unreachable")
	default:
		logger.Error("AI request failed", slog.Any("error", err))
		ErrorCode(c, http.StatusInternalServerError, errcode.SystemError, "internal error")
	}
}

// isTransportError 区分上游拒绝（ProviderError）与根本没打通的网络失败。
func isTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
