package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruithub/internal/ai"
	"recruithub/internal/api/middleware"
)

// ProviderHandler 处理 AI 供应商配置的管理接口。响应中的密钥一律打码。
type ProviderHandler struct {
	providers *ai.ProviderStore
	logger    *slog.Logger
}

// NewProviderHandler 构造供应商配置处理器。
func NewProviderHandler(providers *ai.ProviderStore, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{providers: providers, logger: logger}
}

type providerResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	APIKey        string `json:"apiKey"`
	BaseURL       string `json:"baseURL,omitempty"`
	ParsingModel  string `json:"parsingModel"`
	MatchingModel string `json:"matchingModel"`
	Active        bool   `json:"active"`
}

func maskedProvider(p ai.Provider, activeID string) providerResponse {
	return providerResponse{
		ID:            p.ID,
		Name:          p.Name,
		APIKey:        ai.MaskAPIKey(p.APIKey),
		BaseURL:       p.BaseURL,
		ParsingModel:  p.ParsingModel,
		MatchingModel: p.MatchingModel,
		Active:        p.ID == activeID,
	}
}

// List 返回全部供应商配置与激活标记。
func (h *ProviderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	providers, err := h.providers.List(ctx)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list providers failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	activeID, err := h.providers.ActiveID(ctx)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load active provider failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	out := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		out = append(out, maskedProvider(p, activeID))
	}
	c.JSON(http.StatusOK, out)
}

// Create 新增供应商配置。
func (h *ProviderHandler) Create(c *gin.Context) {
	var payload ai.Provider
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	created, err := h.providers.Create(ctx, payload)
	if err != nil {
		if errors.Is(err, ai.ErrProviderIncomplete) {
			BadRequest(c, err.Error())
			return
		}
		middleware.LoggerFromContext(c).Error("create provider failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	activeID, _ := h.providers.ActiveID(ctx)
	c.JSON(http.StatusCreated, maskedProvider(*created, activeID))
}

// Update 覆盖供应商配置，apiKey 留空表示沿用原值。
func (h *ProviderHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var payload ai.Provider
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	updated, err := h.providers.Update(ctx, id, payload)
	switch {
	case errors.Is(err, ai.ErrProviderNotFound):
		NotFound(c, "provider not found")
		return
	case errors.Is(err, ai.ErrProviderIncomplete):
		BadRequest(c, err.Error())
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("update provider failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	activeID, _ := h.providers.ActiveID(ctx)
	c.JSON(http.StatusOK, maskedProvider(*updated, activeID))
}

// Delete 删除供应商配置，当前激活的供应商不允许删除。
func (h *ProviderHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	err := h.providers.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, ai.ErrProviderNotFound):
		NotFound(c, "provider not found")
		return
	case errors.Is(err, ai.ErrProviderActive):
		BadRequest(c, err.Error())
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("delete provider failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

type setActiveRequest struct {
	ID string `json:"id" binding:"required"`
}

// SetActive 切换当前激活的供应商。
func (h *ProviderHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	err := h.providers.SetActive(c.Request.Context(), req.ID)
	switch {
	case errors.Is(err, ai.ErrProviderNotFound):
		NotFound(c, "provider not found")
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("set active provider failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activeProviderId": req.ID})
}
