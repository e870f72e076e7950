package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruithub/internal/api/middleware"
	"recruithub/internal/pipeline"
)

// SettingsHandler 处理流水线阶段配置。
type SettingsHandler struct {
	settings *pipeline.SettingsStore
	logger   *slog.Logger
}

// NewSettingsHandler 构造阶段配置处理器。
func NewSettingsHandler(settings *pipeline.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// Stages 返回当前配置的阶段列表。
func (h *SettingsHandler) Stages(c *gin.Context) {
	stages, err := h.settings.Stages(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("load pipeline stages failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type addStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddStage 追加一个新阶段。
func (h *SettingsHandler) AddStage(c *gin.Context) {
	var req addStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	stages, err := h.settings.AddStage(c.Request.Context(), req.Name)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type renameStageRequest struct {
	OldName string `json:"oldName" binding:"required"`
	NewName string `json:"newName" binding:"required"`
}

// RenameStage 重命名阶段。候选人身上的旧阶段名不会被级联修改。
func (h *SettingsHandler) RenameStage(c *gin.Context) {
	var req renameStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	stages, err := h.settings.RenameStage(c.Request.Context(), req.OldName, req.NewName)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type deleteStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// DeleteStage 删除阶段，剩余阶段不足两个时拒绝。
func (h *SettingsHandler) DeleteStage(c *gin.Context) {
	var req deleteStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	stages, err := h.settings.DeleteStage(c.Request.Context(), req.Name)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type replaceStagesRequest struct {
	Stages []string `json:"stages" binding:"required"`
}

// ReplaceStages 用提交的列表整体覆盖阶段配置。
func (h *SettingsHandler) ReplaceStages(c *gin.Context) {
	var req replaceStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	stages, err := h.settings.Replace(c.Request.Context(), req.Stages)
	if err != nil {
		h.writeStageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

func (h *SettingsHandler) writeStageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrStageEmpty), errors.Is(err, pipeline.ErrMinStages):
		BadRequest(c, err.Error())
	case errors.Is(err, pipeline.ErrStageExists):
		Conflict(c, err.Error())
	case errors.Is(err, pipeline.ErrStageNotFound):
		NotFound(c, err.Error())
	default:
		middleware.LoggerFromContext(c).Error("pipeline stage operation failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}
