package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruithub/internal/database"
)

// settingsKey 是 app_settings 表中阶段列表的键。
const settingsKey = "pipelineStages"

// minStages 是阶段列表允许的最小长度。
const minStages = 2

// DefaultStages 是初始的流水线阶段。Hired/Rejected 只是约定俗成的末端标签，
// 系统不阻止候选人再被移出。
var DefaultStages = []string{"Sourced", "Screening", "Interview", "Offer", "Hired", "Rejected"}

var (
	ErrStageEmpty    = errors.New("stage name cannot be empty")
	ErrStageExists   = errors.New("stage name already exists")
	ErrStageNotFound = errors.New("stage not found")
	ErrMinStages     = errors.New("at least two pipeline stages are required")
)

// SettingsStore 把有序的阶段名列表持久化在键值配置表中。
// 重命名或删除阶段都不会级联修改候选人已持久化的 pipeline_stage，
// 这些候选人会在展示端回落到第一个阶段（见 GroupByStage）。
type SettingsStore struct {
	db *gorm.DB
}

// NewSettingsStore 构造阶段配置存储。
func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Stages 返回当前配置的阶段列表；尚未配置时落库并返回默认列表。
func (s *SettingsStore) Stages(ctx context.Context) ([]string, error) {
	var setting database.AppSetting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", settingsKey).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		stages := append([]string(nil), DefaultStages...)
		if err := s.save(ctx, stages); err != nil {
			return nil, err
		}
		return stages, nil
	case err != nil:
		return nil, fmt.Errorf("load pipeline stages: %w", err)
	}

	var stages []string
	if err := json.Unmarshal(setting.Value, &stages); err != nil || len(stages) == 0 {
		return append([]string(nil), DefaultStages...), nil
	}
	return stages, nil
}

// AddStage 追加一个新阶段。名称去除首尾空白后不得为空，且与现有名称
// 大小写敏感地精确比较。
func (s *SettingsStore) AddStage(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrStageEmpty
	}

	stages, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}
	if contains(stages, name) {
		return nil, ErrStageExists
	}

	stages = append(stages, name)
	if err := s.save(ctx, stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// RenameStage 把列表中所有等于 oldName 的项替换为 newName。
// 不会修改持有旧阶段名的候选人（孤儿策略）。
func (s *SettingsStore) RenameStage(ctx context.Context, oldName, newName string) ([]string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, ErrStageEmpty
	}

	stages, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(stages, oldName) {
		return nil, ErrStageNotFound
	}
	if contains(stages, newName) && newName != oldName {
		return nil, ErrStageExists
	}

	for i, stage := range stages {
		if stage == oldName {
			stages[i] = newName
		}
	}
	if err := s.save(ctx, stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// DeleteStage 从列表中移除一个阶段；剩余阶段不足两个时拒绝。
func (s *SettingsStore) DeleteStage(ctx context.Context, name string) ([]string, error) {
	stages, err := s.Stages(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(stages, name) {
		return nil, ErrStageNotFound
	}
	if len(stages) <= minStages {
		return nil, ErrMinStages
	}

	out := make([]string, 0, len(stages)-1)
	for _, stage := range stages {
		if stage != name {
			out = append(out, stage)
		}
	}
	if err := s.save(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace 整体覆盖阶段列表（管理界面的保存语义）。
func (s *SettingsStore) Replace(ctx context.Context, stages []string) ([]string, error) {
	cleaned := make([]string, 0, len(stages))
	for _, stage := range stages {
		stage = strings.TrimSpace(stage)
		if stage == "" {
			return nil, ErrStageEmpty
		}
		if contains(cleaned, stage) {
			return nil, ErrStageExists
		}
		cleaned = append(cleaned, stage)
	}
	if len(cleaned) < minStages {
		return nil, ErrMinStages
	}
	if err := s.save(ctx, cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

func (s *SettingsStore) save(ctx context.Context, stages []string) error {
	data, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("encode pipeline stages: %w", err)
	}
	setting := database.AppSetting{Key: settingsKey, Value: data}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error; err != nil {
		return fmt.Errorf("save pipeline stages: %w", err)
	}
	return nil
}

func contains(stages []string, name string) bool {
	for _, stage := range stages {
		if stage == name {
			return true
		}
	}
	return false
}
