package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruithub/internal/database"
)

// activeProviderKey 是 app_settings 中记录激活供应商 ID 的键，值为 JSON 字符串或 null。
const activeProviderKey = "activeProviderId"

// ProviderGemini 是唯一支持多模态简历解析的供应商名。
const ProviderGemini = "Google Gemini"

var (
	ErrNoActiveProvider   = errors.New("no active AI provider is configured")
	ErrProviderNotFound   = errors.New("AI provider not found")
	ErrProviderActive     = errors.New("cannot delete the active provider")
	ErrProviderIncomplete = errors.New("missing required provider fields")
)

// Provider 是一套外部 AI 服务的接入配置。
type Provider struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	APIKey        string `json:"apiKey"`
	BaseURL       string `json:"baseURL,omitempty"`
	ParsingModel  string `json:"parsingModel"`
	MatchingModel string `json:"matchingModel"`
}

// MaskAPIKey 只保留密钥末四位用于展示。
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	tail := key
	if len(key) > 4 {
		tail = key[len(key)-4:]
	}
	return "••••••••••••" + tail
}

// ProviderStore 管理供应商配置与进程外的"当前激活供应商"选择。
// 激活状态通过显式的 ActiveID/SetActive 存取，而不是环境全局量。
type ProviderStore struct {
	db *gorm.DB
}

// NewProviderStore 构造供应商配置存储。
func NewProviderStore(db *gorm.DB) *ProviderStore {
	return &ProviderStore{db: db}
}

// List 返回全部供应商配置。
func (s *ProviderStore) List(ctx context.Context) ([]Provider, error) {
	var rows []database.AIProvider
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	out := make([]Provider, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

// Create 新增供应商配置；若此前没有激活的供应商，则自动激活这一个。
func (s *ProviderStore) Create(ctx context.Context, p Provider) (*Provider, error) {
	if p.Name == "" || p.APIKey == "" || p.ParsingModel == "" || p.MatchingModel == "" {
		return nil, ErrProviderIncomplete
	}

	p.ID = uuid.NewString()
	row := toRow(p)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		activeID, err := activeID(tx)
		if err != nil {
			return err
		}
		if activeID == "" {
			return setActive(tx, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &p, nil
}

// Update 覆盖供应商配置；apiKey 留空表示沿用原值。
func (s *ProviderStore) Update(ctx context.Context, id string, p Provider) (*Provider, error) {
	var existing database.AIProvider
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("load provider %s: %w", id, err)
	}

	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = existing.APIKey
	}

	updates := map[string]any{
		"name":           p.Name,
		"api_key":        apiKey,
		"base_url":       p.BaseURL,
		"parsing_model":  p.ParsingModel,
		"matching_model": p.MatchingModel,
	}
	if err := s.db.WithContext(ctx).
		Model(&database.AIProvider{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update provider %s: %w", id, err)
	}

	p.ID = id
	p.APIKey = apiKey
	return &p, nil
}

// Delete 删除供应商配置；当前激活的供应商不允许删除。
func (s *ProviderStore) Delete(ctx context.Context, id string) error {
	active, err := s.ActiveID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		return ErrProviderActive
	}

	res := s.db.WithContext(ctx).Delete(&database.AIProvider{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete provider %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// ActiveID 返回激活供应商的 ID，未设置时为空串。
func (s *ProviderStore) ActiveID(ctx context.Context) (string, error) {
	return activeID(s.db.WithContext(ctx))
}

// SetActive 切换激活供应商，目标必须已存在。
func (s *ProviderStore) SetActive(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&database.AIProvider{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check provider %s: %w", id, err)
	}
	if count == 0 {
		return ErrProviderNotFound
	}
	return setActive(s.db.WithContext(ctx), id)
}

// Active 解析当前激活的供应商配置。
func (s *ProviderStore) Active(ctx context.Context) (*Provider, error) {
	id, err := s.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNoActiveProvider
	}

	var row database.AIProvider
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("load active provider: %w", err)
	}

	p := fromRow(row)
	return &p, nil
}

func activeID(db *gorm.DB) (string, error) {
	var setting database.AppSetting
	err := db.First(&setting, "key = ?", activeProviderKey).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load active provider id: %w", err)
	}

	var id *string
	if err := json.Unmarshal(setting.Value, &id); err != nil || id == nil {
		return "", nil
	}
	return *id, nil
}

func setActive(db *gorm.DB, id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode active provider id: %w", err)
	}
	setting := database.AppSetting{Key: activeProviderKey, Value: data}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("save active provider id: %w", err)
	}
	return nil
}

func fromRow(row database.AIProvider) Provider {
	return Provider{
		ID:            row.ID,
		Name:          row.Name,
		APIKey:        row.APIKey,
		BaseURL:       row.BaseURL,
		ParsingModel:  row.ParsingModel,
		MatchingModel: row.MatchingModel,
	}
}

func toRow(p Provider) database.AIProvider {
	return database.AIProvider{
		ID:            p.ID,
		Name:          p.Name,
		APIKey:        p.APIKey,
		BaseURL:       p.BaseURL,
		ParsingModel:  p.ParsingModel,
		MatchingModel: p.MatchingModel,
	}
}
