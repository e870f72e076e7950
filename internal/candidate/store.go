package candidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"recruithub/internal/database"
)

// DefaultStage 是未配置流水线时的兜底阶段值。
const DefaultStage = "Sourced"

// Store 以事务方式读写规范化后的候选人多表结构，形状转换交给 mapper。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore 构造候选人存储。
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Create 校验必填字段后在单个事务内写入标量行与全部子表行。
// email 唯一约束冲突映射为 ErrDuplicateEmail。提交后重新读取，
// 以带回服务端生成的 id 与 createdAt。
func (s *Store) Create(ctx context.Context, c Candidate) (*Candidate, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return nil, ErrInvalidInput
	}

	c.ID = uuid.NewString()
	c.LastUpdated = time.Now()
	if c.PipelineStage == "" {
		c.PipelineStage = DefaultStage
	}

	row, children := Decompose(c)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return insertChildren(tx, children)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	return s.Get(ctx, c.ID)
}

// Update 在单个事务内整体替换候选人：全列更新标量行并把 last_updated
// 推进到当前时间，随后删除七张子表中该候选人的全部行并按新输入重建。
// 先删后插是本设计选定的 replace-all 语义，事务边界保证不会留下部分子行。
func (s *Store) Update(ctx context.Context, id string, c Candidate) (*Candidate, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return nil, ErrInvalidInput
	}

	c.ID = id
	c.LastUpdated = time.Now()
	row, children := Decompose(c)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&database.Candidate{}).
			Where("id = ?", id).
			Select("*").
			Omit("id", "created_at").
			Updates(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		return insertChildren(tx, children)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicateEmail
		default:
			return nil, fmt.Errorf("update candidate %s: %w", id, err)
		}
	}

	return s.Get(ctx, id)
}

// UpdateStage 只改动 pipeline_stage 与 last_updated 两列。
func (s *Store) UpdateStage(ctx context.Context, id, stage string) (*Candidate, error) {
	res := s.db.WithContext(ctx).
		Model(&database.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pipeline_stage": stage,
			"last_updated":   time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update candidate stage %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, id)
}

// Delete 删除标量行，子表行依赖存储层的级联删除，不做应用层循环。
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&database.Candidate{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete candidate %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 返回全部候选人，最近更新的排在最前。没有任何候选人时直接返回，
// 不触发子表查询；否则七张子表并发查询，范围严格限定在刚取回的 ID 集合。
func (s *Store) List(ctx context.Context) ([]Candidate, error) {
	var rows []database.Candidate
	if err := s.db.WithContext(ctx).
		Order("last_updated DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if len(rows) == 0 {
		return []Candidate{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	children, err := s.fetchChildren(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	out, orphans := Recompose(rows, children)
	if orphans > 0 {
		s.logger.Warn("recompose skipped child rows referencing unknown candidates",
			slog.Int("orphan_rows", orphans),
		)
	}
	return out, nil
}

// Get 读取并重组单个候选人。
func (s *Store) Get(ctx context.Context, id string) (*Candidate, error) {
	var row database.Candidate
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}

	children, err := s.fetchChildren(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}

	out, orphans := Recompose([]database.Candidate{row}, children)
	if orphans > 0 {
		s.logger.Warn("recompose skipped child rows referencing unknown candidates",
			slog.String("candidate_id", id),
			slog.Int("orphan_rows", orphans),
		)
	}
	return &out[0], nil
}

// fetchChildren 并发抓取七张子表，全部以 candidate_id 限定范围。
func (s *Store) fetchChildren(ctx context.Context, ids []string) (ChildRows, error) {
	var children ChildRows

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Skills).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Languages).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Certificates).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Industries).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Locations).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Experience).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("candidate_id IN ?", ids).Find(&children.Education).Error
	})

	if err := g.Wait(); err != nil {
		return ChildRows{}, err
	}
	return children, nil
}

func insertChildren(tx *gorm.DB, children ChildRows) error {
	if len(children.Skills) > 0 {
		if err := tx.Create(&children.Skills).Error; err != nil {
			return err
		}
	}
	if len(children.Languages) > 0 {
		if err := tx.Create(&children.Languages).Error; err != nil {
			return err
		}
	}
	if len(children.Certificates) > 0 {
		if err := tx.Create(&children.Certificates).Error; err != nil {
			return err
		}
	}
	if len(children.Industries) > 0 {
		if err := tx.Create(&children.Industries).Error; err != nil {
			return err
		}
	}
	if len(children.Locations) > 0 {
		if err := tx.Create(&children.Locations).Error; err != nil {
			return err
		}
	}
	if len(children.Experience) > 0 {
		if err := tx.Create(&children.Experience).Error; err != nil {
			return err
		}
	}
	if len(children.Education) > 0 {
		if err := tx.Create(&children.Education).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteChildren(tx *gorm.DB, id string) error {
	deletes := []any{
		&database.CandidateSkill{},
		&database.CandidateLanguage{},
		&database.CandidateCertificate{},
		&database.CandidateIndustry{},
		&database.CandidateLocation{},
		&database.CandidateExperience{},
		&database.CandidateEducation{},
	}
	for _, model := range deletes {
		if err := tx.Where("candidate_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
