package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"recruithub/internal/candidate"
)

// StageUpdater 是看板对持久层的唯一依赖：只携带新阶段值的更新。
type StageUpdater interface {
	UpdateStage(ctx context.Context, id, stage string) (*candidate.Candidate, error)
}

// Board 维护一份对客户端可见的候选人集合，并实现阶段移动的乐观更新协议：
// 先快照、再推测性应用、持久化失败时整体回滚到快照。拖拽交互要求界面
// 立即响应，因此推测性应用发生在持久化确认之前。
type Board struct {
	mu    sync.Mutex
	byID  map[string]candidate.Candidate
	store StageUpdater
	now   func() time.Time
}

// NewBoard 构造看板。
func NewBoard(store StageUpdater) *Board {
	return &Board{
		byID:  make(map[string]candidate.Candidate),
		store: store,
		now:   time.Now,
	}
}

// Load 用一批候选人重置看板状态。
func (b *Board) Load(candidates []candidate.Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID = make(map[string]candidate.Candidate, len(candidates))
	for _, c := range candidates {
		b.byID[c.ID] = c
	}
}

// Candidate 返回某个候选人的当前可见状态。
func (b *Board) Candidate(id string) (candidate.Candidate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.byID[id]
	return c, ok
}

// Candidates 返回可见状态的快照，最近更新的排在最前。
func (b *Board) Candidates() []candidate.Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]candidate.Candidate, 0, len(b.byID))
	for _, c := range b.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// RequestTransition 把候选人移动到新阶段。任何阶段到任何阶段都允许，
// 这是标签移动而非受控状态机。未知 ID 直接忽略。持久化失败时，可见
// 状态回滚到移动前的完整快照（而不是只回滚阶段字段），错误原样返回。
// 成功后不再回读校正 last_updated 的精度差异。
func (b *Board) RequestTransition(ctx context.Context, id, stage string) error {
	b.mu.Lock()
	snapshot, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	speculative := snapshot
	speculative.PipelineStage = stage
	speculative.LastUpdated = b.now()
	b.byID[id] = speculative
	b.mu.Unlock()

	if _, err := b.store.UpdateStage(ctx, id, stage); err != nil {
		b.mu.Lock()
		b.byID[id] = snapshot
		b.mu.Unlock()
		return err
	}
	return nil
}

// GroupByStage 把候选人按阶段分列。阶段为空或不在当前配置中的候选人
// 归入第一个配置阶段（阶段被重命名或删除后的孤儿回落策略）。
func GroupByStage(candidates []candidate.Candidate, stages []string) map[string][]candidate.Candidate {
	grouped := make(map[string][]candidate.Candidate, len(stages))
	if len(stages) == 0 {
		return grouped
	}
	for _, stage := range stages {
		grouped[stage] = []candidate.Candidate{}
	}

	for _, c := range candidates {
		stage := c.PipelineStage
		if _, ok := grouped[stage]; !ok {
			stage = stages[0]
		}
		grouped[stage] = append(grouped[stage], c)
	}
	return grouped
}
