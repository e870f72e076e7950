package candidate

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidInput 表示缺少 name 或 email 等必填字段，未发起任何持久化操作。
	ErrInvalidInput = errors.New("candidate name and email are required")

	// ErrDuplicateEmail 表示 email 唯一约束冲突，调用方应提示用户修正而非重试。
	ErrDuplicateEmail = errors.New("a candidate with this email already exists")

	// ErrNotFound 表示按 ID 操作时候选人不存在。
	ErrNotFound = errors.New("candidate not found")
)

// isUniqueViolation 判断错误是否为唯一约束冲突（PostgreSQL: 23505）。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	// 兜底：测试用 SQLite 与部分代理会把错误包装成字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint failed") ||
		strings.Contains(lower, "duplicate key value")
}
