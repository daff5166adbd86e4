package member

import (
	"fmt"
	"strings"

	"sudooom.im.roomgate/internal/model"
)

// Query 成员查询条件
//
// 同一个 Query 同时驱动计数和分页：Where 生成的条件被 COUNT 和 SELECT 共用，
// Match 是它在内存中的等价实现。Limit/Skip 只作用于记录，不影响总数。
//
// 已停用账号不在条件之内，总数会把它们算进去（已知偏差，保持现有行为）。
type Query struct {
	RoomID         string
	IncludeOffline bool
	Filter         string
	Limit          int // <= 0 表示不限制
	Skip           int // <= 0 表示不跳过
}

// Row 参与匹配的一行成员数据（订阅 + 用户）
type Row struct {
	RoomID   string
	UserID   string
	Username *string // 来自订阅
	Name     string
	Status   string
	Active   bool
}

// Normalize 规范化分页参数和过滤词
func (q Query) Normalize() Query {
	q.Filter = strings.TrimSpace(q.Filter)
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	return q
}

// Where 生成 SQL 条件和参数
// 约定表别名：s = subscriptions，u = users
func (q Query) Where() (string, []any) {
	q = q.Normalize()

	clauses := []string{"s.room_id = $1", "s.username IS NOT NULL"}
	args := []any{q.RoomID}

	if !q.IncludeOffline {
		args = append(args, model.StatusOffline)
		clauses = append(clauses, fmt.Sprintf("u.status <> $%d", len(args)))
	}

	if q.Filter != "" {
		args = append(args, "%"+escapeLike(q.Filter)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(s.username ILIKE $%d OR u.name ILIKE $%d)", n, n))
	}

	return strings.Join(clauses, " AND "), args
}

// OrderBy 全序排序：用户名按字节序升序，用户 ID 兜底
func (q Query) OrderBy() string {
	return `s.username COLLATE "C" ASC, u.id COLLATE "C" ASC`
}

// Page 生成 LIMIT/OFFSET 子句，参数序号从 next 开始
func (q Query) Page(next int) (string, []any) {
	q = q.Normalize()

	var (
		parts []string
		args  []any
	)
	if q.Limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT $%d", next))
		args = append(args, q.Limit)
		next++
	}
	if q.Skip > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET $%d", next))
		args = append(args, q.Skip)
	}
	return strings.Join(parts, " "), args
}

// Match 内存中判断一行是否满足条件，语义与 Where 一致
//
// 过滤词按 Unicode 简单小写比较；Postgres 的 ILIKE 取决于数据库 locale，
// 非 ASCII 名称在两种存储上的匹配结果可能不同
func (q Query) Match(r Row) bool {
	q = q.Normalize()

	if r.RoomID != q.RoomID || r.Username == nil {
		return false
	}
	if !q.IncludeOffline && r.Status == model.StatusOffline {
		return false
	}
	if q.Filter != "" {
		needle := strings.ToLower(q.Filter)
		if !strings.Contains(strings.ToLower(*r.Username), needle) &&
			!strings.Contains(strings.ToLower(r.Name), needle) {
			return false
		}
	}
	return true
}

// Less 与 OrderBy 一致的排序比较
func Less(a, b Row) bool {
	ua, ub := deref(a.Username), deref(b.Username)
	if ua != ub {
		return ua < ub
	}
	return a.UserID < b.UserID
}

// Window 对已排序的结果应用 Skip/Limit
func (q Query) Window(n int) (start, end int) {
	q = q.Normalize()

	start = q.Skip
	if start > n {
		start = n
	}
	end = n
	if q.Limit > 0 && q.Limit < n-start {
		end = start + q.Limit
	}
	return start, end
}

// ToMember 转换为列表记录
func (r Row) ToMember() model.Member {
	return model.Member{
		ID:       r.UserID,
		Username: deref(r.Username),
		Name:     r.Name,
		Status:   r.Status,
		Active:   r.Active,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// escapeLike 转义 LIKE 通配符，过滤词按字面子串匹配
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
