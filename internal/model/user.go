package model

// 用户状态
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline" // 离线哨兵值，成员列表默认排除
)

// User 用户实体（按请求读取的只读投影）
type User struct {
	ID       string   `json:"_id" yaml:"id"`
	Username string   `json:"username" yaml:"username"`
	Name     string   `json:"name,omitempty" yaml:"name"`
	Status   string   `json:"status,omitempty" yaml:"status"`
	Active   bool     `json:"active" yaml:"active"`
	Roles    []string `json:"roles,omitempty" yaml:"roles"`
}

// Valid 用户必须具备用户名才视为有效
func (u *User) Valid() bool {
	return u != nil && u.Username != ""
}
