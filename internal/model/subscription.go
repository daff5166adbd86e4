package model

// Subscription 用户与房间的订阅关系
// Username 为空的订阅表示尚未解析出真实用户，不出现在成员列表中
type Subscription struct {
	ID       string   `json:"_id" yaml:"id"`
	RoomID   string   `json:"rid" yaml:"room_id"`
	UserID   string   `json:"uid" yaml:"user_id"`
	Username *string  `json:"username,omitempty" yaml:"username"`
	Roles    []string `json:"roles,omitempty" yaml:"roles"`
}

// Member 成员列表记录
type Member struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"`
	Active   bool   `json:"active"`
}

// MemberPage 成员分页结果
type MemberPage struct {
	Total   int      `json:"total"`
	Records []Member `json:"records"`
}
