package model

// RoomType 房间类型
type RoomType string

const (
	RoomTypePublic   RoomType = "c" // 公开频道
	RoomTypePrivate  RoomType = "p" // 私有群组
	RoomTypeDirect   RoomType = "d" // 私聊
	RoomTypeLivechat RoomType = "l" // 在线客服
)

// Room 房间实体
type Room struct {
	ID           string   `json:"_id" yaml:"id"`
	Type         RoomType `json:"t" yaml:"type"`
	Name         string   `json:"name,omitempty" yaml:"name"`
	Broadcast    bool     `json:"broadcast,omitempty" yaml:"broadcast"`
	ReadOnly     bool     `json:"ro,omitempty" yaml:"read_only"`
	TeamID       string   `json:"teamId,omitempty" yaml:"team_id"`
	TeamMain     bool     `json:"teamMain,omitempty" yaml:"team_main"`
	OwnerID      string   `json:"ownerId,omitempty" yaml:"owner_id"`
	UIDs         []string `json:"uids,omitempty" yaml:"uids"`
	ServedBy     string   `json:"servedBy,omitempty" yaml:"served_by"`
	VisitorToken string   `json:"-" yaml:"visitor_token"`

	// Username 访问者用户名，仅用于展示，不参与权限判断
	Username string `json:"username,omitempty" yaml:"-"`
}

// HasParticipant 检查用户是否为私聊参与者
func (r *Room) HasParticipant(userID string) bool {
	for _, uid := range r.UIDs {
		if uid == userID {
			return true
		}
	}
	return false
}

// TeamType 团队类型
type TeamType int

const (
	TeamTypePublic  TeamType = 0
	TeamTypePrivate TeamType = 1
)

// Team 团队实体
type Team struct {
	ID         string   `json:"_id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Type       TeamType `json:"type" yaml:"type"`
	MainRoomID string   `json:"roomId" yaml:"main_room_id"`
}
