package matchmaker

import "time"

// JoinRequest 前端提交的匹配请求，身份取自 JWT，不信客户端
type JoinRequest struct {
	Pool      string `json:"pool" binding:"required"`      // 例如 "casual"、"ranked"
	TableSize int    `json:"tableSize" binding:"required"` // 2-4
}

// JoinResponse 返回是否已成桌；若已成桌则给出房间信息
type JoinResponse struct {
	Queued    bool     `json:"queued"`
	RoomID    string   `json:"roomId,omitempty"`
	Players   []string `json:"players,omitempty"`
	Pool      string   `json:"pool"`
	TableSize int      `json:"tableSize"`
}

// Room 组桌结果，交给 GameManager 开局
type Room struct {
	ID        string
	Pool      string
	TableSize int
	Players   []string // userID 列表，座位顺序即此顺序
	CreatedAt time.Time
}
