package engine

import (
	"time"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/pattern"
)

// Status 对局阶段
type Status uint8

const (
	StatusWaiting       Status = iota // 尚未开局
	StatusTributeReturn               // 进贡回贡阶段，禁止出牌
	StatusPlaying                     // 正常出牌
)

func (s Status) String() string {
	switch s {
	case StatusTributeReturn:
		return "tribute_return"
	case StatusPlaying:
		return "playing"
	default:
		return "waiting"
	}
}

// SeatKind 座位由真人还是机器人占据
type SeatKind uint8

const (
	SeatHuman SeatKind = iota
	SeatBot
)

// Seat 逻辑座位，断线不会移除座位，只标记 Connected
type Seat struct {
	Index        int
	UserID       string
	Kind         SeatKind
	Connected    bool
	ReconnectKey string
	Hand         card.Cards
}

// TablePlay 本局出牌记录（含过牌），只追加不修改
type TablePlay struct {
	Seat  int        `json:"seat"`
	Cards card.Cards `json:"cards,omitempty"`
	Pass  bool       `json:"pass,omitempty"`
}

// Tribute 一笔进贡：From 交出 Card 给 To，To 还没回贡前 Resolved 为 false
type Tribute struct {
	From     int
	To       int
	Card     card.Card
	Returned card.Card
	Resolved bool
}

// GameState 单个房间的权威对局状态，只被该房间的动作循环改动
type GameState struct {
	RoomID        string
	Seats         []*Seat
	Current       int              // 当前出牌座位
	LastPlay      *pattern.Pattern // 台面上待压的牌，nil 表示自由出牌
	LastPlayOwner int
	PassesInRow   int
	TablePlays    []TablePlay
	FinishedOrder []int // 出完牌的座位，按出完顺序
	Revolution    bool  // 本局是否处于革命（数字牌倒序）
	Status        Status
	Multiplier    int
	RoundNo       int
	Halted        bool
	Tributes      []*Tribute
}

// finished 座位是否已出完牌
func (s *GameState) finished(seat int) bool {
	for _, f := range s.FinishedOrder {
		if f == seat {
			return true
		}
	}
	return false
}

// activeCount 还有手牌的座位数
func (s *GameState) activeCount() int {
	return len(s.Seats) - len(s.FinishedOrder)
}

// nextActive 从 seat 之后找第一个未出完的座位
func (s *GameState) nextActive(seat int) int {
	n := len(s.Seats)
	for i := 1; i <= n; i++ {
		idx := (seat + i) % n
		if !s.finished(idx) {
			return idx
		}
	}
	return seat
}

// cardTotal 手牌 + 本局台面记录的总张数，守恒律校验用
func (s *GameState) cardTotal() int {
	total := 0
	for _, seat := range s.Seats {
		total += len(seat.Hand)
	}
	for _, tp := range s.TablePlays {
		total += len(tp.Cards)
	}
	return total
}

// SeatView 投影中的座位信息，Hand 只对本人可见
type SeatView struct {
	Index     int        `json:"index"`
	UserID    string     `json:"userId"`
	IsBot     bool       `json:"isBot"`
	Connected bool       `json:"connected"`
	HandCount int        `json:"handCount"`
	Hand      card.Cards `json:"hand,omitempty"`
}

// StateView 发给单个座位的状态投影
type StateView struct {
	RoomID        string           `json:"roomId"`
	You           int              `json:"you"`
	Status        string           `json:"status"`
	Current       int              `json:"current"`
	LastPlay      *pattern.Pattern `json:"lastPlay,omitempty"`
	LastPlayOwner int              `json:"lastPlayOwner"`
	PassesInRow   int              `json:"passesInRow"`
	Revolution    bool             `json:"revolution"`
	Multiplier    int              `json:"multiplier"`
	RoundNo       int              `json:"roundNo"`
	FinishedOrder []int            `json:"finishedOrder"`
	Seats         []SeatView       `json:"seats"`
}

// View 生成某个座位视角的投影，其他座位的手牌只给张数
func (s *GameState) View(viewer int) StateView {
	seats := make([]SeatView, len(s.Seats))
	for i, seat := range s.Seats {
		sv := SeatView{
			Index:     i,
			UserID:    seat.UserID,
			IsBot:     seat.Kind == SeatBot,
			Connected: seat.Connected,
			HandCount: len(seat.Hand),
		}
		if i == viewer {
			sv.Hand = seat.Hand.Clone()
		}
		seats[i] = sv
	}
	return StateView{
		RoomID:        s.RoomID,
		You:           viewer,
		Status:        s.Status.String(),
		Current:       s.Current,
		LastPlay:      s.LastPlay,
		LastPlayOwner: s.LastPlayOwner,
		PassesInRow:   s.PassesInRow,
		Revolution:    s.Revolution,
		Multiplier:    s.Multiplier,
		RoundNo:       s.RoundNo,
		FinishedOrder: append([]int(nil), s.FinishedOrder...),
		Seats:         seats,
	}
}

// TributeOutcome 持久化用的进贡结果
type TributeOutcome struct {
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Card       card.Card `json:"card"`
	Returned   card.Card `json:"returned"`
}

// RoundResult 单局结算结果，交给持久化边界落库
type RoundResult struct {
	RoomID        string           `json:"roomId"`
	RoundNo       int              `json:"roundNo"`
	FinishedOrder []string         `json:"finishedOrder"` // userID 按名次
	Multiplier    int              `json:"multiplier"`
	Scores        map[string]int   `json:"scores"` // userID -> 积分变化
	Tributes      []TributeOutcome `json:"tributes,omitempty"`
	FinishedAt    time.Time        `json:"finishedAt"`
}

// positionPoints 各名次的基础分权重
func positionPoints(seats int) []int {
	switch seats {
	case 2:
		return []int{1, -1}
	case 3:
		return []int{1, 0, -1}
	default:
		return []int{2, 1, -1, -2}
	}
}
