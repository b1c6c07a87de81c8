package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/engine"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/matchmaker"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/storage"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/websocket"
)

var (
	ErrRoomFull     = errors.New("room full")
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("player not in room")
	ErrBadReconnect = errors.New("reconnect key mismatch")
)

// ResultSink 结算结果的持久化边界
type ResultSink interface {
	SaveRoundResult(result *engine.RoundResult) error
}

// Room 房间元数据，对局状态在 engine 里
type Room struct {
	ID        string
	Owner     string
	Capacity  int // 2-4
	Players   []string
	Started   bool
	CreatedAt time.Time
}

// GameManager 管理所有房间和对局
type GameManager struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	engines      map[string]*engine.Engine // roomID → engine
	playerToRoom map[string]string         // userID → roomID
	hub          websocket.HubInterface
	cfg          engine.Config
	sink         ResultSink
}

func NewGameManager(hub websocket.HubInterface, cfg engine.Config, sink ResultSink) *GameManager {
	return &GameManager{
		rooms:        make(map[string]*Room),
		engines:      make(map[string]*engine.Engine),
		playerToRoom: make(map[string]string),
		hub:          hub,
		cfg:          cfg,
		sink:         sink,
	}
}

// CreateRoom 开房间，房主自动占第一个座位
func (m *GameManager) CreateRoom(owner string, capacity int) (*Room, error) {
	if capacity < 2 || capacity > 4 {
		return nil, fmt.Errorf("invalid capacity %d", capacity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if roomID, ok := m.playerToRoom[owner]; ok {
		return nil, fmt.Errorf("player %s already in room %s", owner, roomID)
	}

	room := &Room{
		ID:        uuid.NewString(),
		Owner:     owner,
		Capacity:  capacity,
		Players:   []string{owner},
		CreatedAt: time.Now(),
	}
	m.rooms[room.ID] = room
	m.playerToRoom[owner] = room.ID
	return room, nil
}

// JoinRoom 进房间占座
func (m *GameManager) JoinRoom(roomID, userID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if len(room.Players) >= room.Capacity {
		return nil, ErrRoomFull
	}
	for _, p := range room.Players {
		if p == userID {
			return room, nil
		}
	}
	room.Players = append(room.Players, userID)
	m.playerToRoom[userID] = roomID
	return room, nil
}

// StartGame 开局：空座位补机器人，创建并启动 engine
func (m *GameManager) StartGame(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(roomID)
}

func (m *GameManager) startLocked(roomID string) error {
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Started {
		return fmt.Errorf("room %s already started", roomID)
	}
	if _, ok := m.engines[roomID]; ok {
		return fmt.Errorf("engine for room %s exists", roomID)
	}

	seats := make([]*engine.Seat, 0, room.Capacity)
	for i, uid := range room.Players {
		seats = append(seats, &engine.Seat{
			Index:        i,
			UserID:       uid,
			Kind:         engine.SeatHuman,
			Connected:    true,
			ReconnectKey: uuid.NewString(),
		})
	}
	// 空座位补机器人
	for i := len(seats); i < room.Capacity; i++ {
		seats = append(seats, &engine.Seat{
			Index:  i,
			UserID: fmt.Sprintf("bot:%s", uuid.NewString()[:8]),
			Kind:   engine.SeatBot,
		})
	}

	eng := engine.NewEngine(roomID, seats, m.cfg, m.hub, time.Now().UnixNano())
	eng.OnRoundResult = func(r *engine.RoundResult) {
		if m.sink == nil {
			return
		}
		if err := m.sink.SaveRoundResult(r); err != nil {
			log.Error("save round result failed", "room", r.RoomID, "err", err)
		}
	}
	m.engines[roomID] = eng
	room.Started = true

	// 把座位表和重连凭证发给每个真人
	for _, s := range seats {
		if s.Kind != engine.SeatHuman {
			continue
		}
		if storage.Rdb != nil {
			if err := storage.SaveReconnectKey(storage.Ctx, roomID, s.UserID, s.ReconnectKey, 24*time.Hour); err != nil {
				log.Warn("save reconnect key failed", "room", roomID, "user", s.UserID, "err", err)
			}
		}
		m.hub.SendToPlayer(s.UserID, websocket.OutgoingMessage{
			Event: "game_start",
			Data: map[string]any{
				"roomId":       roomID,
				"seat":         s.Index,
				"reconnectKey": s.ReconnectKey,
			},
		})
	}

	eng.Start()
	log.Info("game started", "room", roomID, "players", room.Players)
	return nil
}

// StartRoomFromMatch 匹配系统成桌回调
func (m *GameManager) StartRoomFromMatch(r *matchmaker.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[r.ID]; ok {
		return fmt.Errorf("room %s exists", r.ID)
	}
	room := &Room{
		ID:        r.ID,
		Owner:     r.Players[0],
		Capacity:  r.TableSize,
		Players:   r.Players,
		CreatedAt: r.CreatedAt,
	}
	m.rooms[room.ID] = room
	for _, p := range r.Players {
		m.playerToRoom[p] = room.ID
	}
	return m.startLocked(room.ID)
}

// engineFor 找到玩家所在房间的 engine 和座位
func (m *GameManager) engineFor(userID string) (*engine.Engine, *engine.Seat, error) {
	m.mu.RLock()
	roomID := m.playerToRoom[userID]
	eng := m.engines[roomID]
	m.mu.RUnlock()
	if eng == nil {
		return nil, nil, ErrNotInRoom
	}
	seat, ok := eng.SeatByUserID(userID)
	if !ok {
		return nil, nil, ErrNotInRoom
	}
	return eng, seat, nil
}

type playPayload struct {
	Cards card.Cards `json:"cards"`
}

type joinPayload struct {
	RoomID   string `json:"roomId"`
	Capacity int    `json:"capacity"`
}

type reconnectPayload struct {
	ReconnectKey string `json:"reconnectKey"`
}

// HandlePlayerMessage 统一入口（来自 Hub.OnIncoming）
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	var err error
	switch msg.Event {

	case "create_room":
		var p joinPayload
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			var room *Room
			if room, err = m.CreateRoom(msg.From, p.Capacity); err == nil {
				m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
					Event: "room_created",
					Data:  map[string]any{"roomId": room.ID, "capacity": room.Capacity},
				})
			}
		}

	case "join_room":
		var p joinPayload
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			var room *Room
			if room, err = m.JoinRoom(p.RoomID, msg.From); err == nil {
				m.hub.BroadcastToPlayers(room.Players, websocket.OutgoingMessage{
					Event: "room_joined",
					Data:  map[string]any{"roomId": room.ID, "players": room.Players},
				})
			}
		}

	case "start_game":
		m.mu.RLock()
		roomID := m.playerToRoom[msg.From]
		m.mu.RUnlock()
		if roomID == "" {
			err = ErrNotInRoom
		} else {
			err = m.StartGame(roomID)
		}

	case "play":
		var p playPayload
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			err = m.doAction(msg.From, engine.ActionPlay, p.Cards)
		}

	case "pass":
		err = m.doAction(msg.From, engine.ActionPass, nil)

	case "tribute_return":
		var p playPayload
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			err = m.doAction(msg.From, engine.ActionTributeReturn, p.Cards)
		}

	case "hint":
		err = m.doAction(msg.From, engine.ActionHint, nil)

	case "reconnect":
		var p reconnectPayload
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			err = m.Reconnect(msg.From, p.ReconnectKey)
		}

	case "chat":
		// 桌内聊天广播
		if eng, _, e2 := m.engineFor(msg.From); e2 == nil {
			ids := make([]string, 0)
			for _, s := range eng.Seats() {
				if s.Kind == engine.SeatHuman {
					ids = append(ids, s.UserID)
				}
			}
			m.hub.BroadcastToPlayers(ids, websocket.OutgoingMessage{
				Event: "chat",
				Data:  map[string]any{"from": msg.From, "text": json.RawMessage(msg.Data)},
			})
		}
	}

	// 校验失败只通知动作发起人
	if err != nil {
		m.hub.SendToPlayer(msg.From, websocket.OutgoingMessage{
			Event: "error",
			Data:  map[string]any{"event": msg.Event, "message": err.Error()},
		})
	}
}

// doAction 把玩家动作投进所在房间的串行通道
func (m *GameManager) doAction(userID string, t engine.ActionType, cards card.Cards) error {
	eng, seat, err := m.engineFor(userID)
	if err != nil {
		return err
	}
	return eng.Do(engine.Action{Seat: seat.Index, Type: t, Cards: cards})
}

// HandleDisconnect 连接断开：只标记座位离线，托管由 engine 的宽限定时器接手
func (m *GameManager) HandleDisconnect(userID string) {
	eng, seat, err := m.engineFor(userID)
	if err != nil {
		return
	}
	_ = eng.Do(engine.Action{Seat: seat.Index, Type: engine.ActionDisconnect})
	log.Info("seat disconnected", "user", userID, "seat", seat.Index)
}

// Reconnect 用开局时下发的凭证重新绑定座位
func (m *GameManager) Reconnect(userID, key string) error {
	eng, seat, err := m.engineFor(userID)
	if err != nil {
		return err
	}
	if key == "" || seat.ReconnectKey != key {
		// 进程内凭证对不上时回退查 Redis 里的副本
		m.mu.RLock()
		roomID := m.playerToRoom[userID]
		m.mu.RUnlock()
		if storage.Rdb == nil {
			return ErrBadReconnect
		}
		stored, err := storage.GetReconnectKey(storage.Ctx, roomID, userID)
		if err != nil || stored == "" || stored != key {
			return ErrBadReconnect
		}
	}
	return eng.Do(engine.Action{Seat: seat.Index, Type: engine.ActionConnect})
}
