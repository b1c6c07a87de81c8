package manager

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/engine"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/matchmaker"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/websocket"
)

// mockHub 实现 HubInterface，记录消息
type mockHub struct {
	mu           sync.Mutex
	sentToPlayer map[string][]websocket.OutgoingMessage
	broadcasts   []websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{
		sentToPlayer: make(map[string][]websocket.OutgoingMessage),
	}
}

func (h *mockHub) BroadcastToPlayers(userIDs []string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, msg)
}

func (h *mockHub) SendToPlayer(userID string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sentToPlayer[userID] = append(h.sentToPlayer[userID], msg)
}

func (h *mockHub) ClientByUserID(userID string) (*websocket.Client, bool) {
	return nil, false
}

func (h *mockHub) Close() {}

func (h *mockHub) eventsTo(userID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.sentToPlayer[userID]))
	for _, m := range h.sentToPlayer[userID] {
		out = append(out, m.Event)
	}
	return out
}

func (h *mockHub) lastEventTo(userID, event string) (websocket.OutgoingMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.sentToPlayer[userID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i], true
		}
	}
	return websocket.OutgoingMessage{}, false
}

// mockSink 收集落库的结算结果
type mockSink struct {
	mu      sync.Mutex
	results []*engine.RoundResult
}

func (s *mockSink) SaveRoundResult(r *engine.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func testConfig() engine.Config {
	return engine.Config{BasePoint: 1}
}

func TestCreateJoinStart(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), &mockSink{})

	room, err := mgr.CreateRoom("uA", 4)
	assert.NoError(t, err)
	assert.Equal(t, "uA", room.Owner)
	assert.Equal(t, []string{"uA"}, room.Players)

	// 容量越界
	_, err = mgr.CreateRoom("uX", 5)
	assert.Error(t, err)
	_, err = mgr.CreateRoom("uX", 1)
	assert.Error(t, err)

	// 同一个人不能再开一间
	_, err = mgr.CreateRoom("uA", 2)
	assert.Error(t, err)

	_, err = mgr.JoinRoom(room.ID, "uB")
	assert.NoError(t, err)
	_, err = mgr.JoinRoom("no-such-room", "uC")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.NoError(t, mgr.StartGame(room.ID))

	// 两个真人各收到 game_start，带座位号和重连凭证
	for _, uid := range []string{"uA", "uB"} {
		msg, ok := hub.lastEventTo(uid, "game_start")
		assert.True(t, ok, "%s missing game_start", uid)
		data := msg.Data.(map[string]any)
		assert.Equal(t, room.ID, data["roomId"])
		assert.NotEmpty(t, data["reconnectKey"])
	}

	// 空座位补成了机器人，凑满4人
	eng, _, err := mgr.engineFor("uA")
	assert.NoError(t, err)
	bots := 0
	for _, s := range eng.Seats() {
		if s.Kind == engine.SeatBot {
			bots++
		}
	}
	assert.Equal(t, 2, bots)

	// 已开局的房间不能再开
	assert.Error(t, mgr.StartGame(room.ID))
}

func TestJoinRoomFull(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), nil)

	room, err := mgr.CreateRoom("uA", 2)
	assert.NoError(t, err)
	_, err = mgr.JoinRoom(room.ID, "uB")
	assert.NoError(t, err)
	_, err = mgr.JoinRoom(room.ID, "uC")
	assert.ErrorIs(t, err, ErrRoomFull)

	// 重复进房是幂等的
	_, err = mgr.JoinRoom(room.ID, "uB")
	assert.NoError(t, err)
}

func TestStartRoomFromMatch(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), &mockSink{})

	err := mgr.StartRoomFromMatch(&matchmaker.Room{
		ID:        "match-room-1",
		Pool:      "casual",
		TableSize: 2,
		Players:   []string{"uA", "uB"},
		CreatedAt: time.Now(),
	})
	assert.NoError(t, err)

	// 两人都在座、直接开打
	for _, uid := range []string{"uA", "uB"} {
		assert.Contains(t, hub.eventsTo(uid), "game_start")
		assert.Contains(t, hub.eventsTo(uid), "state")
	}

	// 同一个房间不能重复开
	assert.Error(t, mgr.StartRoomFromMatch(&matchmaker.Room{
		ID: "match-room-1", TableSize: 2, Players: []string{"uA", "uB"},
	}))
}

func TestHandlePlayerMessage_ErrorsGoToSender(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), nil)

	// 没进房就想出牌
	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uA",
		Event: "play",
		Data:  json.RawMessage(`{"cards":[{"rank":1,"suit":1}]}`),
	})
	msg, ok := hub.lastEventTo("uA", "error")
	assert.True(t, ok)
	data := msg.Data.(map[string]any)
	assert.Equal(t, "play", data["event"])

	// 坏 JSON 同样只打回发起人
	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uB",
		Event: "join_room",
		Data:  json.RawMessage(`{bad`),
	})
	_, ok = hub.lastEventTo("uB", "error")
	assert.True(t, ok)
	assert.Empty(t, hub.eventsTo("uC"))
}

func TestHandlePlayerMessage_RoomFlow(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), nil)

	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uA",
		Event: "create_room",
		Data:  json.RawMessage(`{"capacity":2}`),
	})
	created, ok := hub.lastEventTo("uA", "room_created")
	assert.True(t, ok)
	roomID := created.Data.(map[string]any)["roomId"].(string)
	assert.NotEmpty(t, roomID)

	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uB",
		Event: "join_room",
		Data:  json.RawMessage(`{"roomId":"` + roomID + `"}`),
	})
	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uA",
		Event: "start_game",
	})

	_, ok = hub.lastEventTo("uB", "game_start")
	assert.True(t, ok)

	// 开局后 uA 可以要提示
	mgr.HandlePlayerMessage(websocket.IncomingMessage{From: "uA", Event: "hint"})
	_, ok = hub.lastEventTo("uA", "hint")
	assert.True(t, ok)
}

func TestReconnectKeyCheck(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), nil)

	room, _ := mgr.CreateRoom("uA", 2)
	_, _ = mgr.JoinRoom(room.ID, "uB")
	assert.NoError(t, mgr.StartGame(room.ID))

	msg, _ := hub.lastEventTo("uA", "game_start")
	key := msg.Data.(map[string]any)["reconnectKey"].(string)

	mgr.HandleDisconnect("uA")
	assert.ErrorIs(t, mgr.Reconnect("uA", "wrong-key"), ErrBadReconnect)
	assert.NoError(t, mgr.Reconnect("uA", key))

	// 不在房间里的人重连
	assert.ErrorIs(t, mgr.Reconnect("uZ", "whatever"), ErrNotInRoom)
}

func TestChatBroadcast(t *testing.T) {
	hub := newMockHub()
	mgr := NewGameManager(hub, testConfig(), nil)

	room, _ := mgr.CreateRoom("uA", 2)
	_, _ = mgr.JoinRoom(room.ID, "uB")
	assert.NoError(t, mgr.StartGame(room.ID))

	before := len(hub.broadcasts)
	mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From:  "uA",
		Event: "chat",
		Data:  json.RawMessage(`{"text":"加油"}`),
	})
	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Greater(t, len(hub.broadcasts), before)
	assert.Equal(t, "chat", hub.broadcasts[len(hub.broadcasts)-1].Event)
}

func TestRoundResultReachesSink(t *testing.T) {
	hub := newMockHub()
	sink := &mockSink{}
	mgr := NewGameManager(hub, testConfig(), sink)

	err := mgr.StartRoomFromMatch(&matchmaker.Room{
		ID:        "sink-room",
		TableSize: 2,
		Players:   []string{"uA"}, // 一真人一机器人
		CreatedAt: time.Now(),
	})
	assert.NoError(t, err)

	// 驱动对局直到结算（机器人手动驱动，真人座位托管代打）
	eng, _, err := mgr.engineFor("uA")
	assert.NoError(t, err)
	mgr.HandleDisconnect("uA")

	for i := 0; i < 200; i++ {
		sink.mu.Lock()
		done := len(sink.results) > 0
		sink.mu.Unlock()
		if done {
			break
		}
		for s := 0; s < 2; s++ {
			_ = eng.Do(engine.Action{Seat: s, Type: engine.ActionAuto})
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if assert.NotEmpty(t, sink.results, "round should finish and reach sink") {
		r := sink.results[0]
		assert.Equal(t, "sink-room", r.RoomID)
		assert.Len(t, r.FinishedOrder, 2)
		assert.Contains(t, r.Scores, "uA")
	}
}
