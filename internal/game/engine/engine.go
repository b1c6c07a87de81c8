package engine

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/brain"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/dealer"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/pattern"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/websocket"
)

// Config 单个房间的对局配置
type Config struct {
	BasePoint      int           // 结算基础分
	EnableTribute  bool          // 局间是否进贡
	DoubleTribute  bool          // 四人局时三游是否也向二游进贡
	TributeTimeout time.Duration // 回贡超时后自动回贡，0 表示不自动
	BotDelay       time.Duration // 机器人出牌延迟，0 表示不自动触发（测试手动驱动）
	GraceDelay     time.Duration // 断线座位轮到出牌后的托管等待时长
}

// ---------------------
//   ACTION DEFINITION
// ---------------------

type ActionType uint8

const (
	ActionPlay ActionType = iota
	ActionPass
	ActionTributeReturn
	ActionHint
	ActionAuto       // 机器人座位或托管超时，由引擎自行决策
	ActionConnect    // 座位重连
	ActionDisconnect // 座位断线，只改连接标记，牌权不变
)

type Action struct {
	Seat  int
	Type  ActionType
	Cards card.Cards
}

type actionReq struct {
	act  Action
	resp chan error
}

// ---------------------
//       ENGINE
// ---------------------

// Engine 一个房间一个实例，所有状态改动都在 actionLoop 里串行执行
type Engine struct {
	cfg    Config
	state  *GameState
	hub    websocket.HubInterface
	dealer *dealer.Dealer

	actionChan chan actionReq
	quit       chan struct{}

	// 本局已结算的进贡，写进 RoundResult
	tributeLog []TributeOutcome

	// OnRoundResult 结算回调，由持久化边界消费
	OnRoundResult func(*RoundResult)
}

func NewEngine(roomID string, seats []*Seat, cfg Config, hub websocket.HubInterface, seed int64) *Engine {
	if cfg.BasePoint <= 0 {
		cfg.BasePoint = 1
	}
	st := &GameState{
		RoomID:     roomID,
		Seats:      seats,
		Status:     StatusWaiting,
		Multiplier: 1,
	}
	return &Engine{
		cfg:        cfg,
		state:      st,
		hub:        hub,
		dealer:     dealer.NewDealer(seed),
		actionChan: make(chan actionReq, 32), // 防止入队阻塞
		quit:       make(chan struct{}),
	}
}

// Start 发第一局牌并启动动作循环
func (e *Engine) Start() {
	e.startRound(nil)
	go e.actionLoop()
	e.scheduleAuto()
}

// Stop 关闭动作循环，状态保留以便诊断
func (e *Engine) Stop() {
	close(e.quit)
}

// Seats 座位列表（供路由层查 userID）
func (e *Engine) Seats() []*Seat {
	return e.state.Seats
}

// SeatByUserID 按 userID 找座位
func (e *Engine) SeatByUserID(userID string) (*Seat, bool) {
	for _, s := range e.state.Seats {
		if s.UserID == userID {
			return s, true
		}
	}
	return nil, false
}

// Do 动作入口：入队并同步等待校验结果
// 同一房间的动作按到达顺序串行执行，失败的动作不改状态
func (e *Engine) Do(act Action) error {
	req := actionReq{act: act, resp: make(chan error, 1)}
	select {
	case e.actionChan <- req:
	case <-e.quit:
		return ErrRoomHalted
	}
	select {
	case err := <-req.resp:
		return err
	case <-e.quit:
		return ErrRoomHalted
	}
}

// 动作循环：单房间的串行执行通道
func (e *Engine) actionLoop() {
	for {
		select {
		case req := <-e.actionChan:
			req.resp <- e.apply(req.act)
			e.scheduleAuto()
		case <-e.quit:
			return
		}
	}
}

// scheduleAuto 轮到机器人座位时挂一个延迟动作
// 定时器触发的动作和真人动作走同一个串行通道，过期的会被忽略
func (e *Engine) scheduleAuto() {
	if e.state.Halted {
		return
	}
	st := e.state
	if st.Status == StatusPlaying {
		cur := st.Current
		if delay, ok := e.autoDelay(cur); ok {
			time.AfterFunc(delay, func() {
				_ = e.Do(Action{Seat: cur, Type: ActionAuto})
			})
		}
		return
	}
	if st.Status == StatusTributeReturn {
		for _, t := range st.Tributes {
			if t.Resolved {
				continue
			}
			if delay, ok := e.autoDelay(t.To); ok {
				to := t.To
				time.AfterFunc(delay, func() {
					_ = e.Do(Action{Seat: to, Type: ActionAuto})
				})
			}
		}
	}
}

// autoDelay 机器人按 BotDelay 出，断线真人按 GraceDelay 托管
func (e *Engine) autoDelay(seat int) (time.Duration, bool) {
	s := e.state.Seats[seat]
	if s.Kind == SeatBot {
		return e.cfg.BotDelay, e.cfg.BotDelay > 0
	}
	if !s.Connected && e.cfg.GraceDelay > 0 {
		return e.cfg.GraceDelay, true
	}
	return 0, false
}

func (e *Engine) apply(act Action) error {
	if e.state.Halted {
		return ErrRoomHalted
	}

	switch act.Type {
	case ActionPlay:
		return e.handlePlay(act.Seat, act.Cards)
	case ActionPass:
		return e.handlePass(act.Seat)
	case ActionTributeReturn:
		return e.handleTributeReturn(act.Seat, act.Cards)
	case ActionHint:
		return e.handleHint(act.Seat)
	case ActionAuto:
		return e.handleAuto(act.Seat)
	case ActionConnect, ActionDisconnect:
		return e.handleConnectivity(act.Seat, act.Type == ActionConnect)
	default:
		return errors.New("unknown action")
	}
}

// ---------------------
//     PLAY / PASS
// ---------------------

func (e *Engine) handlePlay(seat int, cards card.Cards) error {
	st := e.state
	if st.Status == StatusTributeReturn {
		return ErrTributePending
	}
	if st.Status != StatusPlaying {
		return ErrNotPlaying
	}
	if seat != st.Current {
		return ErrNotYourTurn
	}

	p, err := pattern.Classify(cards, st.Revolution)
	if err != nil {
		return err
	}
	if !st.Seats[seat].Hand.Contains(p.Cards) {
		return ErrCardsNotInHand
	}
	if st.LastPlay != nil && !p.Beats(st.LastPlay) {
		return ErrMustBeat
	}

	// 校验全部通过，开始改状态
	rest, _ := st.Seats[seat].Hand.Remove(p.Cards)
	st.Seats[seat].Hand = rest
	st.TablePlays = append(st.TablePlays, TablePlay{Seat: seat, Cards: p.Cards})
	st.LastPlay = p
	st.LastPlayOwner = seat
	st.PassesInRow = 0

	if p.IsBombClass() {
		st.Multiplier *= 2
	}
	if p.Kind == pattern.KindFour {
		// 革命：数字牌倒序，只影响本局，台面上炸弹自身的强度同步换算
		st.Revolution = !st.Revolution
		p.Strength = p.MainRank.Weight(st.Revolution)
	}

	e.broadcastEvent("play", map[string]any{
		"seat":  seat,
		"label": p.Label,
		"cards": p.Cards,
	})

	if len(st.Seats[seat].Hand) == 0 {
		st.FinishedOrder = append(st.FinishedOrder, seat)
		if st.activeCount() == 1 {
			// 只剩一家，补进名次后本局结束
			st.FinishedOrder = append(st.FinishedOrder, st.nextActive(seat))
			return e.finishRound()
		}
		// 出完的人不再坐庄，台面牌留给剩下的人压
	}

	st.Current = st.nextActive(seat)
	if err := e.checkConservation(); err != nil {
		return err
	}
	e.broadcastState()
	return nil
}

func (e *Engine) handlePass(seat int) error {
	st := e.state
	if st.Status == StatusTributeReturn {
		return ErrTributePending
	}
	if st.Status != StatusPlaying {
		return ErrNotPlaying
	}
	if seat != st.Current {
		return ErrNotYourTurn
	}
	if st.LastPlay == nil {
		return ErrCannotPassOpenTrick
	}

	st.TablePlays = append(st.TablePlays, TablePlay{Seat: seat, Pass: true})
	st.PassesInRow++

	// 压牌方若已出完，所有在场的人都过一轮才收回这一墩
	threshold := st.activeCount() - 1
	if st.finished(st.LastPlayOwner) {
		threshold = st.activeCount()
	}

	if st.PassesInRow >= threshold {
		owner := st.LastPlayOwner
		st.LastPlay = nil
		st.PassesInRow = 0
		if st.finished(owner) {
			st.Current = st.nextActive(owner)
		} else {
			st.Current = owner
		}
		e.broadcastEvent("trick_reset", map[string]any{"leader": st.Current})
	} else {
		st.Current = st.nextActive(seat)
	}

	if err := e.checkConservation(); err != nil {
		return err
	}
	e.broadcastState()
	return nil
}

// ---------------------
//    BOT / HINT
// ---------------------

// handleConnectivity 断线/重连只改连接标记，手牌和名次记录原样保留
func (e *Engine) handleConnectivity(seat int, connected bool) error {
	st := e.state
	if seat < 0 || seat >= len(st.Seats) {
		return ErrSeatNotConnected
	}
	st.Seats[seat].Connected = connected
	e.broadcastState()
	return nil
}

// handleAuto 机器人或托管座位的自动动作，走和真人完全相同的校验路径
func (e *Engine) handleAuto(seat int) error {
	st := e.state

	// 断线座位在定时器触发前重连，托管动作作废
	if seat >= 0 && seat < len(st.Seats) {
		if s := st.Seats[seat]; s.Kind == SeatHuman && s.Connected {
			return nil
		}
	}

	if st.Status == StatusTributeReturn {
		return e.autoTributeReturn(seat)
	}
	if st.Status != StatusPlaying || seat != st.Current {
		// 过期的托管定时器，直接忽略
		return nil
	}

	constraint := st.LastPlay
	minOpp := card.DeckSize
	for i, s := range st.Seats {
		if i == seat || st.finished(i) {
			continue
		}
		if len(s.Hand) < minOpp {
			minOpp = len(s.Hand)
		}
	}

	p := brain.DecideAction(st.Seats[seat].Hand, constraint, st.Revolution, minOpp)
	if p == nil {
		return e.handlePass(seat)
	}
	return e.handlePlay(seat, p.Cards)
}

// handleHint 给请求座位发一份排好序的候选，不改状态
func (e *Engine) handleHint(seat int) error {
	st := e.state
	if seat < 0 || seat >= len(st.Seats) {
		return ErrNotYourTurn
	}
	options := brain.HintOptions(st.Seats[seat].Hand, st.LastPlay, st.Revolution)
	e.hub.SendToPlayer(st.Seats[seat].UserID, websocket.OutgoingMessage{
		Event: "hint",
		Data: map[string]any{
			"roomId":  st.RoomID,
			"options": options,
		},
	})
	return nil
}

// ---------------------
//    ROUND LIFECYCLE
// ---------------------

// startRound 开新一局：洗牌发牌、重置局内状态、按需进入进贡阶段
// prevOrder 是上一局的名次（座位），nil 表示首局
func (e *Engine) startRound(prevOrder []int) {
	st := e.state
	st.RoundNo++
	st.Revolution = false
	st.Multiplier = 1
	st.LastPlay = nil
	st.PassesInRow = 0
	st.TablePlays = nil
	st.FinishedOrder = nil
	st.Tributes = nil
	e.tributeLog = nil

	e.dealer.NewDeck()
	hands := e.dealer.Deal(len(st.Seats))
	for i, s := range st.Seats {
		s.Hand = hands[i]
	}

	// 上一局头游先出，首局从 0 号位开始
	if len(prevOrder) > 0 {
		st.Current = prevOrder[0]
	} else {
		st.Current = 0
	}

	if e.cfg.EnableTribute && len(prevOrder) > 0 {
		e.setupTributes(prevOrder)
	}
	if len(st.Tributes) == 0 {
		st.Status = StatusPlaying
	}

	e.broadcastState()
}

// finishRound 结算并进入下一局
func (e *Engine) finishRound() error {
	st := e.state
	prevOrder := append([]int(nil), st.FinishedOrder...)

	points := positionPoints(len(st.Seats))
	scores := make(map[string]int, len(st.Seats))
	order := make([]string, len(prevOrder))
	for pos, seat := range prevOrder {
		uid := st.Seats[seat].UserID
		order[pos] = uid
		scores[uid] = points[pos] * e.cfg.BasePoint * st.Multiplier
	}

	result := &RoundResult{
		RoomID:        st.RoomID,
		RoundNo:       st.RoundNo,
		FinishedOrder: order,
		Multiplier:    st.Multiplier,
		Scores:        scores,
		Tributes:      append([]TributeOutcome(nil), e.tributeLog...),
		FinishedAt:    time.Now(),
	}
	if e.OnRoundResult != nil {
		e.OnRoundResult(result)
	}
	e.broadcastEvent("round_result", result)

	e.startRound(prevOrder)
	return nil
}

// ---------------------
//     INVARIANTS
// ---------------------

// checkConservation 守恒律：手牌 + 台面 必须等于整副牌
// 破坏即说明状态机出了内伤，房间立刻冻结，绝不悄悄修正
func (e *Engine) checkConservation() error {
	if e.state.cardTotal() == card.DeckSize {
		return nil
	}
	e.state.Halted = true
	log.Error("card conservation violated, room halted",
		"room", e.state.RoomID, "total", e.state.cardTotal())
	e.broadcastEvent("room_halted", map[string]any{"roomId": e.state.RoomID})
	return ErrRoomHalted
}

// ---------------------
//      BROADCAST
// ---------------------

// broadcastState 给每个在线真人座位发各自视角的投影
func (e *Engine) broadcastState() {
	for i, s := range e.state.Seats {
		if s.Kind != SeatHuman {
			continue
		}
		e.hub.SendToPlayer(s.UserID, websocket.OutgoingMessage{
			Event: "state",
			Data:  e.state.View(i),
		})
	}
}

func (e *Engine) broadcastEvent(event string, data any) {
	ids := make([]string, 0, len(e.state.Seats))
	for _, s := range e.state.Seats {
		if s.Kind == SeatHuman {
			ids = append(ids, s.UserID)
		}
	}
	e.hub.BroadcastToPlayers(ids, websocket.OutgoingMessage{Event: event, Data: data})
}
