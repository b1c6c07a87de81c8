package engine

import (
	"time"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
)

// TributeReturnMax 回贡的牌点数不得超过10
const TributeReturnMax = card.Rank10

// setupTributes 按上一局名次建立进贡关系并立刻扣牌
// 末游把常规排序下最大的一张交给头游；双贡模式下三游同样贡给二游
// 之后进入回贡阶段，收贡方各回一张才恢复出牌
func (e *Engine) setupTributes(prevOrder []int) {
	st := e.state

	pairs := [][2]int{{prevOrder[len(prevOrder)-1], prevOrder[0]}}
	if e.cfg.DoubleTribute && len(prevOrder) == 4 {
		pairs = append(pairs, [2]int{prevOrder[2], prevOrder[1]})
	}

	for _, pr := range pairs {
		from, to := pr[0], pr[1]
		top, ok := st.Seats[from].Hand.Highest()
		if !ok {
			continue
		}
		rest, _ := st.Seats[from].Hand.Remove(card.Cards{top})
		st.Seats[from].Hand = rest
		st.Seats[to].Hand = append(st.Seats[to].Hand, top)
		st.Seats[to].Hand.Sort()
		st.Tributes = append(st.Tributes, &Tribute{From: from, To: to, Card: top})
	}

	if len(st.Tributes) == 0 {
		return
	}
	st.Status = StatusTributeReturn

	e.broadcastEvent("tribute", map[string]any{
		"roomId": st.RoomID,
		"count":  len(st.Tributes),
	})

	if e.cfg.TributeTimeout > 0 {
		// 过期定时器由 handleAuto 的状态检查兜底
		time.AfterFunc(e.cfg.TributeTimeout, func() {
			_ = e.Do(Action{Type: ActionAuto, Seat: -1})
		})
	}
}

// handleTributeReturn 收贡方回贡一张牌
// 必须恰好一张、在手牌里、点数不超过 TributeReturnMax
func (e *Engine) handleTributeReturn(seat int, cards card.Cards) error {
	st := e.state
	if st.Status != StatusTributeReturn {
		return ErrNotPlaying
	}

	var t *Tribute
	for _, cand := range st.Tributes {
		if cand.To == seat && !cand.Resolved {
			t = cand
			break
		}
	}
	if t == nil {
		return ErrInvalidTributeReturn
	}

	if len(cards) != 1 {
		return ErrInvalidTributeReturn
	}
	back := cards[0]
	if back.Rank > TributeReturnMax {
		return ErrInvalidTributeReturn
	}
	if !st.Seats[seat].Hand.Contains(cards) {
		return ErrInvalidTributeReturn
	}

	rest, _ := st.Seats[seat].Hand.Remove(cards)
	st.Seats[seat].Hand = rest
	st.Seats[t.From].Hand = append(st.Seats[t.From].Hand, back)
	st.Seats[t.From].Hand.Sort()
	t.Returned = back
	t.Resolved = true

	e.tributeLog = append(e.tributeLog, TributeOutcome{
		FromUserID: st.Seats[t.From].UserID,
		ToUserID:   st.Seats[t.To].UserID,
		Card:       t.Card,
		Returned:   back,
	})

	if e.allTributesResolved() {
		st.Status = StatusPlaying
		e.broadcastEvent("tribute_done", map[string]any{"roomId": st.RoomID})
	}
	if err := e.checkConservation(); err != nil {
		return err
	}
	e.broadcastState()
	return nil
}

// autoTributeReturn 超时或机器人座位的自动回贡：回最小的一张合法牌
// seat 为 -1 时结算所有未回贡的座位
func (e *Engine) autoTributeReturn(seat int) error {
	st := e.state
	for _, t := range st.Tributes {
		if t.Resolved {
			continue
		}
		if seat >= 0 && t.To != seat {
			continue
		}
		back, ok := lowestReturnable(st.Seats[t.To].Hand)
		if !ok {
			// 手里全是大牌，只能破例回最小的一张
			back, _ = st.Seats[t.To].Hand.Lowest()
		}
		if err := e.returnTribute(t, back); err != nil {
			return err
		}
	}
	if e.allTributesResolved() && st.Status == StatusTributeReturn {
		st.Status = StatusPlaying
		e.broadcastEvent("tribute_done", map[string]any{"roomId": st.RoomID})
	}
	if err := e.checkConservation(); err != nil {
		return err
	}
	e.broadcastState()
	return nil
}

// returnTribute 不走校验直接完成一笔回贡，只给自动回贡用
func (e *Engine) returnTribute(t *Tribute, back card.Card) error {
	st := e.state
	rest, ok := st.Seats[t.To].Hand.Remove(card.Cards{back})
	if !ok {
		return ErrInvalidTributeReturn
	}
	st.Seats[t.To].Hand = rest
	st.Seats[t.From].Hand = append(st.Seats[t.From].Hand, back)
	st.Seats[t.From].Hand.Sort()
	t.Returned = back
	t.Resolved = true

	e.tributeLog = append(e.tributeLog, TributeOutcome{
		FromUserID: st.Seats[t.From].UserID,
		ToUserID:   st.Seats[t.To].UserID,
		Card:       t.Card,
		Returned:   back,
	})
	return nil
}

func (e *Engine) allTributesResolved() bool {
	for _, t := range e.state.Tributes {
		if !t.Resolved {
			return false
		}
	}
	return true
}

// lowestReturnable 手牌中点数不超过回贡上限的最小一张
func lowestReturnable(hand card.Cards) (card.Card, bool) {
	best := card.Card{}
	found := false
	for _, c := range hand {
		if c.Rank > TributeReturnMax {
			continue
		}
		if !found || c.SortValue() < best.SortValue() {
			best = c
			found = true
		}
	}
	return best, found
}
