package engine

import (
	"testing"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
)

// finishFirstRound 让座位0用脚本牌直接赢下首局，触发局间进贡
func finishFirstRound(t *testing.T, eng *Engine) {
	t.Helper()
	scriptHands(t, eng,
		card.Cards{c(card.Rank6, card.SuitSpade)},
	)
	if err := eng.Do(Action{Seat: 0, Type: ActionPlay, Cards: card.Cards{c(card.Rank6, card.SuitSpade)}}); err != nil {
		t.Fatalf("finish round err: %v", err)
	}
}

// TestTribute_Setup 末游向头游进贡最大的一张
func TestTribute_Setup(t *testing.T) {
	eng, h := newTestEngine(t, 2, Config{BasePoint: 1, EnableTribute: true})
	finishFirstRound(t, eng)

	st := eng.state
	if st.Status != StatusTributeReturn {
		t.Fatalf("status = %v, want tribute_return", st.Status)
	}
	if len(st.Tributes) != 1 {
		t.Fatalf("tributes = %d, want 1", len(st.Tributes))
	}
	tr := st.Tributes[0]
	if tr.From != 1 || tr.To != 0 {
		t.Errorf("tribute %d→%d, want 1→0", tr.From, tr.To)
	}
	if tr.Resolved {
		t.Error("tribute should await return")
	}
	// 贡牌已经到头游手里
	if !st.Seats[0].Hand.Contains(card.Cards{tr.Card}) {
		t.Error("tribute card not transferred")
	}
	// 贡出的是末游手里最大的：末游剩下的没有比它大的
	for _, c := range st.Seats[1].Hand {
		if c.SortValue() > tr.Card.SortValue() {
			t.Errorf("loser kept a higher card %s than tribute %s", c, tr.Card)
		}
	}
	if !h.hasBroadcast("tribute") {
		t.Error("expected tribute broadcast")
	}
	// 守恒不破
	if st.cardTotal() != card.DeckSize {
		t.Errorf("cardTotal = %d", st.cardTotal())
	}
}

// TestTribute_BlocksPlay 回贡完成前禁止出牌和过牌
func TestTribute_BlocksPlay(t *testing.T) {
	eng, _ := newTestEngine(t, 2, Config{BasePoint: 1, EnableTribute: true})
	finishFirstRound(t, eng)

	hand := eng.state.Seats[0].Hand
	if err := eng.Do(Action{Seat: 0, Type: ActionPlay, Cards: card.Cards{hand[0]}}); err != ErrTributePending {
		t.Errorf("play err = %v, want ErrTributePending", err)
	}
	if err := eng.Do(Action{Seat: 0, Type: ActionPass}); err != ErrTributePending {
		t.Errorf("pass err = %v, want ErrTributePending", err)
	}
}

// TestTribute_Return 合法回贡后恢复出牌
func TestTribute_Return(t *testing.T) {
	eng, h := newTestEngine(t, 2, Config{BasePoint: 1, EnableTribute: true})
	finishFirstRound(t, eng)

	st := eng.state
	back, ok := lowestReturnable(st.Seats[0].Hand)
	if !ok {
		t.Fatal("winner has no returnable card in this deal")
	}
	loserBefore := len(st.Seats[1].Hand)

	if err := eng.Do(Action{Seat: 0, Type: ActionTributeReturn, Cards: card.Cards{back}}); err != nil {
		t.Fatalf("return err: %v", err)
	}

	if st.Status != StatusPlaying {
		t.Fatalf("status = %v, want playing", st.Status)
	}
	if !st.Tributes[0].Resolved {
		t.Error("tribute not resolved")
	}
	if !st.Seats[1].Hand.Contains(card.Cards{back}) {
		t.Error("returned card not transferred to loser")
	}
	if len(st.Seats[1].Hand) != loserBefore+1 {
		t.Errorf("loser hand = %d, want %d", len(st.Seats[1].Hand), loserBefore+1)
	}
	if !h.hasBroadcast("tribute_done") {
		t.Error("expected tribute_done broadcast")
	}
	// 头游先出
	if st.Current != 0 {
		t.Errorf("leader = %d, want 0", st.Current)
	}
	if st.cardTotal() != card.DeckSize {
		t.Errorf("cardTotal = %d", st.cardTotal())
	}
}

// TestTribute_ReturnValidation 回贡的牌必须恰好一张、在手里、不超过10
func TestTribute_ReturnValidation(t *testing.T) {
	eng, _ := newTestEngine(t, 2, Config{BasePoint: 1, EnableTribute: true})
	finishFirstRound(t, eng)

	st := eng.state
	var high, low card.Card
	for _, c := range st.Seats[0].Hand {
		if c.Rank > TributeReturnMax {
			high = c
		} else {
			low = c
		}
	}
	if high.Rank == card.RankNone || low.Rank == card.RankNone {
		t.Skip("deal lacks both a high and a low card for this scenario")
	}

	// 点数太大
	if err := eng.Do(Action{Seat: 0, Type: ActionTributeReturn, Cards: card.Cards{high}}); err != ErrInvalidTributeReturn {
		t.Errorf("high card err = %v, want ErrInvalidTributeReturn", err)
	}
	// 不止一张
	if err := eng.Do(Action{Seat: 0, Type: ActionTributeReturn, Cards: card.Cards{low, low}}); err != ErrInvalidTributeReturn {
		t.Errorf("two cards err = %v, want ErrInvalidTributeReturn", err)
	}
	// 不是收贡方
	if err := eng.Do(Action{Seat: 1, Type: ActionTributeReturn, Cards: card.Cards{low}}); err != ErrInvalidTributeReturn {
		t.Errorf("wrong seat err = %v, want ErrInvalidTributeReturn", err)
	}
	// 失败的动作不改阶段
	if st.Status != StatusTributeReturn {
		t.Fatalf("status = %v, want tribute_return", st.Status)
	}
}

// TestTribute_AutoReturn 超时托底：回贡上限内最小的一张
func TestTribute_AutoReturn(t *testing.T) {
	eng, _ := newTestEngine(t, 2, Config{BasePoint: 1, EnableTribute: true})
	finishFirstRound(t, eng)

	st := eng.state
	want, hasLow := lowestReturnable(st.Seats[0].Hand)
	if !hasLow {
		want, _ = st.Seats[0].Hand.Lowest()
	}

	// 模拟超时定时器触发
	if err := eng.Do(Action{Seat: -1, Type: ActionAuto}); err != nil {
		t.Fatalf("auto return err: %v", err)
	}

	if st.Status != StatusPlaying {
		t.Fatalf("status = %v, want playing", st.Status)
	}
	tr := st.Tributes[0]
	if !tr.Resolved {
		t.Fatal("tribute unresolved after auto return")
	}
	if !tr.Returned.Equal(want) {
		t.Errorf("auto returned %s, want %s", tr.Returned, want)
	}
	if st.cardTotal() != card.DeckSize {
		t.Errorf("cardTotal = %d", st.cardTotal())
	}
}

// TestTribute_DoubleMode 四人局双贡：三游也向二游进贡
func TestTribute_DoubleMode(t *testing.T) {
	eng, _ := newTestEngine(t, 4, Config{BasePoint: 1, EnableTribute: true, DoubleTribute: true})

	// 直接按名次 0,1,2,3 建立进贡关系，跳过打完整局的过程
	scriptHands(t, eng,
		card.Cards{c(card.Rank5, card.SuitSpade), c(card.Rank5, card.SuitHeart)},
		card.Cards{c(card.Rank6, card.SuitSpade), c(card.Rank6, card.SuitHeart)},
		card.Cards{c(card.RankQ, card.SuitSpade), c(card.Rank4, card.SuitSpade)},
	)
	eng.setupTributes([]int{0, 1, 2, 3})

	st := eng.state
	if st.Status != StatusTributeReturn {
		t.Fatalf("status = %v, want tribute_return", st.Status)
	}
	if len(st.Tributes) != 2 {
		t.Fatalf("tributes = %d, want 2", len(st.Tributes))
	}
	// 末游→头游
	if st.Tributes[0].From != 3 || st.Tributes[0].To != 0 {
		t.Errorf("first tribute %d→%d, want 3→0", st.Tributes[0].From, st.Tributes[0].To)
	}
	// 三游→二游，贡的是Q
	if st.Tributes[1].From != 2 || st.Tributes[1].To != 1 {
		t.Errorf("second tribute %d→%d, want 2→1", st.Tributes[1].From, st.Tributes[1].To)
	}
	if st.Tributes[1].Card.Rank != card.RankQ {
		t.Errorf("second tribute card = %s, want Q", st.Tributes[1].Card)
	}
	if st.cardTotal() != card.DeckSize {
		t.Errorf("cardTotal = %d", st.cardTotal())
	}

	// 两个收贡方都回贡后才恢复出牌
	if err := eng.Do(Action{Seat: 0, Type: ActionTributeReturn, Cards: card.Cards{c(card.Rank5, card.SuitSpade)}}); err != nil {
		t.Fatalf("first return err: %v", err)
	}
	if st.Status != StatusTributeReturn {
		t.Fatal("one return of two should not resume play")
	}
	if err := eng.Do(Action{Seat: 1, Type: ActionTributeReturn, Cards: card.Cards{c(card.Rank6, card.SuitSpade)}}); err != nil {
		t.Fatalf("second return err: %v", err)
	}
	if st.Status != StatusPlaying {
		t.Fatalf("status = %v, want playing", st.Status)
	}
	if st.cardTotal() != card.DeckSize {
		t.Errorf("cardTotal = %d", st.cardTotal())
	}
}
