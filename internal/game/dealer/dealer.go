package dealer

import (
	"math/rand"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
)

// Dealer 只负责洗牌与发牌（无规则判断）
type Dealer struct {
	deck card.Cards
	rnd  *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{
		deck: make(card.Cards, 0, card.DeckSize),
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// NewDeck 初始化一副牌并洗牌
func (d *Dealer) NewDeck() {
	d.deck = card.NewDeck()
	d.shuffle()
}

func (d *Dealer) shuffle() {
	d.rnd.Shuffle(len(d.deck), func(i, j int) {
		d.deck[i], d.deck[j] = d.deck[j], d.deck[i]
	})
}

// Deal 把整副牌轮流发给 seats 个座位，余牌发给靠前的座位
// 返回每个座位排好序的手牌
func (d *Dealer) Deal(seats int) []card.Cards {
	if seats <= 0 {
		return nil
	}
	hands := make([]card.Cards, seats)
	for i, c := range d.deck {
		seat := i % seats
		hands[seat] = append(hands[seat], c)
	}
	d.deck = nil
	for i := range hands {
		hands[i].Sort()
	}
	return hands
}

// Remaining 剩余未发出的张数
func (d *Dealer) Remaining() int {
	return len(d.deck)
}
