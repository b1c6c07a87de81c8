package card

import (
	"fmt"
	"sort"
)

// Suit 牌的花色，仅用于展示，不参与大小比较
type Suit uint8

const (
	SuitNone    Suit = iota
	SuitSpade        // 黑桃
	SuitHeart        // 红桃
	SuitClub         // 梅花
	SuitDiamond      // 方块
	SuitJoker        // 王
)

// Rank 牌的点数
// 排序权重：3 < 4 < ... < K < A < 2 < 小王 < 大王
type Rank uint8

const (
	RankNone Rank = iota
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ
	RankQ
	RankK
	RankA
	Rank2
	RankJokerSmall
	RankJokerBig
)

// NumericRankCount 数字牌点数种类 (3..2 共13种)
const NumericRankCount = 13

// DeckSize 一副牌总数 (52 + 大小王)
const DeckSize = 54

// IsJoker 是否为大小王
func (r Rank) IsJoker() bool {
	return r == RankJokerSmall || r == RankJokerBig
}

// Weight 返回点数的比较权重
// revolution 为 true 时数字牌顺序整体倒转（3最大、2最小），王不受影响
func (r Rank) Weight(revolution bool) int {
	if r.IsJoker() || !revolution {
		return int(r)
	}
	// Rank3(1)..Rank2(13) 映射为 13..1
	return int(Rank2) + int(Rank3) - int(r)
}

func (r Rank) String() string {
	switch r {
	case Rank10:
		return "10"
	case RankJ:
		return "J"
	case RankQ:
		return "Q"
	case RankK:
		return "K"
	case RankA:
		return "A"
	case Rank2:
		return "2"
	case RankJokerSmall:
		return "joker"
	case RankJokerBig:
		return "JOKER"
	case RankNone:
		return "?"
	default:
		return fmt.Sprintf("%d", int(r)+2)
	}
}

// Card 代表一张扑克牌，发牌后不再修改
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// Equal 判断两张牌是否完全相同（点数+花色）
func (c Card) Equal(o Card) bool {
	return c.Rank == o.Rank && c.Suit == o.Suit
}

// SortValue 牌的全序排序值，花色只用来让排序稳定
func (c Card) SortValue() int {
	return int(c.Rank)*8 + int(c.Suit)
}

func (c Card) String() string {
	suits := map[Suit]string{
		SuitSpade:   "♠",
		SuitHeart:   "♥",
		SuitClub:    "♣",
		SuitDiamond: "♦",
	}
	if c.Rank.IsJoker() {
		return c.Rank.String()
	}
	s, ok := suits[c.Suit]
	if !ok {
		s = "?"
	}
	return s + c.Rank.String()
}

type Cards []Card

// NewDeck 生成一副 54 张的牌
func NewDeck() Cards {
	cards := make(Cards, 0, DeckSize)
	suits := []Suit{SuitSpade, SuitHeart, SuitClub, SuitDiamond}
	for _, suit := range suits {
		for r := Rank3; r <= Rank2; r++ {
			cards = append(cards, NewCard(r, suit))
		}
	}
	cards = append(cards, NewCard(RankJokerSmall, SuitJoker))
	cards = append(cards, NewCard(RankJokerBig, SuitJoker))
	return cards
}

// Sort 按排序值从小到大排序
func (cs Cards) Sort() {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].SortValue() < cs[j].SortValue()
	})
}

// Clone 复制一份手牌
func (cs Cards) Clone() Cards {
	out := make(Cards, len(cs))
	copy(out, cs)
	return out
}

// Contains 判断是否包含 subset 中的所有牌（多重集合语义）
func (cs Cards) Contains(subset Cards) bool {
	counts := make(map[Card]int, len(cs))
	for _, c := range cs {
		counts[c]++
	}
	for _, c := range subset {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// Remove 从手牌中移除 subset，返回剩余的牌
// 如果 subset 不是手牌的子集返回 false
func (cs Cards) Remove(subset Cards) (Cards, bool) {
	if !cs.Contains(subset) {
		return cs, false
	}
	counts := make(map[Card]int, len(subset))
	for _, c := range subset {
		counts[c]++
	}
	out := make(Cards, 0, len(cs)-len(subset))
	for _, c := range cs {
		if counts[c] > 0 {
			counts[c]--
			continue
		}
		out = append(out, c)
	}
	return out, true
}

// RankCounts 统计每个点数的张数
func (cs Cards) RankCounts() map[Rank]int {
	counts := make(map[Rank]int)
	for _, c := range cs {
		counts[c.Rank]++
	}
	return counts
}

// Highest 返回手牌中权重最高的牌（常规排序，不受革命影响）
// 进贡的时候要交出的就是这张
func (cs Cards) Highest() (Card, bool) {
	if len(cs) == 0 {
		return Card{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.SortValue() > best.SortValue() {
			best = c
		}
	}
	return best, true
}

// Lowest 返回手牌中权重最低的牌
func (cs Cards) Lowest() (Card, bool) {
	if len(cs) == 0 {
		return Card{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.SortValue() < best.SortValue() {
			best = c
		}
	}
	return best, true
}
