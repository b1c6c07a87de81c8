package pattern

import (
	"errors"
	"fmt"
	"sort"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
)

// ErrIllegalShape 这组牌无法构成任何合法牌型
var ErrIllegalShape = errors.New("illegal shape")

// Kind 牌型种类
type Kind uint8

const (
	KindNone     Kind = iota // 过牌占位
	KindSingle               // 单张
	KindPair                 // 对子
	KindTriple               // 三同张
	KindStraight             // 顺子（>=5张）
	KindPairSeq              // 连对（>=3连）
	KindFour                 // 炸弹（四同张）
	KindRocket               // 王炸（大小王）
)

// 顺子/连对允许的点数边界：只能用 3..A，2 和王不能入链，A 只能做链尾
const (
	SeqMinRank = card.Rank3
	SeqMaxRank = card.RankA
)

// MinStraightLen 顺子最短长度
const MinStraightLen = 5

// MinPairSeqLen 连对最少几连
const MinPairSeqLen = 3

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "单张"
	case KindPair:
		return "对子"
	case KindTriple:
		return "三同张"
	case KindStraight:
		return "顺子"
	case KindPairSeq:
		return "连对"
	case KindFour:
		return "炸弹"
	case KindRocket:
		return "王炸"
	default:
		return "过"
	}
}

// Tier 跨牌型压制等级：王炸 > 炸弹 > 普通牌型
func (k Kind) Tier() int {
	switch k {
	case KindRocket:
		return 3
	case KindFour:
		return 2
	default:
		return 1
	}
}

// Pattern 一组已分类的牌
// MainRank 是决定大小的点数（顺子/连对取链尾），Length 是总张数
type Pattern struct {
	Kind     Kind       `json:"kind"`
	Cards    card.Cards `json:"cards"`
	MainRank card.Rank  `json:"mainRank"`
	Length   int        `json:"length"`
	Strength int        `json:"strength"`
	Label    string     `json:"label"`
}

// Classify 将一组牌分类为牌型
// revolution 只影响比较权重，不影响顺子的连牌判定
// 纯函数，出牌校验和机器人枚举共用
func Classify(cards card.Cards, revolution bool) (*Pattern, error) {
	if len(cards) == 0 {
		return nil, ErrIllegalShape
	}

	cs := cards.Clone()
	cs.Sort()
	counts := cs.RankCounts()

	p := &Pattern{Cards: cs, Length: len(cs)}

	switch len(cs) {
	case 1:
		p.Kind = KindSingle
		p.MainRank = cs[0].Rank
	case 2:
		// 王炸优先于普通对子
		if cs[0].Rank == card.RankJokerSmall && cs[1].Rank == card.RankJokerBig {
			p.Kind = KindRocket
			p.MainRank = card.RankJokerBig
			break
		}
		if cs[0].Rank != cs[1].Rank {
			return nil, ErrIllegalShape
		}
		p.Kind = KindPair
		p.MainRank = cs[0].Rank
	case 3:
		if counts[cs[0].Rank] != 3 {
			return nil, ErrIllegalShape
		}
		p.Kind = KindTriple
		p.MainRank = cs[0].Rank
	case 4:
		if counts[cs[0].Rank] == 4 {
			p.Kind = KindFour
			p.MainRank = cs[0].Rank
			break
		}
		return nil, ErrIllegalShape
	default:
		if top, ok := sequenceTop(counts, 1, MinStraightLen, len(cs)); ok {
			p.Kind = KindStraight
			p.MainRank = top
			break
		}
		if len(cs)%2 == 0 {
			if top, ok := sequenceTop(counts, 2, MinPairSeqLen, len(cs)/2); ok {
				p.Kind = KindPairSeq
				p.MainRank = top
				break
			}
		}
		return nil, ErrIllegalShape
	}

	p.Strength = p.MainRank.Weight(revolution)
	p.Label = label(p)
	return p, nil
}

// sequenceTop 检查 counts 是否恰好构成一条 width 张宽、runLen 连的链
// 成立时返回链尾点数
func sequenceTop(counts map[card.Rank]int, width, minRun, runLen int) (card.Rank, bool) {
	if runLen < minRun {
		return card.RankNone, false
	}

	ranks := make([]int, 0, len(counts))
	for r, n := range counts {
		if n != width {
			return card.RankNone, false
		}
		if r < SeqMinRank || r > SeqMaxRank {
			return card.RankNone, false
		}
		ranks = append(ranks, int(r))
	}
	if len(ranks) != runLen {
		return card.RankNone, false
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return card.RankNone, false
		}
	}
	return card.Rank(ranks[len(ranks)-1]), true
}

func label(p *Pattern) string {
	switch p.Kind {
	case KindStraight:
		base := p.MainRank - card.Rank(p.Length) + 1
		return fmt.Sprintf("顺子%s~%s", base, p.MainRank)
	case KindPairSeq:
		run := p.Length / 2
		base := p.MainRank - card.Rank(run) + 1
		return fmt.Sprintf("连对%s~%s", base, p.MainRank)
	case KindRocket:
		return "王炸"
	default:
		return p.Kind.String() + p.MainRank.String()
	}
}

// BaseRank 链型牌的起始点数，其他牌型等于 MainRank
func (p *Pattern) BaseRank() card.Rank {
	switch p.Kind {
	case KindStraight:
		return p.MainRank - card.Rank(p.Length) + 1
	case KindPairSeq:
		return p.MainRank - card.Rank(p.Length/2) + 1
	default:
		return p.MainRank
	}
}

// Beats 判断 p 是否严格压过 other
// 同牌型同长度比 Strength；炸弹跨牌型压制；王炸压一切
func (p *Pattern) Beats(other *Pattern) bool {
	if other == nil || other.Kind == KindNone {
		return true
	}
	if p.Kind == KindRocket {
		return other.Kind != KindRocket
	}
	if other.Kind == KindRocket {
		return false
	}
	if p.Kind == KindFour {
		if other.Kind != KindFour {
			return true
		}
		return p.Strength > other.Strength
	}
	if other.Kind == KindFour {
		return false
	}
	if p.Kind != other.Kind || p.Length != other.Length {
		return false
	}
	return p.Strength > other.Strength
}

// IsBombClass 是否为计翻倍的炸弹类牌型
func (p *Pattern) IsBombClass() bool {
	return p.Kind == KindFour || p.Kind == KindRocket
}
