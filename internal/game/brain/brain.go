package brain

import (
	"sort"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/card"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/pattern"
)

// BombThreshold 对手手牌少于等于该数量时，机器人才愿意动用炸弹
const BombThreshold = 2

// EnumerateLegalPlays 枚举手牌中所有能压过 last 的牌型
// last 为 nil 表示自由出牌（领出），返回所有可出的牌型
// 按（炸弹等级、强度、长度）升序排列，同点数不同花色视为同一候选
// 纯函数，机器人出牌和玩家提示共用
func EnumerateLegalPlays(hand card.Cards, last *pattern.Pattern, revolution bool) []*pattern.Pattern {
	if len(hand) == 0 {
		return nil
	}

	cs := hand.Clone()
	cs.Sort()

	// 每个点数取一组代表牌，花色不影响合法性
	byRank := make(map[card.Rank]card.Cards)
	for _, c := range cs {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}

	var out []*pattern.Pattern
	add := func(group card.Cards) {
		p, err := pattern.Classify(group, revolution)
		if err != nil {
			return
		}
		if last != nil && !p.Beats(last) {
			return
		}
		out = append(out, p)
	}

	// 单张、对子、三同张、炸弹
	for r, group := range byRank {
		add(group[:1])
		if len(group) >= 2 && !r.IsJoker() {
			add(group[:2])
		}
		if len(group) >= 3 {
			add(group[:3])
		}
		if len(group) == 4 {
			add(group[:4])
		}
	}

	// 王炸
	if len(byRank[card.RankJokerSmall]) > 0 && len(byRank[card.RankJokerBig]) > 0 {
		add(card.Cards{byRank[card.RankJokerSmall][0], byRank[card.RankJokerBig][0]})
	}

	// 顺子与连对：在 3..A 上扫描连续段，再枚举所有窗口
	addRuns(byRank, 1, pattern.MinStraightLen, add)
	addRuns(byRank, 2, pattern.MinPairSeqLen, add)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind.Tier() != b.Kind.Tier() {
			return a.Kind.Tier() < b.Kind.Tier()
		}
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		if a.Length != b.Length {
			return a.Length < b.Length
		}
		return a.Kind < b.Kind
	})
	return out
}

// addRuns 扫描每点至少 width 张的连续点数段，枚举长度 >= minRun 的所有子窗口
func addRuns(byRank map[card.Rank]card.Cards, width, minRun int, add func(card.Cards)) {
	for start := pattern.SeqMinRank; start <= pattern.SeqMaxRank; start++ {
		// 只从连续段的起点开始，避免重复窗口
		if start > pattern.SeqMinRank && len(byRank[start-1]) >= width {
			continue
		}
		end := start
		for end <= pattern.SeqMaxRank && len(byRank[end]) >= width {
			end++
		}
		runLen := int(end - start)
		for l := minRun; l <= runLen; l++ {
			for base := start; int(base)+l-1 < int(start)+runLen; base++ {
				group := make(card.Cards, 0, l*width)
				for r := base; r < base+card.Rank(l); r++ {
					group = append(group, byRank[r][:width]...)
				}
				add(group)
			}
		}
	}
}

// DecideAction 机器人/托管出牌决策
// last 为 nil 时必须领出，不允许过牌
// minOpponentHand 是其他未完成座位中最少的手牌数，用于判断是否值得拆炸弹
// 返回 nil 表示过牌
// 决策顺序（固定、可测试）：
//  1. 有能一次出完的合法牌型则直接出完
//  2. 领出时出非炸弹里强度最低的，同强度选张数多的
//  3. 跟牌时出最弱的非炸弹
//  4. 只剩炸弹能压时，仅在对手手牌 <= BombThreshold 时动用最小的炸弹
func DecideAction(hand card.Cards, last *pattern.Pattern, revolution bool, minOpponentHand int) *pattern.Pattern {
	cands := EnumerateLegalPlays(hand, last, revolution)
	if len(cands) == 0 {
		return nil
	}

	// 能清空手牌直接赢
	for _, p := range cands {
		if p.Length == len(hand) {
			return p
		}
	}

	if last == nil {
		// 领出：最弱优先，同强度多带几张
		best := (*pattern.Pattern)(nil)
		for _, p := range cands {
			if p.IsBombClass() {
				continue
			}
			if best == nil || p.Strength < best.Strength ||
				(p.Strength == best.Strength && p.Length > best.Length) {
				best = p
			}
		}
		if best != nil {
			return best
		}
		// 手里只剩炸弹，领出也只能出它
		return cands[0]
	}

	for _, p := range cands {
		if !p.IsBombClass() {
			return p
		}
	}

	// 只有炸弹能压得住
	if minOpponentHand <= BombThreshold {
		return cands[0]
	}
	return nil
}

// HintOptions 给人类玩家的提示：返回排好序的全部候选，不做选择，不改状态
func HintOptions(hand card.Cards, last *pattern.Pattern, revolution bool) []*pattern.Pattern {
	return EnumerateLegalPlays(hand, last, revolution)
}
