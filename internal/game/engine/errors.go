package engine

import "errors"

// 校验类错误：同步返回给出牌方，不改动任何状态
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrMustBeat            = errors.New("pattern does not beat last play")
	ErrCannotPassOpenTrick = errors.New("cannot pass when leading an open trick")
	ErrCardsNotInHand      = errors.New("cards not in hand")
	ErrInvalidTributeReturn = errors.New("invalid tribute return")
	ErrTributePending      = errors.New("tribute exchange not resolved")
	ErrSeatNotConnected    = errors.New("seat not connected")
	ErrNotPlaying          = errors.New("round not in playing status")
)

// 致命错误：状态机检测到内部不变量被破坏，房间停止接受任何动作
var ErrRoomHalted = errors.New("room halted on invariant violation")
