package storage

import (
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/engine"
)

var DB *sql.DB

func InitPostgres(dsn string) error {
	var err error
	DB, err = sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	return DB.Ping()
}

// ResultStore 实现 manager.ResultSink，把每局结算写入 round_results 表
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveRoundResult 名次、倍数、积分和进贡记录整体落库
// 核心引擎只产出值对象，不直接碰存储
func (s *ResultStore) SaveRoundResult(r *engine.RoundResult) error {
	order, err := json.Marshal(r.FinishedOrder)
	if err != nil {
		return err
	}
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return err
	}
	tributes, err := json.Marshal(r.Tributes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO round_results (room_id, round_no, finished_order, multiplier, scores, tributes, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.RoomID, r.RoundNo, order, r.Multiplier, scores, tributes, r.FinishedAt,
	)
	return err
}
