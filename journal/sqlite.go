package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordDecision(d DecisionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO decisions
		(id, time, symbol, regime, bias, can_trade, reason, price, spread)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Time, d.Symbol, d.Regime, d.Bias, d.CanTrade, d.Reason, d.Price, d.Spread,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, time, ticket, symbol, side, action, volume, price, stop_loss, take_profit, risk_pct, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Time, t.Ticket, t.Symbol, t.Side, t.Action,
		t.Volume, t.Price, t.StopLoss, t.TakeProfit, t.RiskPct, t.RealizedPL,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
