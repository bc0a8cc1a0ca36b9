package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	decisions *csv.Writer
	trades    *csv.Writer
	df, tf    *os.File
}

func NewCSV(decisionsPath, tradesPath string) (*CSV, error) {
	df, err := os.Create(decisionsPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(tradesPath)
	if err != nil {
		df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	tw := csv.NewWriter(tf)

	if err := dw.Write([]string{"id", "time", "symbol", "regime", "bias", "can_trade", "reason", "price", "spread"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"id", "time", "ticket", "symbol", "side", "action", "volume", "price", "stop_loss", "take_profit", "risk_pct", "realized_pl"}); err != nil {
		return nil, err
	}

	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}

	return &CSV{dw, tw, df, tf}, nil
}

func (j *CSV) RecordDecision(d DecisionRecord) error {
	j.decisions.Write([]string{
		d.ID,
		d.Time.Format(time.RFC3339),
		d.Symbol,
		d.Regime,
		d.Bias,
		strconv.FormatBool(d.CanTrade),
		d.Reason,
		f(d.Price),
		f(d.Spread),
	})
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.trades.Write([]string{
		t.ID,
		t.Time.Format(time.RFC3339),
		t.Ticket,
		t.Symbol,
		t.Side,
		t.Action,
		f(t.Volume),
		f(t.Price),
		f(t.StopLoss),
		f(t.TakeProfit),
		f(t.RiskPct),
		f(t.RealizedPL),
	})
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) Close() error {
	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}

	if err := j.df.Close(); err != nil {
		return err
	}
	return j.tf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
