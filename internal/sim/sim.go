// Package sim walks a price series bar by bar and turns entry signals
// into a deterministic trade list. One position at a time, entry at
// the signal bar's open, first-touch SL/TP with stop winning ties,
// forced liquidation at the intraday flat-close boundary.
package sim

import (
	"errors"
	"fmt"

	"gridbt/internal/model"
	"gridbt/internal/series"
	"gridbt/internal/strategy"
)

// ErrInvalidInput marks malformed series or signals. The failure is
// local to one configuration; sweeps record it and move on.
var ErrInvalidInput = errors.New("invalid input")

// tradeCapDivisor sizes the trades pre-allocation (bars / 50).
const tradeCapDivisor = 50

type position struct {
	open     bool
	side     model.Side
	entryBar int
	entry    float64
	sl       float64
	tp       float64
}

type pendingEntry struct {
	ok   bool
	side model.Side
	sl   float64
	tp   float64
}

// Run simulates one configuration. The per-bar order is fixed:
// promote pending entry at the open, flat-close liquidation, SL then
// TP against the bar's range, then (if flat) arm the next entry.
func Run(s *series.Series, sig *strategy.Signals, exec strategy.ExecSpec) ([]model.Trade, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n := s.Len()
	if len(sig.EnterLong) != n || len(sig.EnterShort) != n || len(sig.SLPrice) != n || len(sig.TPPrice) != n {
		return nil, fmt.Errorf("%w: signals length %d, series length %d", ErrInvalidInput, len(sig.EnterLong), n)
	}

	trades := make([]model.Trade, 0, n/tradeCapDivisor+1)
	flatClose := exec.FlatClose.Minutes()

	var pos position
	var pend pendingEntry

	for i := 0; i < n; i++ {
		if pend.ok {
			pos = position{
				open:     true,
				side:     pend.side,
				entryBar: i,
				entry:    s.Open(i),
				sl:       pend.sl,
				tp:       pend.tp,
			}
			pend = pendingEntry{}
		}

		if pos.open && s.MinuteOfDay(i) >= flatClose {
			trades = append(trades, closeOut(pos, i, s.Close(i), model.ExitIntradayClose))
			pos = position{}
		}

		if pos.open {
			// stop checked before target: if both lie inside the
			// bar's range the stop wins
			switch pos.side {
			case model.Long:
				if s.Low(i) <= pos.sl {
					trades = append(trades, closeOut(pos, i, pos.sl, model.ExitStop))
					pos = position{}
				} else if s.High(i) >= pos.tp {
					trades = append(trades, closeOut(pos, i, pos.tp, model.ExitTarget))
					pos = position{}
				}
			case model.Short:
				if s.High(i) >= pos.sl {
					trades = append(trades, closeOut(pos, i, pos.sl, model.ExitStop))
					pos = position{}
				} else if s.Low(i) <= pos.tp {
					trades = append(trades, closeOut(pos, i, pos.tp, model.ExitTarget))
					pos = position{}
				}
			}
		}

		if pos.open && exec.Trailing {
			trail(&pos, s.Close(i), s.ATR(i)*exec.TrailATRMult)
		}

		if !pos.open && i >= sig.StartIndex && i+1 < n {
			j := i + 1
			if sig.EnterLong[j] {
				pend = pendingEntry{ok: true, side: model.Long, sl: sig.SLPrice[j], tp: sig.TPPrice[j]}
			} else if sig.EnterShort[j] {
				pend = pendingEntry{ok: true, side: model.Short, sl: sig.SLPrice[j], tp: sig.TPPrice[j]}
			}
		}
	}

	// data ends with a position still on: force out at the last close
	if pos.open {
		last := n - 1
		trades = append(trades, closeOut(pos, last, s.Close(last), model.ExitIntradayClose))
	}
	return trades, nil
}

func closeOut(pos position, bar int, price float64, reason model.ExitReason) model.Trade {
	pnl := price - pos.entry
	if pos.side == model.Short {
		pnl = pos.entry - price
	}
	return model.Trade{
		EntryBar:   pos.entryBar,
		ExitBar:    bar,
		Side:       pos.side,
		EntryPrice: pos.entry,
		ExitPrice:  price,
		SLPrice:    pos.sl,
		TPPrice:    pos.tp,
		PnLPoints:  pnl,
		ExitReason: reason,
	}
}

// trail ratchets the stop toward price by the ATR distance; it never
// loosens and never touches the target.
func trail(pos *position, close, dist float64) {
	if dist <= 0 {
		return
	}
	if pos.side == model.Long {
		if sl := close - dist; sl > pos.sl {
			pos.sl = sl
		}
	} else {
		if sl := close + dist; sl < pos.sl {
			pos.sl = sl
		}
	}
}
