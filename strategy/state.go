package strategy

import "github.com/volatiq/gotdi/types"

// State is the per-symbol strategy state: the open position (nil when
// flat), the append-only trade log and the equity curve. It is a plain
// value owned by the strategy instance; all mutation happens inside the
// lifecycle manager so the position is never partially committed.
type State struct {
	Position *types.Position
	Trades   []types.Trade
	Equity   []types.EquitySample
}

// equityBalances extracts the balance column of the equity curve.
func (s *State) equityBalances() []float64 {
	out := make([]float64, len(s.Equity))
	for i, e := range s.Equity {
		out[i] = e.Balance
	}
	return out
}
