// Package gas implements the opt-in tick metering exposed to guests via useTicks.
package gas

import (
	"github.com/ewasm/scout/types"
)

// Meter tracks tick consumption during one execution.
type Meter interface {
	// Consume charges the specified amount of ticks
	Consume(amount types.Ticks) error
	// Remaining returns the amount of ticks left
	Remaining() types.Ticks
	// Report summarizes limit, used and remaining ticks
	Report() types.TickReport
}

// TickMeter is the default implementation of Meter. The counter only ever
// decreases and a charge that does not fit leaves it untouched.
type TickMeter struct {
	limit    types.Ticks
	consumed types.Ticks
}

var _ Meter = (*TickMeter)(nil)

// NewTickMeter creates a new meter with the specified budget.
func NewTickMeter(limit types.Ticks) *TickMeter {
	return &TickMeter{
		limit:    limit,
		consumed: 0,
	}
}

func (m *TickMeter) Consume(amount types.Ticks) error {
	if amount > m.Remaining() {
		return &types.OutOfTicksError{
			Wanted:    amount,
			Available: m.Remaining(),
		}
	}
	m.consumed += amount
	return nil
}

func (m *TickMeter) Remaining() types.Ticks {
	return m.limit - m.consumed
}

func (m *TickMeter) Report() types.TickReport {
	return types.TickReport{
		Limit:     m.limit,
		Used:      m.consumed,
		Remaining: m.Remaining(),
	}
}
