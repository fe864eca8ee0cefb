package types

// Ticks are abstract units of metered work consumed explicitly by guest calls.
type Ticks = uint64

// TickReport summarizes the metering budget of one invocation.
type TickReport struct {
	Limit     Ticks `json:"limit"`
	Used      Ticks `json:"used"`
	Remaining Ticks `json:"remaining"`
}
