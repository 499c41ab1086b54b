package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BpsDenominator is the fixed-point denominator for all basis-point ratios
// (fees, confidence, probabilities).
const BpsDenominator = 10000

// Position is a side of a binary market.
type Position int

const (
	PositionYes Position = iota
	PositionNo
)

func (p Position) String() string {
	if p == PositionYes {
		return "YES"
	}
	return "NO"
}

// Opposite returns the other side of the market.
func (p Position) Opposite() Position {
	if p == PositionYes {
		return PositionNo
	}
	return PositionYes
}

// ParsePosition parses "YES"/"NO" (case-sensitive, matching the wire format).
func ParsePosition(s string) (Position, error) {
	switch s {
	case "YES":
		return PositionYes, nil
	case "NO":
		return PositionNo, nil
	}
	return 0, NewValidation(CodeInvalidPosition, fmt.Sprintf("invalid position %q", s))
}

// Outcome is a finalized market result. It is the winning Position.
type Outcome = Position

// MarketState is the lifecycle state of a market.
type MarketState int

const (
	MarketOpen MarketState = iota
	MarketAwaitingResolution
	MarketResolved
	MarketCancelled
)

func (s MarketState) String() string {
	switch s {
	case MarketOpen:
		return "open"
	case MarketAwaitingResolution:
		return "awaiting_resolution"
	case MarketResolved:
		return "resolved"
	case MarketCancelled:
		return "cancelled"
	}
	return "unknown"
}

// MarketView is a read-only snapshot of a market, served over HTTP and
// cached. Amounts are int64 base units; probabilities are basis points.
type MarketView struct {
	ID                uuid.UUID   `json:"id"`
	State             MarketState `json:"-"`
	StateLabel        string      `json:"state"`
	Category          string      `json:"category"`
	Expiry            time.Time   `json:"expiry"`
	MinStake          int64       `json:"min_stake"`
	MaxStake          int64       `json:"max_stake"`
	TotalYes          int64       `json:"total_yes"`
	TotalNo           int64       `json:"total_no"`
	YesParticipants   int         `json:"yes_participants"`
	NoParticipants    int         `json:"no_participants"`
	YesProbabilityBps int64       `json:"yes_probability_bps"`
	NoProbabilityBps  int64       `json:"no_probability_bps"`
	Outcome           *string     `json:"outcome,omitempty"`
	ConfidenceBps     int64       `json:"confidence_bps,omitempty"`
}
