package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{in: "YES", want: PositionYes},
		{in: "NO", want: PositionNo},
		{in: "yes", wantErr: true},
		{in: "MAYBE", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePosition(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPositionOpposite(t *testing.T) {
	assert.Equal(t, PositionNo, PositionYes.Opposite())
	assert.Equal(t, PositionYes, PositionNo.Opposite())
}

func TestErrorMatchesByCode(t *testing.T) {
	err := NewIdempotency(CodeAlreadyClaimed, "holder 0x01 already claimed")

	assert.True(t, errors.Is(err, ErrAlreadyClaimed))
	assert.False(t, errors.Is(err, ErrAlreadyRefunded))
	assert.Equal(t, KindIdempotency, KindOf(err))
	assert.Contains(t, err.Error(), "ALREADY_CLAIMED")
	assert.Contains(t, err.Error(), "idempotency")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindState, KindOf(errors.New("boom")))
}

func TestMarketStateLabels(t *testing.T) {
	assert.Equal(t, "open", MarketOpen.String())
	assert.Equal(t, "awaiting_resolution", MarketAwaitingResolution.String())
	assert.Equal(t, "resolved", MarketResolved.String())
	assert.Equal(t, "cancelled", MarketCancelled.String())
}
