package reorder

import "testing"

func TestCalculateHorizon(t *testing.T) {
	tests := []struct {
		name string
		in   HorizonInput
		want int
	}{
		{"lead plus safety", HorizonInput{LeadTimeDays: ip(14), SafetyStockDays: ip(3)}, 17},
		{"floor applied", HorizonInput{LeadTimeDays: ip(1), SafetyStockDays: ip(1)}, 7},
		{"defaults", HorizonInput{}, 10},
		{"default safety only", HorizonInput{LeadTimeDays: ip(20)}, 23},
		{"zero lead time", HorizonInput{LeadTimeDays: ip(0), SafetyStockDays: ip(10)}, 10},
		{"override wins", HorizonInput{LeadTimeDays: ip(30), SafetyStockDays: ip(10), Override: ip(5)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateHorizon(tt.in); got != tt.want {
				t.Errorf("Expected horizon %d, got %d", tt.want, got)
			}
		})
	}
}

func TestIncomingWithinHorizon(t *testing.T) {
	buckets := IncomingBuckets{Within7: 1, Within14: 3, Within30: 6, Within60: 10}

	tests := []struct {
		horizon    int
		wantQty    int
		wantBucket int
		wantBeyond bool
	}{
		{5, 1, 7, false},
		{7, 1, 7, false},
		{8, 3, 14, false},
		{17, 6, 30, false},
		{60, 10, 60, false},
		{90, 10, 60, true},
	}

	for _, tt := range tests {
		qty, bucket, beyond := IncomingWithinHorizon(buckets, tt.horizon)
		if qty != tt.wantQty || bucket != tt.wantBucket || beyond != tt.wantBeyond {
			t.Errorf("horizon %d: expected (%d, %d, %v), got (%d, %d, %v)",
				tt.horizon, tt.wantQty, tt.wantBucket, tt.wantBeyond, qty, bucket, beyond)
		}
	}
}

func TestCalculateQuantity(t *testing.T) {
	t.Run("velocity times horizon", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:    VelocityDecision{Velocity: fp(2), Source: Source7d},
			HorizonDays: 10,
			OnHand:      10,
		})
		if got.DemandForecast != 20 || got.RawGap != 10 || got.FromReorderPoint {
			t.Errorf("Expected forecast 20 gap 10, got %+v", got)
		}
	})

	t.Run("incoming reduces gap and floors at zero", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:    VelocityDecision{Velocity: fp(1), Source: Source7d},
			HorizonDays: 10,
			OnHand:      4,
			Incoming:    20,
		})
		if got.RawGap != 0 {
			t.Errorf("Expected gap 0, got %d", got.RawGap)
		}
	})

	t.Run("fractional demand rounds up", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:    VelocityDecision{Velocity: fp(0.35), Source: Source30d},
			HorizonDays: 10,
		})
		if got.RawGap != 4 {
			t.Errorf("Expected gap 4, got %d", got.RawGap)
		}
	})

	t.Run("no velocity falls back to reorder point", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:     VelocityDecision{Source: SourceNone},
			HorizonDays:  10,
			OnHand:       3,
			ReorderPoint: 8,
		})
		if got.RawGap != 5 || !got.FromReorderPoint || got.DemandForecast != 0 {
			t.Errorf("Expected reorder point gap 5, got %+v", got)
		}
	})

	t.Run("negative on hand widens gap", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:    VelocityDecision{Velocity: fp(1), Source: Source7d},
			HorizonDays: 10,
			OnHand:      -5,
		})
		if got.RawGap != 15 {
			t.Errorf("Expected gap 15, got %d", got.RawGap)
		}
	})

	t.Run("gap beyond whole unit range is out of range", func(t *testing.T) {
		got := CalculateQuantity(QuantityInput{
			Velocity:    VelocityDecision{Velocity: fp(1e17), Source: Source7d},
			HorizonDays: 1000,
		})
		if !got.OutOfRange || got.RawGap != 0 {
			t.Errorf("Expected out-of-range gap, got %+v", got)
		}
	})
}
