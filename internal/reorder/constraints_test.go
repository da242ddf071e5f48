package reorder

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestResolveConstraints(t *testing.T) {
	tests := []struct {
		name        string
		in          ConstraintInput
		wantQty     int
		wantReasons []string
	}{
		{
			name:        "moq then pack",
			in:          ConstraintInput{RawGap: 10, MOQ: 12, PackSize: 5, Velocity: 2, OnHand: 10},
			wantQty:     15,
			wantReasons: []string{ReasonMOQEnforced, ReasonPackRounded},
		},
		{
			name:        "no adjustments",
			in:          ConstraintInput{RawGap: 20, MOQ: 5, PackSize: 10, Velocity: 2},
			wantQty:     20,
			wantReasons: []string{},
		},
		{
			name:        "zero gap stays zero",
			in:          ConstraintInput{RawGap: 0, MOQ: 50, PackSize: 6, Velocity: 2},
			wantQty:     0,
			wantReasons: []string{},
		},
		{
			name:        "cap to zero voids moq and pack",
			in:          ConstraintInput{RawGap: 10, MOQ: 12, PackSize: 5, MaxStockDays: ip(5), Velocity: 2, OnHand: 10},
			wantQty:     0,
			wantReasons: []string{ReasonCappedByMaxDays},
		},
		{
			name:        "cap re-rounds to pack",
			in:          ConstraintInput{RawGap: 40, MOQ: 1, PackSize: 5, MaxStockDays: ip(10), Velocity: 2, OnHand: 3},
			wantQty:     20,
			wantReasons: []string{ReasonCappedByMaxDays},
		},
		{
			name:        "cap ignored without velocity",
			in:          ConstraintInput{RawGap: 8, MOQ: 1, PackSize: 1, MaxStockDays: ip(1), Velocity: 0},
			wantQty:     8,
			wantReasons: []string{},
		},
		{
			name:        "cap counts incoming",
			in:          ConstraintInput{RawGap: 30, MOQ: 1, PackSize: 1, MaxStockDays: ip(10), Velocity: 2, Incoming: 15},
			wantQty:     5,
			wantReasons: []string{ReasonCappedByMaxDays},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveConstraints(tt.in)
			if got.Quantity != tt.wantQty {
				t.Errorf("Expected quantity %d, got %d", tt.wantQty, got.Quantity)
			}
			if !reflect.DeepEqual(got.Reasons, tt.wantReasons) {
				t.Errorf("Expected reasons %v, got %v", tt.wantReasons, got.Reasons)
			}
		})
	}
}

func TestResolveConstraints_RecordsIntermediates(t *testing.T) {
	got := ResolveConstraints(ConstraintInput{RawGap: 10, MOQ: 12, PackSize: 5, MaxStockDays: ip(5), Velocity: 2, OnHand: 10})
	if got.PostMOQ != 12 || got.PostPack != 15 || got.PostCap != 0 {
		t.Errorf("Expected 12/15/0, got %d/%d/%d", got.PostMOQ, got.PostPack, got.PostCap)
	}
	if got.CapCeiling == nil || *got.CapCeiling != 0 {
		t.Errorf("Expected cap ceiling 0, got %v", got.CapCeiling)
	}
	if len(got.Adjustments) != 3 {
		t.Errorf("Expected 3 adjustment strings, got %v", got.Adjustments)
	}
}

func TestResolveConstraints_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		in := ConstraintInput{
			RawGap:   rng.Intn(200),
			MOQ:      1 + rng.Intn(60),
			PackSize: 1 + rng.Intn(24),
			Velocity: float64(rng.Intn(50)) / 4,
			OnHand:   rng.Intn(120) - 10,
			Incoming: rng.Intn(40),
		}
		if rng.Intn(2) == 0 {
			in.MaxStockDays = ip(1 + rng.Intn(90))
		}

		got := ResolveConstraints(in)

		if got.Quantity < 0 || got.Quantity%in.PackSize != 0 {
			t.Fatalf("case %d: quantity %d is not a non-negative multiple of %d", i, got.Quantity, in.PackSize)
		}
		if in.RawGap > 0 && in.RawGap < in.MOQ && got.PostPack < in.MOQ {
			t.Fatalf("case %d: pre-cap quantity %d fell below MOQ %d", i, got.PostPack, in.MOQ)
		}
		if in.MaxStockDays != nil && in.Velocity > 0 && got.Quantity > 0 {
			days := float64(in.OnHand+in.Incoming+got.Quantity) / in.Velocity
			limit := float64(*in.MaxStockDays) + float64(in.PackSize)/in.Velocity
			if days > limit+1e-9 {
				t.Fatalf("case %d: %v days exceeds cap tolerance %v", i, days, limit)
			}
		}

		again := in
		again.RawGap = got.Quantity
		if rerun := ResolveConstraints(again); rerun.Quantity != got.Quantity {
			t.Fatalf("case %d: not idempotent, %d then %d", i, got.Quantity, rerun.Quantity)
		}
	}
}

func TestMaxStockCeiling_LargeLimit(t *testing.T) {
	if got := maxStockCeiling(1000, 1e17, 0, 0); got != maxOrderUnits {
		t.Errorf("Expected ceiling clamped to %d, got %d", maxOrderUnits, got)
	}
	if got := maxStockCeiling(5, 2, 10, 0); got != 0 {
		t.Errorf("Expected ceiling 0, got %d", got)
	}
}

func TestTrailingReasons(t *testing.T) {
	got := trailingReasons(reasonContext{
		OnHand:           5,
		ReorderPoint:     5,
		Incoming:         3,
		DaysCoverCurrent: fp(2),
		LeadTimeDays:     7,
	})
	want := []string{ReasonBelowReorderPoint, ReasonIncomingCoverage, ReasonNoVelocity, ReasonLeadTimeRisk}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := trailingReasons(reasonContext{OnHand: 50, ReorderPoint: 5, VelocityKnown: true, DaysCoverCurrent: fp(30), LeadTimeDays: 7}); len(got) != 0 {
		t.Errorf("Expected no reasons, got %v", got)
	}
}
