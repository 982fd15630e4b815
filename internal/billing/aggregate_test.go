package billing

import (
	"testing"

	"github.com/shopspring/decimal"

	"sunar-backend/internal/models"
)

func item(total string) models.LineItem {
	return models.LineItem{ItemName: "x", Total: dec(total)}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.LineItem
		old      []models.OldJewelryItem
		discount decimal.Decimal
		gst      bool
		want     Totals
	}{
		{
			name:     "plain bill",
			items:    []models.LineItem{item("65000")},
			discount: decimal.Zero,
			want: Totals{
				Subtotal:        dec("65000"),
				IGST:            decimal.Zero,
				SGST:            decimal.Zero,
				OldJewelryTotal: decimal.Zero,
				GrandTotal:      dec("65000"),
			},
		},
		{
			name:     "gst bill",
			items:    []models.LineItem{item("10000"), item("20000")},
			discount: dec("500"),
			gst:      true,
			want: Totals{
				Subtotal:        dec("30000"),
				IGST:            dec("450"), // 30000 * 1.5%
				SGST:            dec("450"),
				OldJewelryTotal: decimal.Zero,
				GrandTotal:      dec("30400"),
			},
		},
		{
			name:     "old jewelry exchange",
			items:    []models.LineItem{item("50000")},
			old:      []models.OldJewelryItem{{Total: dec("12000")}, {Total: dec("3000")}},
			discount: dec("1000"),
			want: Totals{
				Subtotal:        dec("50000"),
				IGST:            decimal.Zero,
				SGST:            decimal.Zero,
				OldJewelryTotal: dec("15000"),
				GrandTotal:      dec("34000"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.items, tt.old, tt.discount, tt.gst)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			check := func(field string, got, want decimal.Decimal) {
				if !got.Equal(want) {
					t.Errorf("%s = %s, want %s", field, got, want)
				}
			}
			check("subtotal", got.Subtotal, tt.want.Subtotal)
			check("igst", got.IGST, tt.want.IGST)
			check("sgst", got.SGST, tt.want.SGST)
			check("old jewelry total", got.OldJewelryTotal, tt.want.OldJewelryTotal)
			check("grand total", got.GrandTotal, tt.want.GrandTotal)
		})
	}
}

func TestAggregateRejects(t *testing.T) {
	if _, err := Aggregate(nil, nil, decimal.Zero, false); !IsKind(err, KindValidation) {
		t.Errorf("no items: err = %v, want ValidationError", err)
	}
	if _, err := Aggregate([]models.LineItem{item("100")}, nil, dec("-1"), false); !IsKind(err, KindValidation) {
		t.Errorf("negative discount: err = %v, want ValidationError", err)
	}
	// Discount exceeding the sale must be rejected, not clamped.
	if _, err := Aggregate([]models.LineItem{item("100")}, nil, dec("200"), false); !IsKind(err, KindValidation) {
		t.Errorf("negative grand total: err = %v, want ValidationError", err)
	}
	// Old jewelry exceeding the sale likewise.
	old := []models.OldJewelryItem{{Total: dec("5000")}}
	if _, err := Aggregate([]models.LineItem{item("100")}, old, decimal.Zero, false); !IsKind(err, KindValidation) {
		t.Errorf("exchange over sale: err = %v, want ValidationError", err)
	}
}

func TestClassify(t *testing.T) {
	grand := dec("65000")

	tests := []struct {
		name          string
		mode          models.PaymentMode
		paid          decimal.Decimal
		wantPaid      decimal.Decimal
		wantRemaining decimal.Decimal
		wantStatus    models.BillStatus
	}{
		{"full payment", models.PaymentFull, decimal.Zero, grand, decimal.Zero, models.StatusPaid},
		{"full ignores submitted paid", models.PaymentFull, dec("100"), grand, decimal.Zero, models.StatusPaid},
		{"udhaar partial", models.PaymentUdhaar, dec("20000"), dec("20000"), dec("45000"), models.StatusPartial},
		{"udhaar pending", models.PaymentUdhaar, decimal.Zero, decimal.Zero, grand, models.StatusPending},
		{"udhaar fully paid at creation", models.PaymentUdhaar, grand, grand, decimal.Zero, models.StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paid, remaining, status, err := Classify(tt.mode, tt.paid, grand)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if !paid.Equal(tt.wantPaid) || !remaining.Equal(tt.wantRemaining) || status != tt.wantStatus {
				t.Errorf("got (%s, %s, %s), want (%s, %s, %s)",
					paid, remaining, status, tt.wantPaid, tt.wantRemaining, tt.wantStatus)
			}
			// remaining = grandTotal - paidAmount must always hold
			if !remaining.Equal(grand.Sub(paid)) {
				t.Errorf("remaining %s != grandTotal - paid %s", remaining, grand.Sub(paid))
			}
		})
	}
}

func TestClassifyRejects(t *testing.T) {
	if _, _, _, err := Classify(models.PaymentUdhaar, dec("-1"), dec("100")); !IsKind(err, KindValidation) {
		t.Errorf("negative paid: err = %v, want ValidationError", err)
	}
	if _, _, _, err := Classify(models.PaymentUdhaar, dec("200"), dec("100")); !IsKind(err, KindValidation) {
		t.Errorf("paid over grand total: err = %v, want ValidationError", err)
	}
	if _, _, _, err := Classify("Cheque", decimal.Zero, dec("100")); !IsKind(err, KindValidation) {
		t.Errorf("unknown mode: err = %v, want ValidationError", err)
	}
}
