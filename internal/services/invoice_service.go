package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"

	"sunar-backend/internal/billing"
	"sunar-backend/internal/models"
	"sunar-backend/internal/repositories"
	"sunar-backend/internal/timeutil"
)

// InvoiceService renders printable bill invoices.
type InvoiceService struct {
	BillRepo *repositories.BillRepository
	UserRepo *repositories.UserRepository
}

func NewInvoiceService(billRepo *repositories.BillRepository, userRepo *repositories.UserRepository) *InvoiceService {
	return &InvoiceService{BillRepo: billRepo, UserRepo: userRepo}
}

// GenerateBillPDF renders the bill as an A4 invoice. GST bills print as a
// TAX INVOICE with the tax breakup; plain bills print as a CASH MEMO.
func (s *InvoiceService) GenerateBillPDF(ctx context.Context, ownerID, billID int64) ([]byte, error) {
	bill, err := s.BillRepo.Get(ctx, ownerID, billID)
	if err != nil {
		return nil, err
	}

	shop, err := s.UserRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, billing.NotFoundf("owner %d not found", ownerID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Shop header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, shop.ShopName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if shop.Address != "" {
		pdf.CellFormat(190, 5, shop.Address, "", 1, "C", false, 0, "")
	}
	if shop.Phone != "" {
		pdf.CellFormat(190, 5, fmt.Sprintf("Phone: %s", shop.Phone), "", 1, "C", false, 0, "")
	}
	if bill.IsGSTBill && shop.GSTNo != "" {
		pdf.CellFormat(190, 5, fmt.Sprintf("GSTIN: %s", shop.GSTNo), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	title := "CASH MEMO"
	if bill.IsGSTBill {
		title = "TAX INVOICE"
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, title, "1", 1, "C", true, 0, "")

	// Bill and customer info
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, fmt.Sprintf("Bill No: %s", bill.BillNumber), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Date: %s", timeutil.FormatIST(bill.BillDate, "02-Jan-2006 03:04 PM")), "RB", 1, "R", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Customer: %s", bill.CustomerName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", bill.CustomerPhone), "RB", 1, "R", false, 0, "")
	if bill.CustomerAddress != "" {
		pdf.CellFormat(190, 7, fmt.Sprintf("Address: %s", bill.CustomerAddress), "LRB", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(55, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Material", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Weight (g)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(28, 7, "Rate/g", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Making", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range bill.Items {
		name := item.ItemName
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		pdf.CellFormat(55, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, string(item.Material), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, item.Weight.StringFixed(3), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, item.PricePerGram.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.MakingCharges.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	// Old jewelry exchanged against the bill
	if len(bill.OldJewelry) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(77, 7, "Old Jewelry (Exchange)", "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, "Weight (g)", "1", 0, "C", true, 0, "")
		pdf.CellFormat(28, 7, "Rate/g", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 7, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, old := range bill.OldJewelry {
			pdf.CellFormat(77, 6, string(old.Material), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, old.Weight.StringFixed(3), "1", 0, "R", false, 0, "")
			pdf.CellFormat(28, 6, old.PricePerGram.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(60, 6, "- "+old.Total.StringFixed(2), "1", 1, "R", false, 0, "")
		}
	}
	pdf.Ln(3)

	// Totals, right aligned
	writeTotal := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(130, 6, "", "", 0, "", false, 0, "")
		pdf.CellFormat(30, 6, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, value, "1", 1, "R", false, 0, "")
	}

	writeTotal("Subtotal", bill.Subtotal.StringFixed(2), false)
	if bill.IsGSTBill {
		writeTotal("IGST 1.5%", bill.IGST.StringFixed(2), false)
		writeTotal("SGST 1.5%", bill.SGST.StringFixed(2), false)
	}
	if bill.Discount.IsPositive() {
		writeTotal("Discount", "- "+bill.Discount.StringFixed(2), false)
	}
	if bill.OldJewelryTotal.IsPositive() {
		writeTotal("Old Jewelry", "- "+bill.OldJewelryTotal.StringFixed(2), false)
	}
	writeTotal("Grand Total", bill.GrandTotal.StringFixed(2), true)
	pdf.Ln(3)

	// Payment status band
	switch bill.Status {
	case models.StatusPaid:
		pdf.SetFillColor(200, 255, 200)
	default:
		pdf.SetFillColor(255, 200, 200)
	}
	pdf.SetFont("Arial", "B", 12)
	statusText := fmt.Sprintf("PAID: Rs. %s", bill.PaidAmount.StringFixed(2))
	if !bill.RemainingAmount.IsZero() {
		statusText = fmt.Sprintf("PAID: Rs. %s   |   UDHAAR REMAINING: Rs. %s",
			bill.PaidAmount.StringFixed(2), bill.RemainingAmount.StringFixed(2))
	}
	pdf.CellFormat(190, 10, statusText, "1", 1, "C", true, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(190, 5, "Goods once sold will not be taken back. Subject to local jurisdiction.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
