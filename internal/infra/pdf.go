package infra

// pdf.go — payment receipt generation using go-pdf/fpdf.
// Produces a receipt-style document with:
//   - Header and payment timestamp
//   - One row per cart line item (service, contract, total)
//   - Commission line (if applicable)
//   - Bold grand total
//   - Embedded QR image with its validity label

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ReciboItem is one printed line of the receipt.
type ReciboItem struct {
	ServicioNombre string
	CodigoContrato string
	Total          decimal.Decimal
}

// Recibo carries everything needed to render a payment receipt.
type Recibo struct {
	Fecha         time.Time
	Moneda        string
	Items         []ReciboItem
	TotalServicio decimal.Decimal
	TotalComision decimal.Decimal
	TotalGeneral  decimal.Decimal
	Vigencia      string
	QRBase64      string // PNG, base64-encoded, as returned by the pasarela
}

// GenerarReciboPDF renders the receipt to w.
func GenerarReciboPDF(r *Recibo, w io.Writer) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 160},
	})
	pdf.SetMargins(5, 5, 5)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 10

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Pago QR", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Recibo de pago", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, r.Fecha.Format("02/01/2006  15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.Line(5, pdf.GetY(), pageW-5, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.62
	col2 := contentW * 0.38

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Servicio / Contrato", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range r.Items {
		nombre := item.ServicioNombre
		if len(nombre) > 24 {
			nombre = nombre[:23] + "…"
		}
		pdf.CellFormat(col1, 4, nombre, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, r.Moneda+" "+item.Total.StringFixed(2), "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "I", 6)
		pdf.CellFormat(col1, 3, "Contrato "+item.CodigoContrato, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
	}

	pdf.Ln(1)
	pdf.Line(5, pdf.GetY(), pageW-5, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1, 4, "Servicios:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 4, r.Moneda+" "+r.TotalServicio.StringFixed(2), "", 1, "R", false, 0, "")
	if !r.TotalComision.IsZero() {
		pdf.CellFormat(col1, 4, "Comisiones:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, r.Moneda+" "+r.TotalComision.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, r.Moneda+" "+r.TotalGeneral.StringFixed(2), "", 1, "R", false, 0, "")

	// ── QR ───────────────────────────────────────────────────────────────────
	if r.QRBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(r.QRBase64)
		if err == nil {
			opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
			pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(img))
			qrSize := 45.0
			x := (pageW - qrSize) / 2
			pdf.ImageOptions("qr", x, pdf.GetY()+3, qrSize, qrSize, false, opts, 0, "")
			pdf.SetY(pdf.GetY() + qrSize + 5)
		}
	}

	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, r.Vigencia, "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

// GuardarReciboPDF writes the receipt to storagePath and returns the file path.
// Used by the email worker to attach the receipt.
func GuardarReciboPDF(r *Recibo, storagePath, nombre string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("recibo_%s.pdf", nombre))
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	defer f.Close()
	if err := GenerarReciboPDF(r, f); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
