package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"pagoqr/internal/infra"
)

// reciboPayload mirrors the json shape the checkout enqueues.
type reciboPayload struct {
	Email  string      `json:"email"`
	Recibo reciboDatos `json:"recibo"`
}

type reciboDatos struct {
	Fecha         time.Time       `json:"fecha"`
	Moneda        string          `json:"moneda"`
	Items         []reciboItem    `json:"items"`
	TotalServicio decimal.Decimal `json:"total_servicio"`
	TotalComision decimal.Decimal `json:"total_comision"`
	TotalGeneral  decimal.Decimal `json:"total_general"`
	Vigencia      string          `json:"vigencia"`
	QRBase64      string          `json:"qr_base64"`
}

type reciboItem struct {
	ServicioNombre string          `json:"servicio_nombre"`
	CodigoContrato string          `json:"codigo_contrato"`
	Total          decimal.Decimal `json:"total"`
}

// ReciboWorker renders the receipt PDF and mails it to the billing address.
type ReciboWorker struct {
	mailer      *infra.Mailer
	storagePath string
}

func NewReciboWorker(mailer *infra.Mailer, storagePath string) *ReciboWorker {
	return &ReciboWorker{mailer: mailer, storagePath: storagePath}
}

// Procesar handles one receipt job. The generated file is removed after a
// successful send; on failure it stays for the retry.
func (w *ReciboWorker) Procesar(ctx context.Context, datos []byte) error {
	var payload reciboPayload
	if err := json.Unmarshal(datos, &payload); err != nil {
		return fmt.Errorf("recibo: payload ilegible: %w", err)
	}
	if payload.Email == "" {
		return fmt.Errorf("recibo: sin destinatario")
	}

	recibo := infra.Recibo{
		Fecha:         payload.Recibo.Fecha,
		Moneda:        payload.Recibo.Moneda,
		TotalServicio: payload.Recibo.TotalServicio,
		TotalComision: payload.Recibo.TotalComision,
		TotalGeneral:  payload.Recibo.TotalGeneral,
		Vigencia:      payload.Recibo.Vigencia,
		QRBase64:      payload.Recibo.QRBase64,
	}
	for _, it := range payload.Recibo.Items {
		recibo.Items = append(recibo.Items, infra.ReciboItem{
			ServicioNombre: it.ServicioNombre,
			CodigoContrato: it.CodigoContrato,
			Total:          it.Total,
		})
	}

	nombre := fmt.Sprintf("%d", payload.Recibo.Fecha.UnixMilli())
	pdfPath, err := infra.GuardarReciboPDF(&recibo, w.storagePath, nombre)
	if err != nil {
		return fmt.Errorf("recibo: generar PDF: %w", err)
	}

	body := fmt.Sprintf(
		"Gracias por su pago.\n\nTotal pagado: %s %s\n%s\n\nSe adjunta el recibo con el código QR.",
		recibo.Moneda, recibo.TotalGeneral.StringFixed(2), recibo.Vigencia)
	if err := w.mailer.SendRecibo(payload.Email, "Recibo de pago", body, pdfPath); err != nil {
		return fmt.Errorf("recibo: enviar correo: %w", err)
	}

	if err := os.Remove(pdfPath); err != nil {
		log.Debug().Err(err).Str("archivo", pdfPath).Msg("recibo: no se pudo limpiar el PDF")
	}
	log.Info().Str("destinatario", payload.Email).Msg("recibo: correo enviado")
	return nil
}
