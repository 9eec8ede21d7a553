package export

import (
	"context"
	"errors"
	"time"

	"rentdapp/internal/models"

	"github.com/rs/zerolog"
)

var ErrNothingToExport = errors.New("no bookings to export")

// SheetsQueue schedules a sheet refresh in the background.
type SheetsQueue interface {
	Enqueue(ctx context.Context, bookings []models.Booking) error
}

// Result reports where an export went.
type Result struct {
	File        string `json:"file,omitempty"`
	Rows        int    `json:"rows"`
	SheetQueued bool   `json:"sheetQueued"`
}

// Exporter writes "my bookings" to a workbook and optionally queues a
// Google Sheets refresh.
type Exporter struct {
	dir    string
	sheets SheetsQueue
	now    func() time.Time
	logger *zerolog.Logger
}

func NewExporter(dir string, sheets SheetsQueue, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, sheets: sheets, now: time.Now, logger: logger}
}

func (e *Exporter) Export(ctx context.Context, bookings []models.Booking) (Result, error) {
	if len(bookings) == 0 {
		return Result{}, ErrNothingToExport
	}

	path, err := WriteBookingsXLSX(e.dir, bookings, e.now())
	if err != nil {
		return Result{}, err
	}
	res := Result{File: path, Rows: len(bookings)}
	e.logger.Info().Str("file_path", path).Int("rows", len(bookings)).Msg("bookings exported")

	if e.sheets != nil {
		if err := e.sheets.Enqueue(ctx, bookings); err != nil {
			e.logger.Warn().Err(err).Msg("sheets refresh not queued")
		} else {
			res.SheetQueued = true
		}
	}
	return res, nil
}
