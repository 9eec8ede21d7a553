package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rentdapp/internal/models"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

var statusFill = map[models.ReservationStatus]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCheckedIn: "#C6EFCE",
	models.StatusCompleted: "#DDEBF7",
	models.StatusCancelled: "#FFC7CE",
	models.StatusRefunded:  "#FFC7CE",
}

// WriteBookingsXLSX saves bookings to a new workbook in dir and returns its path.
func WriteBookingsXLSX(dir string, bookings []models.Booking, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("header style: %w", err)
	}
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	styles := make(map[models.ReservationStatus]int)
	statusCol := indexOf(bookingHeaders, "Status") + 1
	for r, b := range bookings {
		row := r + 2
		for c, v := range bookingRow(b) {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, v)
		}
		color, ok := statusFill[b.Status]
		if !ok {
			continue
		}
		style, ok := styles[b.Status]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			})
			if err != nil {
				return "", fmt.Errorf("status style: %w", err)
			}
			styles[b.Status] = style
		}
		cell, _ := excelize.CoordinatesToCellName(statusCol, row)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, style)
	}

	_ = f.SetColWidth(bookingsSheet, "A", "B", 10)
	_ = f.SetColWidth(bookingsSheet, "C", "D", 14)
	_ = f.SetColWidth(bookingsSheet, "H", "I", 14)
	_ = f.SetColWidth(bookingsSheet, "J", "J", 70)
	_ = f.SetColWidth(bookingsSheet, "K", "K", 16)
	_ = f.DeleteSheet("Sheet1")

	path := filepath.Join(dir, fmt.Sprintf("my_bookings_%s.xlsx", now.Format("2006-01-02_15-04-05")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
