package export

import (
	"strconv"

	"rentdapp/internal/models"
)

var bookingHeaders = []string{
	"ID", "Property", "Check-in", "Check-out", "Nights", "Guests", "Pets",
	"Status", "Total (EUR)", "Transaction", "Escrow released",
}

const dayLayout = "02.01.2006"

func bookingRow(b models.Booking) []interface{} {
	total := 0.0
	if b.PriceBreakdown != nil {
		total = b.PriceBreakdown.TotalAmount
	}
	return []interface{}{
		b.ID,
		b.PropertyID,
		formatDay(b.CheckInDate),
		formatDay(b.CheckOutDate),
		b.TotalNights,
		b.NumGuests,
		yesNo(b.HasPets),
		string(b.Status),
		total,
		b.BlockchainTxHash,
		yesNo(b.EscrowReleased),
	}
}

func formatDay(d models.LocalDateTime) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dayLayout)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sheetRange(sheet string, rows int) string {
	last := string(rune('A' + len(bookingHeaders) - 1))
	return sheet + "!A1:" + last + strconv.Itoa(rows)
}
