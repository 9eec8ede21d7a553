package export

import (
	"context"
	"fmt"
	"os"

	"rentdapp/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService mirrors the booking list into one Google Sheets tab.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, sheetName), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string) *SheetsService {
	if sheetName == "" {
		sheetName = bookingsSheet
	}
	return &SheetsService{service: srv, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// TestConnection reads the first header cell.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets connection test: %w", err)
	}
	return nil
}

// ReplaceBookingsSheet clears the tab and writes the header and one row per booking.
func (s *SheetsService) ReplaceBookingsSheet(ctx context.Context, bookings []models.Booking) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", s.sheetName, err)
	}

	values := make([][]interface{}, 0, len(bookings)+1)
	header := make([]interface{}, len(bookingHeaders))
	for i, h := range bookingHeaders {
		header[i] = h
	}
	values = append(values, header)
	for _, b := range bookings {
		values = append(values, bookingRow(b))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange(s.sheetName, len(values)), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", s.sheetName, err)
	}
	return nil
}
