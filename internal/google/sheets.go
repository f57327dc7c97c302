package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// BoardSheet is the tab the day board is written to.
const BoardSheet = "Board"

var boardHeaders = []interface{}{"Chair", "Location", "Free", "Booked", "Unavailable", "Bookable slots"}

// SheetsService publishes the per-chair day board to a Google spreadsheet.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

var _ domain.SheetsWriter = (*SheetsService)(nil)

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newWithService(srv, spreadsheetID, logger), nil
}

func newWithService(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *SheetsService {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets").Logger()
	}
	return &SheetsService{service: srv, spreadsheetID: spreadsheetID, logger: l}
}

// TestConnection reads the first board cell.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, BoardSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the client_email of a service account key file,
// which is the address the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// PublishDayBoard replaces the board tab with the given day overview.
func (s *SheetsService) PublishDayBoard(ctx context.Context, date time.Time, chairs []models.ChairDay) error {
	sheetID, err := s.GetSheetIdByName(ctx, BoardSheet)
	if err != nil {
		return fmt.Errorf("unable to get sheet ID: %w", err)
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, BoardSheet+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}

	values := DayBoardValues(date, chairs)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, BoardSheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to update board: %w", err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: boardFormat(sheetID, chairs)}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to apply formatting: %w", err)
	}

	s.logger.Info().Str("date", date.Format(models.DateLayout)).Int("chairs", len(chairs)).Msg("Day board published")
	return nil
}

// GetSheetIdByName returns the numeric id of a tab in the configured spreadsheet.
func (s *SheetsService) GetSheetIdByName(ctx context.Context, sheetName string) (int64, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet '%s' not found", sheetName)
}

// DayBoardValues lays out the board: a title row, a blank row, the header row, then one row per chair.
func DayBoardValues(date time.Time, chairs []models.ChairDay) [][]interface{} {
	values := [][]interface{}{
		{fmt.Sprintf("Day board: %s", date.Format("Mon 02.01.2006"))},
		{},
		boardHeaders,
	}

	if len(chairs) == 0 {
		return append(values, []interface{}{"No active chairs"})
	}

	for _, c := range chairs {
		starts := make([]string, 0, len(c.Bookable))
		for _, s := range c.Bookable {
			starts = append(starts, s.Slot.Start.Format("15:04"))
		}
		free := strings.Join(starts, ", ")
		if free == "" {
			free = "-"
		}
		values = append(values, []interface{}{
			c.Chair.Name,
			c.Chair.Location,
			c.Summary.Available,
			c.Summary.Booked,
			c.Summary.Unavailable,
			free,
		})
	}
	return values
}

func boardFormat(sheetID int64, chairs []models.ChairDay) []*sheets.Request {
	requests := []*sheets.Request{
		repeatCell(sheetID, 0, 1, 0, 1, &sheets.CellFormat{
			TextFormat: &sheets.TextFormat{Bold: true, FontSize: 14},
		}, "userEnteredFormat(textFormat)"),
		repeatCell(sheetID, 2, 3, 0, int64(len(boardHeaders)), &sheets.CellFormat{
			HorizontalAlignment: "CENTER",
			TextFormat:          &sheets.TextFormat{Bold: true},
			BackgroundColor:     &sheets.Color{Red: 0.86, Green: 0.92, Blue: 0.97},
		}, "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
	}

	for i, c := range chairs {
		row := int64(i + 3)
		color := &sheets.Color{Red: 0.78, Green: 0.94, Blue: 0.81}
		if c.Summary.Available == 0 {
			color = &sheets.Color{Red: 1.0, Green: 0.78, Blue: 0.81}
		}
		requests = append(requests, repeatCell(sheetID, row, row+1, 2, 3, &sheets.CellFormat{
			BackgroundColor: color,
		}, "userEnteredFormat(backgroundColor)"))
	}

	widths := []int64{200, 160, 80, 80, 100, 400}
	for i, px := range widths {
		requests = append(requests, &sheets.Request{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: int64(i),
					EndIndex:   int64(i + 1),
				},
				Properties: &sheets.DimensionProperties{PixelSize: px},
				Fields:     "pixelSize",
			},
		})
	}
	return requests
}

func repeatCell(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}
