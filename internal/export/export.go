package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chairbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Calendar"

// Cell labels.
const (
	labelFree        = "free"
	labelUnavailable = "-"
)

// Exporter renders resolved calendars as XLSX workbooks.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func New(dir string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, logger: logger}
}

// CalendarWorkbook lays days out as columns and slot start times as rows.
func (e *Exporter) CalendarWorkbook(chair models.Chair, days []models.DayResolution) ([]byte, error) {
	f, err := e.build(chair, days)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveCalendar writes the workbook into the export directory and returns its path.
func (e *Exporter) SaveCalendar(chair models.Chair, days []models.DayResolution) (string, error) {
	if len(days) == 0 {
		return "", fmt.Errorf("no days to export")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(chair, days)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("chair_%d_%s_to_%s.xlsx", chair.ID, days[0].Date, days[len(days)-1].Date)
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int64("chair_id", chair.ID).Msg("Calendar exported")
	return filePath, nil
}

func (e *Exporter) build(chair models.Chair, days []models.DayResolution) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	title := chair.Name
	if title == "" {
		title = fmt.Sprintf("Chair %d", chair.ID)
	}
	if len(days) > 0 {
		title = fmt.Sprintf("%s: %s - %s", title, days[0].Date, days[len(days)-1].Date)
	}
	_ = f.SetCellValue(sheetName, "A1", title)

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	_ = f.SetCellStyle(sheetName, "A1", "A1", styles.title)

	rows := rowTimes(days)
	for i, clock := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(sheetName, cell, clock)
		_ = f.SetCellStyle(sheetName, cell, cell, styles.header)
	}

	for c, day := range days {
		col := c + 2
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, dayHeader(day.Date))
		_ = f.SetCellStyle(sheetName, cell, cell, styles.header)

		for _, slot := range day.Slots {
			row := indexOf(rows, slot.Slot.Start.Format("15:04"))
			if row < 0 {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, row+3)
			_ = f.SetCellValue(sheetName, cell, CellLabel(slot))
			_ = f.SetCellStyle(sheetName, cell, cell, styles.forStatus(slot.Status))
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	if len(days) > 0 {
		last, _ := excelize.ColumnNumberToName(len(days) + 1)
		_ = f.SetColWidth(sheetName, "B", last, 16)
		_ = f.MergeCell(sheetName, "A1", last+"1")
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      2,
		TopLeftCell: "B3",
		ActivePane:  "bottomRight",
	})

	return f, nil
}

// CellLabel is the text shown for one slot.
func CellLabel(s models.ResolvedSlot) string {
	switch s.Status {
	case models.SlotAvailable:
		return labelFree
	case models.SlotBooked:
		if s.Slot.BookingID != nil {
			return fmt.Sprintf("booked #%d", *s.Slot.BookingID)
		}
		return "booked"
	default:
		return labelUnavailable
	}
}

func rowTimes(days []models.DayResolution) []string {
	seen := make(map[string]bool)
	var rows []string
	for _, d := range days {
		for _, s := range d.Slots {
			clock := s.Slot.Start.Format("15:04")
			if !seen[clock] {
				seen[clock] = true
				rows = append(rows, clock)
			}
		}
	}
	return rows
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func dayHeader(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon 02.01")
}

type styles struct {
	title, header, free, booked, closed int
}

func newStyles(f *excelize.File) (*styles, error) {
	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if s.free, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("free style: %w", err)
	}
	if s.booked, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("booked style: %w", err)
	}
	if s.closed, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#EDEDED"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("closed style: %w", err)
	}
	return &s, nil
}

func (s *styles) forStatus(status string) int {
	switch status {
	case models.SlotAvailable:
		return s.free
	case models.SlotBooked:
		return s.booked
	default:
		return s.closed
	}
}
