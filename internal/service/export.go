package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turfbook/internal/calendar"
	"turfbook/internal/models"

	"github.com/xuri/excelize/v2"
)

// ExportService выгружает брони и занятость в Excel для оператора.
type ExportService struct {
	bookings *BookingService
	path     string
}

func NewExportService(bookings *BookingService, path string) *ExportService {
	return &ExportService{bookings: bookings, path: path}
}

// ExportBookings создает Excel файл со всеми бронями и листом занятости.
func (e *ExportService) ExportBookings(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	days, states, err := e.bookings.ListSlots(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting occupancy: %v", err)
	}

	var all []*models.Booking
	var before *time.Time
	for {
		page, err := e.bookings.GetBookings(ctx, models.DefaultBookingsPageSize, before)
		if err != nil {
			return "", fmt.Errorf("error getting bookings: %v", err)
		}
		all = append(all, page...)
		if len(page) < models.DefaultBookingsPageSize {
			break
		}
		last := page[len(page)-1].CreatedAt
		before = &last
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeBookingsSheet(f, all); err != nil {
		return "", err
	}
	if err := e.writeOccupancySheet(f, days, states); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}
	return filePath, nil
}

func (e *ExportService) writeBookingsSheet(f *excelize.File, bookings []*models.Booking) error {
	const sheet = "Брони"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Номер", "Имя", "Телефон", "Формат", "Слоты", "Сумма", "Оплата", "Статус", "Создана"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", lastHeader, style)

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), b.Ref)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), b.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), b.Phone)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), string(b.Mode))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), strings.Join(b.SlotIDs, ", "))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), b.Amount)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), b.PaymentStatus)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), b.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), b.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	_ = f.SetColWidth(sheet, "E", "E", 40)
	_ = f.SetColWidth(sheet, "I", "I", 18)
	return nil
}

func (e *ExportService) writeOccupancySheet(f *excelize.File, days []calendar.Day, states map[string]models.OccupancyState) error {
	const sheet = "Занятость"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}

	// Колонка на день, строка на получас.
	for col, day := range days {
		headCell, _ := excelize.CoordinatesToCellName(col+2, 1)
		_ = f.SetCellValue(sheet, headCell, day.Label)

		for rowIdx, slot := range day.Slots {
			if col == 0 {
				timeCell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
				_ = f.SetCellValue(sheet, timeCell, slot.TimeLabel)
			}
			cell, _ := excelize.CoordinatesToCellName(col+2, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, occupancyLabel(states[slot.ID]))

			if styleID, err := occupancyCellStyle(f, states[slot.ID]); err == nil {
				_ = f.SetCellStyle(sheet, cell, cell, styleID)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	return nil
}

func occupancyLabel(state models.OccupancyState) string {
	switch state {
	case models.OccupancyFull:
		return "Занято"
	case models.OccupancyHalf:
		return "Половина"
	default:
		return "Свободно"
	}
}

func occupancyCellStyle(f *excelize.File, state models.OccupancyState) (int, error) {
	color := "#C6EFCE"
	switch state {
	case models.OccupancyFull:
		color = "#FFC7CE"
	case models.OccupancyHalf:
		color = "#FFEB9C"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
