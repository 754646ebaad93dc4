package bot

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/internal/leads"
	"elpbot/internal/notify"
)

const exportSheet = "Заявки"

var exportHeaders = []string{"ID", "Дата", "Имя", "Контакт", "Тип контакта", "Площадь", "Срок", "Статус", "Telegram", "User ID"}

// BuildWorkbook writes leads into a single-sheet XLSX file, one row per lead.
func BuildWorkbook(list []leads.Lead) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, style); err != nil {
		return nil, fmt.Errorf("apply style: %w", err)
	}

	for idx, l := range list {
		values := []interface{}{
			l.ID,
			tghelpers.FormatStamp(l.CreatedAt),
			l.Name,
			l.Contact,
			notify.ContactKindLabel(l.ContactKind),
			l.Area,
			l.Term,
			statusLabel(l.Status),
			l.Username,
			l.UserID,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, idx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", idx+2, err)
			}
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "J", 18); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	return f.WriteToBuffer()
}
