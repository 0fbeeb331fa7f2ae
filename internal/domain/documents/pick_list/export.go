package pick_list

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
)

const sheetName = "Pick list"

var sheetHeaders = []string{
	"Line", "Item", "UoM", "Allocated", "Picked", "Remaining", "Checked",
}

// ExportSheet renders a printable XLSX pick sheet. The caller must close
// the returned file.
func (s *Service) ExportSheet(ctx context.Context, scope tenant.Scope, plID id.ID) (*excelize.File, string, error) {
	pl, err := s.Get(ctx, scope, plID)
	if err != nil {
		return nil, "", err
	}
	dn, err := s.notes.Get(ctx, scope, pl.DeliveryNoteID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	labelStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	header := [][2]string{
		{"Pick list", pl.Number},
		{"Delivery note", dn.Number},
		{"Status", string(pl.Status)},
		{"From warehouse", dn.FulfillingWarehouseID.String()},
		{"To warehouse", dn.RequestingWarehouseID.String()},
		{"Pickers", strings.Join(pl.PickerUserIDs, ", ")},
	}
	for i, kv := range header {
		row := i + 1
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), kv[0])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), kv[1])
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
	}

	headRow := len(header) + 2
	for i, h := range sheetHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headRow)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, boldStyle)
	}

	for i, it := range pl.Items {
		row := headRow + 1 + i
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), it.LineNo)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), it.ItemID.String())
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), it.UomID.String())
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), it.AllocatedQty.Float64())
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), it.PickedQty.Float64())
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), (it.AllocatedQty - it.PickedQty).MaxZero().Float64())
	}

	colWidths := []float64{6, 38, 38, 12, 12, 12, 10}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	filename := fmt.Sprintf("%s.xlsx", pl.Number)
	return f, filename, nil
}
