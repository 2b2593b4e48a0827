// Package report renders warehouse data into xlsx workbooks.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

// MovementsWorkbook renders the stock ledger, one row per movement.
func MovementsWorkbook(movements []inventory.Movement) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"movement_id",
		"article_id",
		"op",
		"qty",
		"stock_before",
		"stock_after",
		"actor_id",
		"reason",
		"created_at",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, m := range movements {
		excelRow := []interface{}{
			m.ID,
			m.ArticleID,
			string(m.Op),
			m.Qty,
			m.StockBefore,
			m.StockAfter,
			m.ActorID,
			m.Reason,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// RequestWorkbook renders one request with its lines and audit trail on
// separate sheets.
func RequestWorkbook(req *requests.Request, lines []requests.Line, history []requests.History) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"line_id",
		"item_kind",
		"item_id",
		"requested",
		"approved",
		"dispatched",
		"pending",
		"notes",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, l := range lines {
		if l.Retired {
			continue
		}
		itemID := l.Item.ArticleID
		if l.Item.Kind == requests.KindAsset {
			itemID = l.Item.AssetID
		}
		excelRow := []interface{}{
			l.ID,
			string(l.Item.Kind),
			itemID,
			l.Requested,
			l.Approved,
			l.Dispatched,
			l.Pending(),
			l.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	histSheet := "History"
	if _, err := f.NewSheet(histSheet); err != nil {
		return nil, err
	}
	histHeader := []interface{}{"state_before", "state_after", "actor_id", "notes", "changed_at"}
	if err := f.SetSheetRow(histSheet, "A1", &histHeader); err != nil {
		return nil, fmt.Errorf("write history header: %w", err)
	}
	row = 2
	for _, h := range history {
		before := ""
		if h.StateBefore != nil {
			before = string(*h.StateBefore)
		}
		excelRow := []interface{}{
			before,
			string(h.StateAfter),
			h.ActorID,
			h.Notes,
			h.ChangedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(histSheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("write history row %d: %w", row, err)
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
