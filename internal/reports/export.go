package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteValuationXLSX writes the valuation as a spreadsheet, one block per category.
func WriteValuationXLSX(w io.Writer, v *Valuation) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Valuation"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	row := 1
	put := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}
	boldRow := func() error {
		return f.SetRowStyle(sheet, row-1, row-1, bold)
	}

	if err := put("Stock valuation as of", v.AsOf.Format("2006-01-02 15:04")); err != nil {
		return err
	}
	row++
	for _, g := range v.Categories {
		if err := put(g.CategoryName); err != nil {
			return err
		}
		if err := boldRow(); err != nil {
			return err
		}
		if err := put("Item", "Quantity", "Cost price", "Total cost"); err != nil {
			return err
		}
		for _, it := range g.Items {
			if err := put(it.Name, it.Quantity, it.CostPrice.InexactFloat64(), it.TotalCost.InexactFloat64()); err != nil {
				return err
			}
		}
		if err := put("Subtotal", nil, nil, g.Subtotal.InexactFloat64()); err != nil {
			return err
		}
		row++
	}
	if err := put("Grand total", nil, nil, v.GrandTotal.InexactFloat64()); err != nil {
		return err
	}
	if err := boldRow(); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "D", 14); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write valuation workbook: %w", err)
	}
	return nil
}

// WriteCommissionXLSX writes the commission-by-staff rows as a spreadsheet.
func WriteCommissionXLSX(w io.Writer, rows []StaffCommission) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Commission"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := []interface{}{"Staff", "Sales", "Revenue", "Commission"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		name := r.Name
		if name == "" {
			name = r.StaffID
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{name, r.Sales, r.Revenue, r.Commission}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write commission workbook: %w", err)
	}
	return nil
}
