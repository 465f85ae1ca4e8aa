package service

import (
	"fmt"
	"io"

	"shrimpy/menu"
	"shrimpy/models"

	"github.com/xuri/excelize/v2"
)

// MenuSheetName 导出工作表名
const MenuSheetName = "Menu"

var menuExportHeaders = []string{"ID", "Name", "Category", "Price", "Description", "Image URL", "Created At"}

// BuildMenuWorkbook 生成菜单 Excel，按分类首次出现顺序汇总
func BuildMenuWorkbook(items []models.MenuItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", MenuSheetName); err != nil {
		f.Close()
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"0E7490"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    border,
	})
	priceFmt := "$#,##0.00"
	priceStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: &priceFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right", Vertical: "center"},
		Border:       border,
	})

	// 设置列宽
	f.SetColWidth(MenuSheetName, "A", "A", 38)
	f.SetColWidth(MenuSheetName, "B", "C", 24)
	f.SetColWidth(MenuSheetName, "D", "D", 10)
	f.SetColWidth(MenuSheetName, "E", "F", 40)
	f.SetColWidth(MenuSheetName, "G", "G", 20)

	for i, header := range menuExportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(MenuSheetName, cell, header)
		f.SetCellStyle(MenuSheetName, cell, cell, headerStyle)
	}

	for i, item := range items {
		row := i + 2
		f.SetCellValue(MenuSheetName, fmt.Sprintf("A%d", row), item.ID)
		f.SetCellValue(MenuSheetName, fmt.Sprintf("B%d", row), item.Name)
		f.SetCellValue(MenuSheetName, fmt.Sprintf("C%d", row), item.Category)
		f.SetCellValue(MenuSheetName, fmt.Sprintf("D%d", row), item.Price.InexactFloat64())
		f.SetCellValue(MenuSheetName, fmt.Sprintf("E%d", row), item.Description)
		f.SetCellValue(MenuSheetName, fmt.Sprintf("F%d", row), item.ImageURL)
		f.SetCellValue(MenuSheetName, fmt.Sprintf("G%d", row), item.CreatedAt.Format("2006-01-02 15:04:05"))

		f.SetCellStyle(MenuSheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), dataStyle)
		f.SetCellStyle(MenuSheetName, fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), priceStyle)
	}

	// 分类汇总
	summary := "Categories"
	if _, err := f.NewSheet(summary); err != nil {
		f.Close()
		return nil, err
	}
	f.SetCellValue(summary, "A1", "Category")
	f.SetCellValue(summary, "B1", "Items")
	f.SetCellStyle(summary, "A1", "B1", headerStyle)
	f.SetColWidth(summary, "A", "A", 24)
	for i, category := range menu.DeriveCategories(items) {
		row := i + 2
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), category)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), len(menu.Filter(items, menu.Category(category))))
		f.SetCellStyle(summary, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), dataStyle)
	}

	return f, nil
}

// WriteMenuWorkbook 生成并写出菜单 Excel
func WriteMenuWorkbook(w io.Writer, items []models.MenuItem) error {
	f, err := BuildMenuWorkbook(items)
	if err != nil {
		return fmt.Errorf("生成 Excel 失败: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}
