package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"meal-planner/internal/models"
	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出某周购物清单为 CSV / XLSX
type ExportHandler struct {
	Shopping *service.ShoppingService
}

func NewExportHandler(shopping *service.ShoppingService) *ExportHandler {
	return &ExportHandler{Shopping: shopping}
}

var exportHeaders = []string{"Ingrédient", "Quantité", "Unité", "Disponible", "Notes"}

func exportRow(it *models.ShoppingItem) []string {
	available := "non"
	if it.IsAvailable {
		available = "oui"
	}
	return []string{it.Ingredient.Name, it.Quantity.String(), it.Unit, available, it.Notes}
}

// csvCell 以 = + - @ 等开头的文本加 ' 前缀，避免表格软件当作公式执行
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// buildCSV 先写入内存，出错时还能返回正常的错误响应
func buildCSV(list *models.ShoppingList) ([]byte, error) {
	var buf bytes.Buffer
	// UTF-8 BOM（让 Excel 正确识别重音字符）
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	records := make([][]string, 0, len(list.Items)+1)
	records = append(records, exportHeaders)
	for i := range list.Items {
		row := exportRow(&list.Items[i])
		for j := range row {
			row[j] = csvCell(row[j])
		}
		records = append(records, row)
	}
	// WriteAll 会 Flush 并返回 writer.Error()
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *ExportHandler) load(c *gin.Context) (*models.ShoppingList, bool) {
	user, ok := mustUser(c)
	if !ok {
		return nil, false
	}
	list, err := h.Shopping.Get(c.Request.Context(), user.ID, c.Param("key"))
	if err != nil {
		util.Fail(c, err)
		return nil, false
	}
	return list, true
}

// ExportCSV GET /api/shopping-list/:key/export.csv
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	list, ok := h.load(c)
	if !ok {
		return
	}

	data, err := buildCSV(list)
	if err != nil {
		util.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"courses_%s.csv\"", list.WeekStart))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportXLSX GET /api/shopping-list/:key/export.xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	list, ok := h.load(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Courses"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Fail(c, err)
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// 设置表头
	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, title)
	}

	// 写入数据，数量按数字写入
	for idx := range list.Items {
		it := &list.Items[idx]
		row := idx + 2
		qty, _ := it.Quantity.Float64()
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), it.Ingredient.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), qty)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), it.Unit)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), exportRow(it)[3])
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), it.Notes)
	}

	// 设置列宽
	_ = f.SetColWidth(sheetName, "A", "A", 30)
	_ = f.SetColWidth(sheetName, "B", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "E", 30)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"courses_%s.xlsx\"", list.WeekStart))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Échec de l'export")
	}
}
