package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Inthesearch/budgetTracker/internal/ledger"
	"github.com/Inthesearch/budgetTracker/internal/models"
	"github.com/Inthesearch/budgetTracker/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// 导入/导出共用的列顺序
var importExportHeader = []string{
	"date", "account", "type", "category", "sub-category", "amount", "to-account", "notes",
}

type ImportExportHandler struct {
	Ledger *ledger.Service
}

func NewImportExportHandler(svc *ledger.Service) *ImportExportHandler {
	return &ImportExportHandler{Ledger: svc}
}

// ImportTransactions ingests a CSV or XLSX file of transactions. The import
// is all-or-nothing: one bad row rejects the whole file.
func (h *ImportExportHandler) ImportTransactions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "file is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "failed to open file")
		return
	}
	defer f.Close()

	var rows []ledger.ImportRow
	name := strings.ToLower(fileHeader.Filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		rows, err = readCSVRows(f)
	case strings.HasSuffix(name, ".xlsx"):
		rows, err = readXLSXRows(f)
	default:
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "file must be .csv or .xlsx")
		return
	}
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "failed to parse file")
		return
	}

	summary, err := h.Ledger.ImportRows(c.Request.Context(), user.ID, rows)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	util.Success(c, util.Response{
		"message": "import completed",
		"summary": summary,
	})
}

func rowFromCells(line int, cells []string) ledger.ImportRow {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return ledger.ImportRow{
		Line:        line,
		Date:        get(0),
		Account:     get(1),
		Type:        get(2),
		Category:    get(3),
		SubCategory: get(4),
		Amount:      get(5),
		ToAccount:   get(6),
		Notes:       get(7),
	}
}

func isHeaderRow(cells []string) bool {
	return len(cells) > 0 && strings.EqualFold(strings.TrimSpace(cells[0]), "date")
}

func readCSVRows(r io.Reader) ([]ledger.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []ledger.ImportRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && isHeaderRow(record) {
			continue
		}
		rows = append(rows, rowFromCells(line, record))
	}
	return rows, nil
}

func readXLSXRows(r io.Reader) ([]ledger.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}

	var rows []ledger.ImportRow
	for i, record := range records {
		line := i + 1
		if line == 1 && isHeaderRow(record) {
			continue
		}
		rows = append(rows, rowFromCells(line, record))
	}
	return rows, nil
}

// exportCells renders one transaction in the import column order, so an
// export can be re-imported as-is.
func exportCells(t *models.Transaction) []string {
	category, subCategory, toAccount := "", "", ""
	if t.Category != nil {
		category = t.Category.Name
	}
	if t.SubCategory != nil {
		subCategory = t.SubCategory.Name
	}
	if t.ToAccount != nil {
		toAccount = t.ToAccount.Name
	}
	return []string{
		t.Date.Format("2006-01-02"),
		t.FromAccount.Name,
		t.Type,
		category,
		subCategory,
		util.FormatCent(t.AmountCent),
		toAccount,
		t.Notes,
	}
}

// ExportCSV 导出账目为 CSV
func (h *ImportExportHandler) ExportCSV(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	txs, _, err := h.Ledger.List(c.Request.Context(), user.ID, ledger.ListFilter{})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(importExportHeader)
	for i := range txs {
		writer.Write(exportCells(&txs[i]))
	}
}

// ExportXLSX 导出账目为 XLSX
func (h *ImportExportHandler) ExportXLSX(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	txs, _, err := h.Ledger.List(c.Request.Context(), user.ID, ledger.ListFilter{})
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	f := excelize.NewFile()
	sheetName := "Transactions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sheet")
		return
	}
	f.SetActiveSheet(index)

	for i, head := range importExportHeader {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, head)
	}

	for idx := range txs {
		row := idx + 2
		for i, value := range exportCells(&txs[idx]) {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "E", 15)
	f.SetColWidth(sheetName, "F", "G", 12)
	f.SetColWidth(sheetName, "H", "H", 30)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to export")
	}
}
