package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
)

// ExportService renders a report as a spreadsheet for the finance team.
type ExportService interface {
	ExportReport(ctx context.Context, reportID int64, caller *entity.Employee) (filename string, content []byte, err error)
}

type exportServiceImpl struct {
	reportService ReportService
	logger        Logger
}

// NewExportService creates a new ExportService. Access control is delegated
// to the report service's read rules.
func NewExportService(reportService ReportService, logger Logger) ExportService {
	return &exportServiceImpl{
		reportService: reportService,
		logger:        logger,
	}
}

const exportSheet = "Report"

// ExportReport builds an xlsx workbook with a header block, one row per line
// item, and the report total.
func (s *exportServiceImpl) ExportReport(ctx context.Context, reportID int64, caller *entity.Employee) (string, []byte, error) {
	report, lines, err := s.reportService.GetReport(ctx, reportID, caller)
	if err != nil {
		return "", nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindStore, err, "create export sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.logger.Error("Failed to drop default sheet", "error", err)
	}

	setCell := func(cell string, value interface{}) {
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			s.logger.Error("Failed to set export cell", "cell", cell, "error", err)
		}
	}

	setCell("A1", "Report")
	setCell("B1", report.Title)
	setCell("A2", "Reference")
	setCell("B2", report.Reference)
	setCell("A3", "Period")
	setCell("B3", report.PeriodLabel)
	setCell("A4", "Status")
	setCell("B4", report.Status.String())
	if report.SubmittedAt != nil {
		setCell("A5", "Submitted")
		setCell("B5", report.SubmittedAt.Format("2006-01-02"))
	}

	header := 7
	setCell(fmt.Sprintf("A%d", header), "Date")
	setCell(fmt.Sprintf("B%d", header), "Category")
	setCell(fmt.Sprintf("C%d", header), "Project")
	setCell(fmt.Sprintf("D%d", header), "Amount")
	setCell(fmt.Sprintf("E%d", header), "Status")

	row := header + 1
	for _, line := range lines {
		setCell(fmt.Sprintf("A%d", row), line.EntryDate.Format("2006-01-02"))
		setCell(fmt.Sprintf("B%d", row), line.Category)
		setCell(fmt.Sprintf("C%d", row), line.ProjectCode)
		setCell(fmt.Sprintf("D%d", row), line.Amount.StringFixed(2))
		setCell(fmt.Sprintf("E%d", row), line.Status.String())
		row++
	}

	setCell(fmt.Sprintf("C%d", row+1), "Total")
	setCell(fmt.Sprintf("D%d", row+1), report.TotalAmount.StringFixed(2))

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", nil, apperr.Wrap(apperr.KindStore, err, "write export workbook")
	}

	filename := fmt.Sprintf("report-%s-%s.xlsx", report.Reference, time.Now().Format("20060102"))
	s.logger.Info("Report exported", "report_id", report.ID, "lines", len(lines))
	return filename, buf.Bytes(), nil
}
