package consultation

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

const (
	sheetName = "Consultations"
	// exportPageSize is the page size used while walking all rows for export.
	exportPageSize = 100
	// maxExportRows caps a single export.
	maxExportRows = 10000
)

var exportHeader = []string{"Received", "Patient", "Contact", "Treatment", "Message", "Status"}

var columnWidths = []float64{20, 20, 22, 30, 60, 12}

type Service struct {
	repo     repository.ConsultationRepository
	location *time.Location
}

func NewService(repo repository.ConsultationRepository, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{repo: repo, location: location}
}

// Page is one page of consultations.
type Page struct {
	Items    []*model.Consultation `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, status string, page model.Pagination) (*Page, error) {
	filters := &model.ConsultationFilters{Pagination: page, HospitalID: clinicID, Status: status}
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("list consultations: %w", err))
	}
	if items == nil {
		items = []*model.Consultation{}
	}
	p := page.Page
	if p < 1 {
		p = 1
	}
	return &Page{Items: items, Total: total, Page: p, PageSize: page.Limit()}, nil
}

// ExportXLSX renders every consultation of the clinic, newest first, as a
// spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, clinicID uuid.UUID, status string) ([]byte, error) {
	var rows []*model.Consultation
	for page := 1; len(rows) < maxExportRows; page++ {
		res, err := s.List(ctx, clinicID, status, model.Pagination{Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, err
		}
		rows = append(rows, res.Items...)
		if len(res.Items) < exportPageSize || len(rows) >= res.Total {
			break
		}
	}

	data, err := s.render(rows)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return data, nil
}

func (s *Service) render(rows []*model.Consultation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create body style: %w", err)
	}

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, name, name, columnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, c := range rows {
		values := []interface{}{
			c.CreatedAt.In(s.location).Format("2006-01-02 15:04"),
			c.PatientName,
			c.Contact,
			c.TreatmentSummary,
			c.Message,
			c.Status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last := fmt.Sprintf("E%d", len(rows)+1)
		if err := f.SetCellStyle(sheetName, "E2", last, wrapStyle); err != nil {
			return nil, fmt.Errorf("failed to set body style: %w", err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
