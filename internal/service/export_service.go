package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/pkg/export"
)

type broadsheetSource interface {
	Broadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) (*Broadsheet, error)
}

type statementSource interface {
	ClassStatement(ctx context.Context, classID string, period models.AcademicPeriod) (*ClassStatement, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportService builds document datasets and persists rendered files.
type ExportService struct {
	results    broadsheetSource
	finance    statementSource
	storage    fileStorage
	renderers  map[models.ExportFormat]export.Renderer
	schoolName string
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to CSV and landscape PDF.
func NewExportService(results broadsheetSource, finance statementSource, storage fileStorage, schoolName string, logger *zap.Logger, renderers map[models.ExportFormat]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderers == nil {
		renderers = map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(true),
		}
	}
	return &ExportService{
		results:    results,
		finance:    finance,
		storage:    storage,
		renderers:  renderers,
		schoolName: schoolName,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate builds the dataset described by the job, renders it and stores the file.
// It returns the storage-relative path of the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return "", fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return "", err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return "", err
	}
	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return "", err
	}
	s.logger.Info("export rendered",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("rows", len(dataset.Rows)),
		zap.String("path", relPath),
	)
	return relPath, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

// ContentType reports the MIME type served for a format.
func (s *ExportService) ContentType(format models.ExportFormat) string {
	if renderer, ok := s.renderers[format]; ok {
		return renderer.ContentType()
	}
	return "application/octet-stream"
}

func (s *ExportService) buildFilename(job *models.ExportJob, extension string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	parts := []string{string(job.Type), sanitizeFilename(job.Params.ClassID)}
	if job.Params.SubjectID != "" {
		parts = append(parts, sanitizeFilename(job.Params.SubjectID))
	}
	parts = append(parts, sanitizeFilename(job.Params.Session), timestamp)
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), extension)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, error) {
	period := job.Params.Period()
	switch job.Type {
	case models.ExportTypeBroadsheet:
		sheet, err := s.results.Broadsheet(ctx, job.Params.ClassID, job.Params.SubjectID, period)
		if err != nil {
			return export.Dataset{}, err
		}
		return s.broadsheetDataset(sheet), nil
	case models.ExportTypeClassStatement:
		statement, err := s.finance.ClassStatement(ctx, job.Params.ClassID, period)
		if err != nil {
			return export.Dataset{}, err
		}
		return s.statementDataset(statement), nil
	default:
		return export.Dataset{}, fmt.Errorf("unsupported export type %s", job.Type)
	}
}

var broadsheetHeaders = []string{"S/N", "Admission No", "Student", "CA (40)", "Exam (60)", "Total", "Grade", "Remark"}

func (s *ExportService) broadsheetDataset(sheet *Broadsheet) export.Dataset {
	rows := make([]map[string]string, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		rows = append(rows, map[string]string{
			"S/N":          fmt.Sprintf("%d", i+1),
			"Admission No": row.AdmissionNumber,
			"Student":      row.FullName,
			"CA (40)":      formatScore(row.CA),
			"Exam (60)":    formatScore(row.Exam),
			"Total":        formatScore(row.Total),
			"Grade":        row.Grade,
			"Remark":       row.Remark,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("%s %s Broadsheet %s", s.schoolName, sheet.Class.DisplayName(), sheet.Subject.Name),
		Headers: broadsheetHeaders,
		Rows:    rows,
		Footer: []string{
			sheet.Period.String(),
			fmt.Sprintf("Students scored: %d of %d", sheet.Stats.Scored, len(sheet.Rows)),
			fmt.Sprintf("Class average: %.2f", sheet.Stats.Average),
			fmt.Sprintf("Highest score: %.2f", sheet.Stats.Highest),
			fmt.Sprintf("Failures: %d", sheet.Stats.Failures),
		},
	}
}

var statementHeaders = []string{"S/N", "Admission No", "Student", "Expected", "Paid", "Balance", "Status"}

func (s *ExportService) statementDataset(statement *ClassStatement) export.Dataset {
	rows := make([]map[string]string, 0, len(statement.Lines))
	for i, line := range statement.Lines {
		status := "Owing"
		if line.Cleared {
			status = "Cleared"
		}
		rows = append(rows, map[string]string{
			"S/N":          fmt.Sprintf("%d", i+1),
			"Admission No": line.AdmissionNumber,
			"Student":      line.FullName,
			"Expected":     fmt.Sprintf("%.2f", line.Expected),
			"Paid":         fmt.Sprintf("%.2f", line.Paid),
			"Balance":      fmt.Sprintf("%.2f", line.Balance),
			"Status":       status,
		})
	}
	footer := []string{
		statement.Period.String(),
		fmt.Sprintf("Total paid: %.2f", statement.TotalPaid),
		fmt.Sprintf("Total outstanding: %.2f", statement.TotalBalance),
		fmt.Sprintf("Cleared: %d of %d", statement.ClearedCount, len(statement.Lines)),
	}
	if !statement.FeeConfigured {
		footer = append(footer, "No fee structure configured for this period")
	}
	return export.Dataset{
		Title:   fmt.Sprintf("%s Fee Statement %s", s.schoolName, statement.ClassID),
		Headers: statementHeaders,
		Rows:    rows,
		Footer:  footer,
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return UnscoredMark
	}
	return fmt.Sprintf("%.1f", *score)
}
