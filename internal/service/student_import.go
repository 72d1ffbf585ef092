package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

var importColumns = []string{
	"first_name", "last_name", "email", "gender", "date_of_birth", "department",
	"guardian_name", "guardian_phone", "guardian_email",
}

// ImportRowStatus reports what happened to one CSV row.
type ImportRowStatus string

const (
	ImportRowCreated ImportRowStatus = "created"
	ImportRowFailed  ImportRowStatus = "failed"
)

// ImportRowResult is the per-row outcome of a bulk import.
type ImportRowResult struct {
	Row             int             `json:"row"`
	Name            string          `json:"name"`
	Status          ImportRowStatus `json:"status"`
	AdmissionNumber string          `json:"admission_number,omitempty"`
	Email           string          `json:"email,omitempty"`
	InitialPassword string          `json:"initial_password,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// ImportResult aggregates a bulk import.
type ImportResult struct {
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
	Rows    []ImportRowResult `json:"rows"`
}

// Import enrolls every CSV row independently. A failed row is compensated on its own and the remaining
// rows still run.
func (s *StudentService) Import(ctx context.Context, r io.Reader, classID string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is empty")
		}
		return nil, appErrors.Invalid(err, "invalid csv header")
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var class *string
	if trimmed := strings.TrimSpace(classID); trimmed != "" {
		class = &trimmed
	}

	result := &ImportResult{Rows: []ImportRowResult{}}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.add(ImportRowResult{Row: line, Status: ImportRowFailed, Reason: err.Error()})
			continue
		}
		if blankRecord(record) {
			continue
		}
		result.add(s.importRow(ctx, line, record, index, class))
	}

	s.logger.Info("student import finished",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *StudentService) importRow(ctx context.Context, line int, record []string, index map[string]int, classID *string) ImportRowResult {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	optional := func(name string) *string {
		value := field(name)
		if value == "" {
			return nil
		}
		return &value
	}

	req := CreateStudentRequest{
		FirstName:     field("first_name"),
		LastName:      field("last_name"),
		Email:         field("email"),
		ClassID:       classID,
		Department:    models.Department(field("department")),
		Gender:        optional("gender"),
		GuardianName:  optional("guardian_name"),
		GuardianPhone: optional("guardian_phone"),
		GuardianEmail: optional("guardian_email"),
	}
	row := ImportRowResult{Row: line, Name: strings.TrimSpace(req.FirstName + " " + req.LastName), Status: ImportRowFailed}

	if raw := field("date_of_birth"); raw != "" {
		dob, err := time.Parse("2006-01-02", raw)
		if err != nil {
			row.Reason = fmt.Sprintf("invalid date_of_birth %q", raw)
			return row
		}
		req.DateOfBirth = &dob
	}

	enrollment, err := s.Create(ctx, req)
	if err != nil {
		row.Reason = appErrors.FromError(err).Message
		return row
	}
	row.Status = ImportRowCreated
	row.AdmissionNumber = enrollment.AdmissionNumber
	row.Email = enrollment.Email
	row.InitialPassword = enrollment.InitialPassword
	return row
}

func (r *ImportResult) add(row ImportRowResult) {
	if row.Status == ImportRowCreated {
		r.Created++
	} else {
		r.Failed++
	}
	r.Rows = append(r.Rows, row)
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[key] = i
	}
	for _, required := range importColumns[:2] {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv header is missing %s", required))
		}
	}
	return index, nil
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
