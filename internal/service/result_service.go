package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

type resultRepository interface {
	ListForClassSubject(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) ([]models.Result, error)
	ListForStudent(ctx context.Context, studentID string, period models.AcademicPeriod) ([]models.SubjectResult, error)
	UpsertMany(ctx context.Context, results []models.Result) error
}

type rosterLister interface {
	Roster(ctx context.Context, classID string, department models.Department) ([]models.RosterEntry, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// Broadsheet is the score sheet of one class and subject for a period.
type Broadsheet struct {
	Class   models.Class          `json:"class"`
	Subject models.Subject        `json:"subject"`
	Period  models.AcademicPeriod `json:"period"`
	Rows    []BroadsheetRow       `json:"rows"`
	Stats   BroadsheetStats       `json:"stats"`
}

// SaveBroadsheetResult reports how many submitted rows were stored.
type SaveBroadsheetResult struct {
	Saved      int         `json:"saved"`
	Skipped    int         `json:"skipped"`
	Broadsheet *Broadsheet `json:"broadsheet"`
}

// ReportCardLine is one subject on a report card.
type ReportCardLine struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	SubjectCode string   `json:"subject_code"`
	CA          *float64 `json:"ca"`
	Exam        *float64 `json:"exam"`
	Total       *float64 `json:"total"`
	Grade       string   `json:"grade"`
	Remark      string   `json:"remark"`
}

// ReportCard lists a student's results for a period.
type ReportCard struct {
	Student      models.StudentDetail  `json:"student"`
	Period       models.AcademicPeriod `json:"period"`
	Lines        []ReportCardLine      `json:"lines"`
	TotalScore   float64               `json:"total_score"`
	Average      float64               `json:"average"`
	SubjectsSat  int                   `json:"subjects_sat"`
	SubjectsFail int                   `json:"subjects_failed"`
}

// ResultService loads and stores broadsheets.
type ResultService struct {
	results  resultRepository
	roster   rosterLister
	classes  classFinder
	subjects subjectFinder
	students studentFinder
	audit    auditLogger
	logger   *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(results resultRepository, roster rosterLister, classes classFinder, subjects subjectFinder, students studentFinder, audit auditLogger, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:  results,
		roster:   roster,
		classes:  classes,
		subjects: subjects,
		students: students,
		audit:    audit,
		logger:   logger,
	}
}

// Broadsheet loads the roster, stored scores and subject concurrently. Senior subjects aimed at one
// department only list students of that department.
func (s *ResultService) Broadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) (*Broadsheet, error) {
	sheet, _, err := s.load(ctx, classID, subjectID, period)
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

// Preview overlays submitted scores on the stored sheet and recomputes the stats without saving.
func (s *ResultService) Preview(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values) (*Broadsheet, error) {
	sheet, roster, err := s.load(ctx, classID, subjectID, period)
	if err != nil {
		return nil, err
	}
	submitted := make(map[string]BroadsheetEntry)
	for _, entry := range ParseBroadsheetForm(form) {
		submitted[entry.StudentID] = entry
	}
	for i, student := range roster {
		if entry, ok := submitted[student.StudentID]; ok {
			sheet.Rows[i] = NewBroadsheetRow(student, entry.CA, entry.Exam)
		}
	}
	sheet.Stats = ComputeStats(sheet.Rows)
	return sheet, nil
}

// SaveBroadsheet stores the valid submitted rows in one upsert. Rows for students outside the sheet's
// roster are skipped along with rows the form parser drops.
func (s *ResultService) SaveBroadsheet(ctx context.Context, classID, subjectID string, period models.AcademicPeriod, form url.Values, actorID string) (*SaveBroadsheetResult, error) {
	_, roster, err := s.load(ctx, classID, subjectID, period)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		allowed[student.StudentID] = struct{}{}
	}

	entries := ParseBroadsheetForm(form)
	results := make([]models.Result, 0, len(entries))
	for _, entry := range entries {
		if _, ok := allowed[entry.StudentID]; !ok {
			continue
		}
		results = append(results, models.Result{
			StudentID: entry.StudentID,
			SubjectID: subjectID,
			ClassID:   classID,
			Session:   period.Session,
			Term:      period.Term,
			CAScore:   entry.CA,
			ExamScore: entry.Exam,
		})
	}
	if err := s.results.UpsertMany(ctx, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save results")
	}

	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionBroadsheetSave, "results", classID, map[string]interface{}{
		"subjectId": subjectID,
		"session":   period.Session,
		"term":      period.Term,
		"rows":      len(results),
	})
	s.logger.Info("broadsheet saved",
		zap.String("class_id", classID),
		zap.String("subject_id", subjectID),
		zap.String("period", period.String()),
		zap.Int("rows", len(results)),
	)

	sheet, err := s.Broadsheet(ctx, classID, subjectID, period)
	if err != nil {
		return nil, err
	}
	skipped := countFormRows(form) - len(results)
	if skipped < 0 {
		skipped = 0
	}
	return &SaveBroadsheetResult{Saved: len(results), Skipped: skipped, Broadsheet: sheet}, nil
}

// ReportCard lists every stored result of the student for the period with derived grades.
func (s *ResultService) ReportCard(ctx context.Context, studentID string, period models.AcademicPeriod) (*ReportCard, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	results, err := s.results.ListForStudent(ctx, studentID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	card := &ReportCard{Student: *student, Period: period, Lines: make([]ReportCardLine, 0, len(results))}
	for _, result := range results {
		row := NewBroadsheetRow(models.RosterEntry{StudentID: studentID}, result.CAScore, result.ExamScore)
		card.Lines = append(card.Lines, ReportCardLine{
			SubjectID:   result.SubjectID,
			SubjectName: result.SubjectName,
			SubjectCode: result.SubjectCode,
			CA:          row.CA,
			Exam:        row.Exam,
			Total:       row.Total,
			Grade:       row.Grade,
			Remark:      row.Remark,
		})
		if row.Total == nil {
			continue
		}
		card.SubjectsSat++
		card.TotalScore += *row.Total
		if *row.Total < models.PassMark {
			card.SubjectsFail++
		}
	}
	if card.SubjectsSat > 0 {
		card.Average = math.Round(card.TotalScore/float64(card.SubjectsSat)*100) / 100
	}
	return card, nil
}

func (s *ResultService) load(ctx context.Context, classID, subjectID string, period models.AcademicPeriod) (*Broadsheet, []models.RosterEntry, error) {
	if classID == "" || subjectID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "class and subject are required")
	}
	if err := validatePeriod(period); err != nil {
		return nil, nil, err
	}

	var (
		class   *models.Class
		subject *models.Subject
		roster  []models.RosterEntry
		stored  []models.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		class, err = s.classes.FindByID(gctx, classID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return err
	})
	g.Go(func() error {
		var err error
		subject, err = s.subjects.FindByID(gctx, subjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.roster.Roster(gctx, classID, "")
		return err
	})
	g.Go(func() error {
		var err error
		stored, err = s.results.ListForClassSubject(gctx, classID, subjectID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, nil, appErr
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadsheet")
	}

	roster = filterRoster(roster, *subject)
	byStudent := make(map[string]models.Result, len(stored))
	for _, result := range stored {
		byStudent[result.StudentID] = result
	}
	rows := make([]BroadsheetRow, 0, len(roster))
	for _, student := range roster {
		result := byStudent[student.StudentID]
		rows = append(rows, NewBroadsheetRow(student, result.CAScore, result.ExamScore))
	}
	return &Broadsheet{
		Class:   *class,
		Subject: *subject,
		Period:  period,
		Rows:    rows,
		Stats:   ComputeStats(rows),
	}, roster, nil
}

// filterRoster keeps only students of the subject's department when the subject is department specific.
func filterRoster(roster []models.RosterEntry, subject models.Subject) []models.RosterEntry {
	if !subject.RestrictsByDepartment() {
		return roster
	}
	filtered := make([]models.RosterEntry, 0, len(roster))
	for _, student := range roster {
		if student.Department == subject.DepartmentTarget {
			filtered = append(filtered, student)
		}
	}
	return filtered
}

func countFormRows(form url.Values) int {
	seen := make(map[string]struct{})
	for field := range form {
		if !strings.HasPrefix(field, scoreFieldPrefix) {
			continue
		}
		id := strings.TrimPrefix(field, scoreFieldPrefix)
		switch {
		case strings.HasSuffix(id, examFieldSuffix):
			id = strings.TrimSuffix(id, examFieldSuffix)
		case strings.HasSuffix(id, caFieldSuffix):
			id = strings.TrimSuffix(id, caFieldSuffix)
		default:
			continue
		}
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func validatePeriod(period models.AcademicPeriod) error {
	if err := period.Validate(); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return nil
}
