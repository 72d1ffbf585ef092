package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type attendanceRepository interface {
	UpsertMany(ctx context.Context, records []models.Attendance) error
	Register(ctx context.Context, classID string, date time.Time) ([]models.RegisterEntry, error)
	CountByStatus(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceStatusCount, error)
}

// AttendanceMark is one line of a register submission.
type AttendanceMark struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=present absent late excused"`
	Note      *string                 `json:"note" validate:"omitempty,max=255"`
}

// MarkAttendanceRequest records a class register for one day.
type MarkAttendanceRequest struct {
	Date    string           `json:"date" validate:"required"`
	Entries []AttendanceMark `json:"entries" validate:"required,min=1,dive"`
}

// ClassRegister is the roster of a class with the marks of one day.
type ClassRegister struct {
	ClassID  string                 `json:"class_id"`
	Date     string                 `json:"date"`
	Entries  []models.RegisterEntry `json:"entries"`
	Marked   int                    `json:"marked"`
	Unmarked int                    `json:"unmarked"`
}

// AttendanceService records and summarises daily registers.
type AttendanceService struct {
	repo      attendanceRepository
	classes   classFinder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, classes classFinder, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, classes: classes, validator: validate, logger: logger, now: time.Now}
}

// Mark upserts the register of a class for a date in one statement. Future dates and students outside the
// class are rejected before anything is written.
func (s *AttendanceService) Mark(ctx context.Context, classID string, req MarkAttendanceRequest, recorderID string) (*ClassRegister, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid attendance payload")
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := ensureClassExists(ctx, s.classes, classID); err != nil {
		return nil, err
	}

	roster, err := s.repo.Register(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class register")
	}
	members := make(map[string]struct{}, len(roster))
	for _, entry := range roster {
		members[entry.StudentID] = struct{}{}
	}

	var recordedBy *string
	if recorderID != "" {
		recordedBy = &recorderID
	}
	records := make([]models.Attendance, 0, len(req.Entries))
	seen := make(map[string]struct{}, len(req.Entries))
	for _, entry := range req.Entries {
		if _, ok := members[entry.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in this class", entry.StudentID))
		}
		if _, dup := seen[entry.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is listed twice", entry.StudentID))
		}
		seen[entry.StudentID] = struct{}{}
		class := classID
		records = append(records, models.Attendance{
			StudentID:  entry.StudentID,
			ClassID:    &class,
			Date:       date,
			Status:     entry.Status,
			Note:       trimmedOrNil(entry.Note),
			RecordedBy: recordedBy,
		})
	}
	if err := s.repo.UpsertMany(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.logger.Info("attendance recorded", zap.String("class_id", classID), zap.String("date", req.Date), zap.Int("entries", len(records)))
	return s.ClassRegister(ctx, classID, req.Date)
}

// ClassRegister lists every student of the class with the mark for the date; unmarked students have no status.
func (s *AttendanceService) ClassRegister(ctx context.Context, classID, rawDate string) (*ClassRegister, error) {
	date, err := s.parseDate(rawDate)
	if err != nil {
		return nil, err
	}
	if err := ensureClassExists(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	entries, err := s.repo.Register(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class register")
	}
	register := &ClassRegister{ClassID: classID, Date: date.Format(dateLayout), Entries: entries}
	for _, entry := range entries {
		if entry.Status != nil {
			register.Marked++
		} else {
			register.Unmarked++
		}
	}
	if register.Entries == nil {
		register.Entries = []models.RegisterEntry{}
	}
	return register, nil
}

// StudentSummary counts a student's marks between from and to inclusive. Late marks count as present.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID, rawFrom, rawTo string) (*models.AttendanceSummary, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	from, err := time.Parse(dateLayout, rawFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be a YYYY-MM-DD date")
	}
	to, err := time.Parse(dateLayout, rawTo)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be a YYYY-MM-DD date")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	counts, err := s.repo.CountByStatus(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return summarizeAttendance(studentID, from, to, counts), nil
}

func summarizeAttendance(studentID string, from, to time.Time, counts []models.AttendanceStatusCount) *models.AttendanceSummary {
	summary := &models.AttendanceSummary{StudentID: studentID, From: from.Format(dateLayout), To: to.Format(dateLayout)}
	for _, c := range counts {
		switch c.Status {
		case models.AttendancePresent:
			summary.Present += c.Count
		case models.AttendanceAbsent:
			summary.Absent += c.Count
		case models.AttendanceLate:
			summary.Late += c.Count
		case models.AttendanceExcused:
			summary.Excused += c.Count
		default:
			continue
		}
		summary.Total += c.Count
	}
	if summary.Total > 0 {
		attended := float64(summary.Present + summary.Late)
		summary.PresencePercent = math.Round(attended/float64(summary.Total)*10000) / 100
	}
	return summary
}

func (s *AttendanceService) parseDate(raw string) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be a YYYY-MM-DD date")
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.After(today) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "attendance cannot be recorded for a future date")
	}
	return date, nil
}

func ensureClassExists(ctx context.Context, classes classFinder, classID string) error {
	if strings.TrimSpace(classID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if _, err := classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}
