package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/aladab-school-api/internal/dto"
	"github.com/noah-isme/aladab-school-api/internal/models"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
	"github.com/noah-isme/aladab-school-api/pkg/config"
)

// ColumnGroup selects one of the two column sets of a grid.
type ColumnGroup string

const (
	GroupStandard ColumnGroup = "standard"
	GroupFriday   ColumnGroup = "friday"
)

// GroupFor returns the column group serving the day.
func GroupFor(day models.Weekday) ColumnGroup {
	if day == models.Friday {
		return GroupFriday
	}
	return GroupStandard
}

// GridConfig drives the default and regenerated column sets.
type GridConfig struct {
	Periods         int
	FridayPeriods   int
	PeriodMinutes   int
	Start           models.ClockTime
	FridayStart     models.ClockTime
	AssemblyMinutes int
	BreakMinutes    int
	BreakAfter      int
}

// DefaultGridConfig is eight 40 minute lessons from 08:00 (six on Friday) with a 15 minute assembly first
// and a 30 minute break after the fourth lesson.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Periods:         8,
		FridayPeriods:   6,
		PeriodMinutes:   40,
		Start:           8 * 60,
		FridayStart:     8 * 60,
		AssemblyMinutes: 15,
		BreakMinutes:    30,
		BreakAfter:      4,
	}
}

// GridConfigFrom converts loaded configuration, keeping defaults for unset or invalid values.
func GridConfigFrom(cfg config.TimetableConfig) GridConfig {
	out := DefaultGridConfig()
	if cfg.Periods > 0 {
		out.Periods = cfg.Periods
	}
	if cfg.FridayPeriods > 0 {
		out.FridayPeriods = cfg.FridayPeriods
	}
	if cfg.PeriodMinutes > 0 {
		out.PeriodMinutes = cfg.PeriodMinutes
	}
	if start, err := models.ParseClockTime(cfg.Start); err == nil {
		out.Start = start
		out.FridayStart = start
	}
	if start, err := models.ParseClockTime(cfg.FridayStart); err == nil {
		out.FridayStart = start
	}
	if cfg.AssemblyMinutes >= 0 {
		out.AssemblyMinutes = cfg.AssemblyMinutes
	}
	if cfg.BreakMinutes >= 0 {
		out.BreakMinutes = cfg.BreakMinutes
	}
	if cfg.BreakAfter > 0 {
		out.BreakAfter = cfg.BreakAfter
	}
	return out
}

// Column is one period slot shared by every day of its group.
type Column struct {
	Type     models.PeriodType         `json:"type"`
	Label    string                    `json:"label"`
	Start    models.ClockTime          `json:"start"`
	End      models.ClockTime          `json:"end"`
	Subjects map[models.Weekday]string `json:"subjects"`
}

// ColumnSet is the ordered column structure of a group of days.
type ColumnSet struct {
	Days    []models.Weekday `json:"days"`
	Columns []Column         `json:"columns"`
}

// Grid is the weekly timetable of one class.
type Grid struct {
	Standard ColumnSet `json:"standard"`
	Friday   ColumnSet `json:"friday"`
}

// CellKey addresses the subject slot of a day and column.
type CellKey struct {
	Day    models.Weekday
	Column int
}

// NewDefaultGrid synthesises both column sets from cfg.
func NewDefaultGrid(cfg GridConfig) *Grid {
	return &Grid{
		Standard: defaultColumnSet(models.StandardDays, cfg.Periods, cfg.Start, cfg),
		Friday:   defaultColumnSet([]models.Weekday{models.Friday}, cfg.FridayPeriods, cfg.FridayStart, cfg),
	}
}

func defaultColumnSet(days []models.Weekday, periods int, start models.ClockTime, cfg GridConfig) ColumnSet {
	set := ColumnSet{Days: append([]models.Weekday(nil), days...), Columns: []Column{}}
	cursor := start
	if cfg.AssemblyMinutes > 0 {
		set.Columns = append(set.Columns, newColumn(models.PeriodAssembly, models.PeriodAssembly.DefaultLabel(), cursor, cursor.Add(cfg.AssemblyMinutes)))
		cursor = cursor.Add(cfg.AssemblyMinutes)
	}
	for lesson := 1; lesson <= periods; lesson++ {
		set.Columns = append(set.Columns, newColumn(models.PeriodLesson, fmt.Sprintf("Period %d", lesson), cursor, cursor.Add(cfg.PeriodMinutes)))
		cursor = cursor.Add(cfg.PeriodMinutes)
		if lesson == cfg.BreakAfter && lesson < periods && cfg.BreakMinutes > 0 {
			set.Columns = append(set.Columns, newColumn(models.PeriodBreak, models.PeriodBreak.DefaultLabel(), cursor, cursor.Add(cfg.BreakMinutes)))
			cursor = cursor.Add(cfg.BreakMinutes)
		}
	}
	return set
}

func newColumn(kind models.PeriodType, label string, start, end models.ClockTime) Column {
	return Column{Type: kind, Label: label, Start: start, End: end, Subjects: map[models.Weekday]string{}}
}

// ReconstructGrid rebuilds the grid from stored rows. Monday rows define the standard columns and Friday rows
// the Friday columns; a day without rows gets the default set. Tuesday to Thursday subjects attach to the
// standard column starting at the same time.
func ReconstructGrid(rows []models.TimetablePeriod, cfg GridConfig) (*Grid, error) {
	byDay := make(map[models.Weekday][]models.TimetablePeriod)
	for _, row := range rows {
		byDay[row.Day] = append(byDay[row.Day], row)
	}
	defaults := NewDefaultGrid(cfg)
	grid := &Grid{
		Standard: ColumnSet{Days: append([]models.Weekday(nil), models.StandardDays...)},
		Friday:   ColumnSet{Days: []models.Weekday{models.Friday}},
	}

	standard, err := columnsFromRows(byDay[models.Monday])
	if err != nil {
		return nil, err
	}
	if len(standard) == 0 {
		standard = defaults.Standard.Columns
	}
	grid.Standard.Columns = standard

	for _, day := range models.StandardDays[1:] {
		for _, row := range byDay[day] {
			if row.SubjectID == nil || *row.SubjectID == "" {
				continue
			}
			start, err := models.ParseClockTime(row.StartTime)
			if err != nil {
				return nil, fmt.Errorf("timetable row %s: %w", row.ID, err)
			}
			for i := range grid.Standard.Columns {
				col := &grid.Standard.Columns[i]
				if col.Start == start && col.Type == models.PeriodLesson {
					col.Subjects[day] = *row.SubjectID
					break
				}
			}
		}
	}

	friday, err := columnsFromRows(byDay[models.Friday])
	if err != nil {
		return nil, err
	}
	if len(friday) == 0 {
		friday = defaults.Friday.Columns
	}
	grid.Friday.Columns = friday
	return grid, nil
}

func columnsFromRows(rows []models.TimetablePeriod) ([]Column, error) {
	type parsed struct {
		row   models.TimetablePeriod
		start models.ClockTime
		end   models.ClockTime
	}
	items := make([]parsed, 0, len(rows))
	for _, row := range rows {
		start, err := models.ParseClockTime(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("timetable row %s: %w", row.ID, err)
		}
		end, err := models.ParseClockTime(row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("timetable row %s: %w", row.ID, err)
		}
		items = append(items, parsed{row: row, start: start, end: end})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].start < items[j].start })

	columns := make([]Column, 0, len(items))
	for _, item := range items {
		kind := item.row.PeriodType
		if !kind.Valid() {
			kind = models.PeriodLesson
		}
		col := newColumn(kind, item.row.Label, item.start, item.end)
		if kind == models.PeriodLesson && item.row.SubjectID != nil && *item.row.SubjectID != "" {
			col.Subjects[item.row.Day] = *item.row.SubjectID
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// Flatten expands the grid into one row per applicable day and column. Non-lesson rows and lesson cells
// without a subject carry a nil subject.
func (g *Grid) Flatten(classID string) []models.TimetablePeriod {
	rows := make([]models.TimetablePeriod, 0, len(g.Standard.Columns)*len(g.Standard.Days)+len(g.Friday.Columns))
	for _, set := range []ColumnSet{g.Standard, g.Friday} {
		for _, day := range set.Days {
			for _, col := range set.Columns {
				row := models.TimetablePeriod{
					ClassID:    classID,
					Day:        day,
					StartTime:  col.Start.String(),
					EndTime:    col.End.String(),
					PeriodType: col.Type,
					Label:      col.Label,
				}
				if col.Type == models.PeriodLesson {
					if subjectID, ok := col.Subjects[day]; ok && subjectID != "" {
						id := subjectID
						row.SubjectID = &id
					}
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func (g *Grid) set(group ColumnGroup) (*ColumnSet, error) {
	switch group {
	case GroupStandard, "":
		return &g.Standard, nil
	case GroupFriday:
		return &g.Friday, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown column group %q", group))
}

func (g *Grid) column(group ColumnGroup, index int) (*Column, error) {
	set, err := g.set(group)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(set.Columns) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %d does not exist", index))
	}
	return &set.Columns[index], nil
}

// AddColumn appends a lesson starting where the last column ends. The lesson must finish by 23:59.
func (g *Grid) AddColumn(group ColumnGroup, cfg GridConfig) error {
	set, err := g.set(group)
	if err != nil {
		return err
	}
	start := cfg.Start
	if group == GroupFriday {
		start = cfg.FridayStart
	}
	if n := len(set.Columns); n > 0 {
		start = set.Columns[n-1].End
	}
	lessons := 0
	for _, col := range set.Columns {
		if col.Type == models.PeriodLesson {
			lessons++
		}
	}
	end := start.Add(cfg.PeriodMinutes)
	if end > models.LatestClockTime {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a %d minute lesson from %s would end after %s", cfg.PeriodMinutes, start, models.LatestClockTime))
	}
	set.Columns = append(set.Columns, newColumn(models.PeriodLesson, fmt.Sprintf("Period %d", lessons+1), start, end))
	return nil
}

// RemoveColumn deletes a column and its subject assignments.
func (g *Grid) RemoveColumn(group ColumnGroup, index int, confirm bool) error {
	if !confirm {
		return appErrors.Clone(appErrors.ErrValidation, "removing a column requires confirmation")
	}
	if _, err := g.column(group, index); err != nil {
		return err
	}
	set, _ := g.set(group)
	set.Columns = append(set.Columns[:index], set.Columns[index+1:]...)
	return nil
}

// SetColumnType changes the column type; non-lesson types take their default label and drop subjects.
func (g *Grid) SetColumnType(group ColumnGroup, index int, kind models.PeriodType) error {
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown period type %q", kind))
	}
	col, err := g.column(group, index)
	if err != nil {
		return err
	}
	col.Type = kind
	if kind != models.PeriodLesson {
		col.Label = kind.DefaultLabel()
		col.Subjects = map[models.Weekday]string{}
	}
	return nil
}

// ColumnChange carries the optional fields of an edit.
type ColumnChange struct {
	Start *models.ClockTime
	End   *models.ClockTime
	Label *string
}

// EditColumn updates start, end and label. The resulting start must precede the end.
func (g *Grid) EditColumn(group ColumnGroup, index int, change ColumnChange) error {
	col, err := g.column(group, index)
	if err != nil {
		return err
	}
	start, end := col.Start, col.End
	if change.Start != nil {
		start = *change.Start
	}
	if change.End != nil {
		end = *change.End
	}
	if start >= end {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	col.Start, col.End = start, end
	if change.Label != nil {
		col.Label = strings.TrimSpace(*change.Label)
	}
	return nil
}

// AssignSubject sets the subject of a lesson cell.
func (g *Grid) AssignSubject(cell CellKey, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	col, err := g.cell(cell)
	if err != nil {
		return err
	}
	if col.Type != models.PeriodLesson {
		return appErrors.Clone(appErrors.ErrValidation, "subjects can only be assigned to lesson columns")
	}
	if col.Subjects == nil {
		col.Subjects = map[models.Weekday]string{}
	}
	col.Subjects[cell.Day] = strings.TrimSpace(subjectID)
	return nil
}

// ClearSubject empties a cell.
func (g *Grid) ClearSubject(cell CellKey) error {
	col, err := g.cell(cell)
	if err != nil {
		return err
	}
	delete(col.Subjects, cell.Day)
	return nil
}

func (g *Grid) cell(cell CellKey) (*Column, error) {
	if _, err := models.ParseWeekday(string(cell.Day)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return g.column(GroupFor(cell.Day), cell.Column)
}

// Regenerate replaces every column and assignment with the default sets built from cfg.
func (g *Grid) Regenerate(cfg GridConfig, confirm bool) error {
	if !confirm {
		return appErrors.Clone(appErrors.ErrValidation, "regenerating the timetable requires confirmation")
	}
	*g = *NewDefaultGrid(cfg)
	return nil
}

// Apply runs one edit against the grid.
func (g *Grid) Apply(edit dto.TimetableEdit, cfg GridConfig) error {
	group := ColumnGroup(edit.Group)
	switch edit.Op {
	case dto.EditAddColumn:
		return g.AddColumn(group, cfg)
	case dto.EditRemoveColumn:
		return g.RemoveColumn(group, edit.Column, edit.Confirm)
	case dto.EditSetColumnType:
		return g.SetColumnType(group, edit.Column, edit.Type)
	case dto.EditColumn:
		change := ColumnChange{Label: edit.Label}
		if edit.Start != nil {
			start, err := models.ParseClockTime(*edit.Start)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, err.Error())
			}
			change.Start = &start
		}
		if edit.End != nil {
			end, err := models.ParseClockTime(*edit.End)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, err.Error())
			}
			change.End = &end
		}
		return g.EditColumn(group, edit.Column, change)
	case dto.EditAssignSubject:
		return g.AssignSubject(CellKey{Day: edit.Day, Column: edit.Column}, edit.SubjectID)
	case dto.EditClearSubject:
		return g.ClearSubject(CellKey{Day: edit.Day, Column: edit.Column})
	case dto.EditRegenerate:
		return g.Regenerate(cfg, edit.Confirm)
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown edit %q", edit.Op))
}

// Validate checks a grid received from a client before it is saved. Each column must end by 23:59 and
// no two columns of a set may share a start time, since stored rows are keyed by day and start. The day
// lists are fixed to Monday to Thursday and Friday whatever the client sent.
func (g *Grid) Validate() error {
	for _, group := range []ColumnGroup{GroupStandard, GroupFriday} {
		set, _ := g.set(group)
		starts := make(map[models.ClockTime]int, len(set.Columns))
		for i, col := range set.Columns {
			if !col.Type.Valid() {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s column %d has unknown type %q", group, i, col.Type))
			}
			if col.Start < 0 || col.Start >= col.End {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s column %d starts after it ends", group, i))
			}
			if col.End > models.LatestClockTime {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s column %d ends after %s", group, i, models.LatestClockTime))
			}
			if prev, ok := starts[col.Start]; ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s columns %d and %d both start at %s", group, prev, i, col.Start))
			}
			starts[col.Start] = i
		}
	}
	g.Standard.Days = append([]models.Weekday(nil), models.StandardDays...)
	g.Friday.Days = []models.Weekday{models.Friday}
	return nil
}
