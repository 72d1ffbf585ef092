package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aladab-school-api/internal/dto"
	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/pkg/config"
	appErrors "github.com/noah-isme/aladab-school-api/pkg/errors"
)

func TestNewDefaultGridLayout(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())

	cols := grid.Standard.Columns
	require.Len(t, cols, 10)
	assert.Equal(t, models.PeriodAssembly, cols[0].Type)
	assert.Equal(t, "Assembly", cols[0].Label)
	assert.Equal(t, "08:00", cols[0].Start.String())
	assert.Equal(t, "08:15", cols[0].End.String())

	lessons := 0
	for i, col := range cols {
		if col.Type == models.PeriodLesson {
			lessons++
			continue
		}
		if col.Type == models.PeriodBreak {
			assert.Equal(t, 4, lessons, "break must follow the fourth lesson")
			assert.Equal(t, "Break", col.Label)
			assert.Equal(t, cols[i-1].End, col.Start)
		}
	}
	assert.Equal(t, 8, lessons)
	assert.Equal(t, []models.Weekday{models.Friday}, grid.Friday.Days)
	assert.Len(t, grid.Friday.Columns, 8)
}

func TestGridConfigFromKeepsDefaultsForInvalidValues(t *testing.T) {
	cfg := GridConfigFrom(config.TimetableConfig{Periods: 5, Start: "bad", FridayStart: "07:30", AssemblyMinutes: 0, BreakMinutes: 20, BreakAfter: 2})

	assert.Equal(t, 5, cfg.Periods)
	assert.Equal(t, "08:00", cfg.Start.String())
	assert.Equal(t, "07:30", cfg.FridayStart.String())
	assert.Equal(t, 0, cfg.AssemblyMinutes)
	assert.Equal(t, 40, cfg.PeriodMinutes)

	grid := NewDefaultGrid(cfg)
	assert.Equal(t, models.PeriodLesson, grid.Standard.Columns[0].Type)
	assert.Equal(t, models.PeriodBreak, grid.Standard.Columns[2].Type)
}

func TestReconstructGridSynthesisesEmptyDays(t *testing.T) {
	grid, err := ReconstructGrid(nil, DefaultGridConfig())
	require.NoError(t, err)

	assert.Equal(t, NewDefaultGrid(DefaultGridConfig()), grid)
}

func TestReconstructGridAttachesMidweekSubjectsByStart(t *testing.T) {
	math, english := "subject-math", "subject-english"
	rows := []models.TimetablePeriod{
		{ID: "2", ClassID: "class-1", Day: models.Monday, StartTime: "08:40:00", EndTime: "09:20:00", PeriodType: models.PeriodLesson, Label: "Period 2"},
		{ID: "1", ClassID: "class-1", Day: models.Monday, StartTime: "08:00:00", EndTime: "08:40:00", PeriodType: models.PeriodLesson, Label: "Period 1", SubjectID: &math},
		{ID: "3", ClassID: "class-1", Day: models.Wednesday, StartTime: "08:40:00", EndTime: "09:20:00", PeriodType: models.PeriodLesson, SubjectID: &english},
		{ID: "4", ClassID: "class-1", Day: models.Thursday, StartTime: "10:00:00", EndTime: "10:40:00", PeriodType: models.PeriodLesson, SubjectID: &english},
	}

	grid, err := ReconstructGrid(rows, DefaultGridConfig())
	require.NoError(t, err)

	require.Len(t, grid.Standard.Columns, 2)
	assert.Equal(t, "Period 1", grid.Standard.Columns[0].Label)
	assert.Equal(t, math, grid.Standard.Columns[0].Subjects[models.Monday])
	assert.Equal(t, english, grid.Standard.Columns[1].Subjects[models.Wednesday])
	assert.NotContains(t, grid.Standard.Columns[1].Subjects, models.Thursday)
	assert.Len(t, grid.Friday.Columns, 8)
}

func TestGridFlattenRoundTrip(t *testing.T) {
	cfg := DefaultGridConfig()
	grid := NewDefaultGrid(cfg)
	require.NoError(t, grid.AssignSubject(CellKey{Day: models.Monday, Column: 1}, "math"))
	require.NoError(t, grid.AssignSubject(CellKey{Day: models.Tuesday, Column: 2}, "english"))
	require.NoError(t, grid.AssignSubject(CellKey{Day: models.Friday, Column: 1}, "arabic"))
	require.NoError(t, grid.EditColumn(GroupStandard, 3, ColumnChange{Label: strPtr("Double")}))

	rows := grid.Flatten("class-1")
	assert.Len(t, rows, len(grid.Standard.Columns)*4+len(grid.Friday.Columns))
	for _, row := range rows {
		assert.Equal(t, "class-1", row.ClassID)
		if row.PeriodType != models.PeriodLesson {
			assert.Nil(t, row.SubjectID)
		}
	}

	rebuilt, err := ReconstructGrid(rows, cfg)
	require.NoError(t, err)
	assert.Equal(t, grid, rebuilt)
}

func TestGridDestructiveEditsRequireConfirm(t *testing.T) {
	cfg := DefaultGridConfig()
	grid := NewDefaultGrid(cfg)

	err := grid.RemoveColumn(GroupStandard, 0, false)
	require.Error(t, err)
	assert.Len(t, grid.Standard.Columns, 10)

	require.NoError(t, grid.AssignSubject(CellKey{Day: models.Monday, Column: 1}, "math"))
	require.Error(t, grid.Regenerate(cfg, false))
	assert.Equal(t, "math", grid.Standard.Columns[1].Subjects[models.Monday])

	require.NoError(t, grid.Regenerate(cfg, true))
	assert.Empty(t, grid.Standard.Columns[1].Subjects)

	require.NoError(t, grid.RemoveColumn(GroupStandard, 0, true))
	assert.Len(t, grid.Standard.Columns, 9)
	assert.Equal(t, models.PeriodLesson, grid.Standard.Columns[0].Type)
}

func TestGridAddColumnContinuesFromLastEnd(t *testing.T) {
	cfg := DefaultGridConfig()
	grid := NewDefaultGrid(cfg)
	last := grid.Friday.Columns[len(grid.Friday.Columns)-1]

	require.NoError(t, grid.AddColumn(GroupFriday, cfg))

	added := grid.Friday.Columns[len(grid.Friday.Columns)-1]
	assert.Equal(t, last.End, added.Start)
	assert.Equal(t, last.End.Add(cfg.PeriodMinutes), added.End)
	assert.Equal(t, models.PeriodLesson, added.Type)
	assert.Equal(t, "Period 7", added.Label)

	empty := &Grid{}
	require.NoError(t, empty.AddColumn(GroupStandard, cfg))
	assert.Equal(t, "08:00", empty.Standard.Columns[0].Start.String())
}

func TestGridSetColumnTypeClearsSubjects(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())
	require.NoError(t, grid.AssignSubject(CellKey{Day: models.Monday, Column: 1}, "math"))

	require.NoError(t, grid.SetColumnType(GroupStandard, 1, models.PeriodBreak))
	assert.Equal(t, "Break", grid.Standard.Columns[1].Label)
	assert.Empty(t, grid.Standard.Columns[1].Subjects)

	err := grid.AssignSubject(CellKey{Day: models.Monday, Column: 1}, "math")
	require.Error(t, err)
	require.Error(t, grid.SetColumnType(GroupStandard, 1, models.PeriodType("recess")))
}

func TestGridEditColumnRejectsInvertedTimes(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())
	before := grid.Standard.Columns[1]

	end := models.ClockTime(7 * 60)
	require.Error(t, grid.EditColumn(GroupStandard, 1, ColumnChange{End: &end}))
	assert.Equal(t, before, grid.Standard.Columns[1])

	require.Error(t, grid.EditColumn(GroupStandard, 42, ColumnChange{}))
}

func TestGridApplyDispatchesEdits(t *testing.T) {
	cfg := DefaultGridConfig()
	grid := NewDefaultGrid(cfg)

	edits := []dto.TimetableEdit{
		{Op: dto.EditAssignSubject, Day: models.Tuesday, Column: 1, SubjectID: "math"},
		{Op: dto.EditColumn, Group: "friday", Column: 1, Start: strPtr("08:20"), End: strPtr("09:00")},
		{Op: dto.EditAddColumn, Group: "standard"},
	}
	for _, edit := range edits {
		require.NoError(t, grid.Apply(edit, cfg))
	}

	assert.Equal(t, "math", grid.Standard.Columns[1].Subjects[models.Tuesday])
	assert.Equal(t, "08:20", grid.Friday.Columns[1].Start.String())
	assert.Len(t, grid.Standard.Columns, 11)

	require.NoError(t, grid.Apply(dto.TimetableEdit{Op: dto.EditClearSubject, Day: models.Tuesday, Column: 1}, cfg))
	assert.Empty(t, grid.Standard.Columns[1].Subjects)

	require.Error(t, grid.Apply(dto.TimetableEdit{Op: dto.EditColumn, Start: strPtr("nope")}, cfg))
	require.Error(t, grid.Apply(dto.TimetableEdit{Op: "shuffle"}, cfg))
}

func strPtr(value string) *string {
	return &value
}

func TestGridAddColumnStopsBeforeMidnight(t *testing.T) {
	cfg := DefaultGridConfig()
	grid := NewDefaultGrid(cfg)

	var err error
	for i := 0; i < 40 && err == nil; i++ {
		err = grid.AddColumn(GroupStandard, cfg)
	}
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	last := grid.Standard.Columns[len(grid.Standard.Columns)-1]
	assert.LessOrEqual(t, last.End, models.LatestClockTime)
	require.NoError(t, grid.Validate())

	rebuilt, err := ReconstructGrid(grid.Flatten("c1"), cfg)
	require.NoError(t, err)
	assert.Equal(t, grid.Standard.Columns[len(grid.Standard.Columns)-1].End, rebuilt.Standard.Columns[len(rebuilt.Standard.Columns)-1].End)
}

func TestGridValidateRejectsColumnsPastMidnight(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())
	grid.Friday.Columns = append(grid.Friday.Columns, newColumn(models.PeriodLesson, "Late", 23*60+40, 24*60+20))

	err := grid.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ends after 23:59")
}

func TestGridValidateRejectsSharedStartTimes(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())
	first := grid.Standard.Columns[1]
	require.NoError(t, grid.EditColumn(GroupStandard, 2, ColumnChange{Start: &first.Start, End: &first.End}))

	err := grid.Validate()
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "both start at "+first.Start.String())
}

func TestGridValidateFixesDayLists(t *testing.T) {
	grid := NewDefaultGrid(DefaultGridConfig())
	grid.Standard.Days = []models.Weekday{models.Monday, models.Friday}
	grid.Friday.Days = nil

	require.NoError(t, grid.Validate())
	assert.Equal(t, models.StandardDays, grid.Standard.Days)
	assert.Equal(t, []models.Weekday{models.Friday}, grid.Friday.Days)

	rows := grid.Flatten("c1")
	fridays := 0
	for _, row := range rows {
		if row.Day == models.Friday {
			fridays++
		}
	}
	assert.Equal(t, len(grid.Friday.Columns), fridays)
	assert.Len(t, rows, len(grid.Standard.Columns)*4+len(grid.Friday.Columns))
}
