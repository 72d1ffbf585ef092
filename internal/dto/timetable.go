package dto

import "github.com/noah-isme/aladab-school-api/internal/models"

// TimetableEditOp names a grid mutation.
type TimetableEditOp string

const (
	EditAddColumn     TimetableEditOp = "add_column"
	EditRemoveColumn  TimetableEditOp = "remove_column"
	EditSetColumnType TimetableEditOp = "set_column_type"
	EditColumn        TimetableEditOp = "edit_column"
	EditAssignSubject TimetableEditOp = "assign_subject"
	EditClearSubject  TimetableEditOp = "clear_subject"
	EditRegenerate    TimetableEditOp = "regenerate"
)

// TimetableEdit is one operation applied to a class grid. Group is "standard" or "friday"; cell operations
// address a column of the group serving Day.
type TimetableEdit struct {
	Op        TimetableEditOp   `json:"op" validate:"required,oneof=add_column remove_column set_column_type edit_column assign_subject clear_subject regenerate"`
	Group     string            `json:"group" validate:"omitempty,oneof=standard friday"`
	Column    int               `json:"column" validate:"min=0"`
	Day       models.Weekday    `json:"day" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday"`
	Type      models.PeriodType `json:"type" validate:"omitempty,oneof=lesson break assembly"`
	Start     *string           `json:"start,omitempty"`
	End       *string           `json:"end,omitempty"`
	Label     *string           `json:"label,omitempty"`
	SubjectID string            `json:"subject_id,omitempty"`
	Confirm   bool              `json:"confirm"`
}

// TimetableEditRequest batches edits; Save persists the resulting grid.
type TimetableEditRequest struct {
	Edits []TimetableEdit `json:"edits" validate:"required,min=1,dive"`
	Save  bool            `json:"save"`
}

// RegenerateTimetableRequest must carry confirm=true.
type RegenerateTimetableRequest struct {
	Confirm bool `json:"confirm" form:"confirm"`
}
