package dto

import (
	"time"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

// Severity of a user-facing notification
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// Notification titles and texts used by the save action
const (
	TitleValidationError = "Validation Error"
	TitleSuccess         = "Success"
	TitleSaveFailed      = "Save Failed"
	MessageSaved         = "Flow saved successfully!"
)

// Notification is a toast shown to the user
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveResult is the outcome of a save. Saved is true only when the flow was
// valid and the repository accepted it.
type SaveResult struct {
	Verdict validation.Verdict `json:"verdict"`
	Saved   bool               `json:"saved"`
	Record  *flow.Record       `json:"record,omitempty"`
	Err     error              `json:"-"`
	Error   string             `json:"error,omitempty"`
}

// FlowView is the current state of the editor
type FlowView struct {
	Flow     *flow.Snapshot `json:"flow"`
	Selected *flow.Node     `json:"selected,omitempty"`
}
