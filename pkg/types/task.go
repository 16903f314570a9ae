package types

import (
	"strings"
	"time"
)

// Task categories.
const (
	TaskCategoryFeeding    = "feeding"
	TaskCategoryWalk       = "walk"
	TaskCategoryGrooming   = "grooming"
	TaskCategoryVet        = "vet"
	TaskCategoryMedication = "medication"
	TaskCategoryPlay       = "play"
	TaskCategoryTraining   = "training"
	TaskCategoryOther      = "other"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var validTaskCategories = setOf(
	TaskCategoryFeeding, TaskCategoryWalk, TaskCategoryGrooming, TaskCategoryVet,
	TaskCategoryMedication, TaskCategoryPlay, TaskCategoryTraining, TaskCategoryOther,
)

var validPriorities = setOf(PriorityLow, PriorityMedium, PriorityHigh)

// Task is a care task for a pet, optionally recurring.
type Task struct {
	Base
	UserID      string     `json:"userId"`
	PetID       string     `json:"petId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Schedule    *Schedule  `json:"schedule,omitempty"`

	// IsOverdue is computed for display and never leaves the device.
	IsOverdue bool `json:"isOverdue,omitempty"`
}

func (t *Task) Kind() Kind    { return KindTask }
func (t *Task) Owner() string { return t.UserID }

func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = TaskCategoryOther
	}
	t.Priority = strings.TrimSpace(t.Priority)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Completed {
		t.CompletedAt = nil
	}
	if t.Schedule != nil {
		t.Schedule.normalize()
	}
}

func (t *Task) Validate() error {
	if err := required(KindTask, "title", t.Title); err != nil {
		return err
	}
	if err := required(KindTask, "petId", t.PetID); err != nil {
		return err
	}
	if err := oneOf(KindTask, "category", t.Category, validTaskCategories); err != nil {
		return err
	}
	if err := oneOf(KindTask, "priority", t.Priority, validPriorities); err != nil {
		return err
	}
	if t.DueDate.IsZero() {
		return invalid(KindTask, "dueDate", "must be set")
	}
	return t.Schedule.validate(KindTask, "schedule")
}

// Overdue reports whether the task is open and due before now.
func (t *Task) Overdue(now time.Time) bool {
	return !t.Completed && t.DueDate.Before(now)
}
