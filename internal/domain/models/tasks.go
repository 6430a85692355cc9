package models

import "time"

// TaskStatus enumerates the lifecycle of a farm task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
	TaskBlocked    TaskStatus = "Blocked"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked:
		return true
	}
	return false
}

// Task is a piece of work assigned to a farm user. AssignedTo holds the profile ID.
type Task struct {
	ID          string     `json:"id" gorm:"column:id;primaryKey"`
	Description string     `json:"description" gorm:"column:description"`
	AssignedTo  string     `json:"assigned_to" gorm:"column:assigned_to"`
	DueDate     Date       `json:"due_date" gorm:"column:due_date"`
	Status      TaskStatus `json:"status" gorm:"column:status"`
	Notes       string     `json:"notes" gorm:"column:notes"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
}

func (Task) TableName() string { return TableTasks }
