package model

import (
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskNew        TaskStatus = "new"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskOverdue    TaskStatus = "overdue"
)

// Task represents a unit of work inside a team. Tasks form a tree through
// ParentID. Deleting a user nullifies author/assignee references; deleting
// the project or team removes its tasks.
type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:'new'"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsDeleted   bool       `json:"is_deleted" gorm:"default:false"`
	AuthorID    *uint      `json:"author_id,omitempty" gorm:"index"`
	AssigneeID  *uint      `json:"assignee_id,omitempty" gorm:"index"`
	ParentID    *uint      `json:"parent_id,omitempty" gorm:"index"`
	ProjectID   uint       `json:"project_id" gorm:"index;not null"`
	TeamID      uint       `json:"team_id" gorm:"index;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL"`
	Assignee *User     `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL"`
	Parent   *Task     `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Subtasks []Task    `json:"subtasks,omitempty" gorm:"foreignKey:ParentID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}
