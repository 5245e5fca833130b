package models

import (
	"time"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "Todo"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
	TaskExpired    TaskStatus = "Expired"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type Task struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"-"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	PriorityLevel Priority   `json:"priorityLevel"`
	EstimatedTime int        `json:"estimatedTime"` // minutes
	Status        TaskStatus `json:"status"`
	Deadline      time.Time  `json:"deadline"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// One page of tasks with the total number of matching rows
type TaskPage struct {
	Tasks []Task
	Total int
	Page  int
}
