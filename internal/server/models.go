package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leanmobile/leanbridge/internal/leantime"
	"github.com/leanmobile/leanbridge/internal/normalize"
)

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// LoginRequest is the credential payload from the mobile client.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// SessionUser is the identity slice exposed to the browser.
type SessionUser struct {
	ID             string `json:"id"`
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	HasPersonalKey bool   `json:"hasPersonalKey"`
}

// LoginResponse answers the login endpoint. Debug carries classifier
// internals outside production.
type LoginResponse struct {
	OK    bool         `json:"ok"`
	User  *SessionUser `json:"user,omitempty"`
	Debug any          `json:"debug,omitempty"`
}

type loginDebug struct {
	Reason       string   `json:"reason"`
	Status       int      `json:"status"`
	Location     string   `json:"location,omitempty"`
	HiddenFields []string `json:"hiddenFields,omitempty"`
}

// TaskView is a task row plus its display-ready dates.
type TaskView struct {
	leantime.Task
	DueDisplay      string `json:"dueDisplay"`
	DueShort        string `json:"dueShort"`
	DueInput        string `json:"dueInput"`
	AssigneeDisplay string `json:"assigneeDisplay"`
	Done            bool   `json:"done"`
}

func newTaskView(t leantime.Task) TaskView {
	return TaskView{
		Task:            t,
		DueDisplay:      normalize.FormatDate(t.DateToFinish),
		DueShort:        normalize.FormatShort(t.DateToFinish),
		DueInput:        normalize.DateInput(t.DateToFinish),
		AssigneeDisplay: t.Assignee(),
		Done:            leantime.IsDone(t.Status.String()),
	}
}

// ProjectView is a project row plus derived flags.
type ProjectView struct {
	leantime.Project
	Active bool `json:"active"`
}

// UpdateView is a project status update ready for rendering.
type UpdateView struct {
	ID          string                  `json:"id"`
	Text        string                  `json:"text"`
	Author      string                  `json:"author"`
	Date        string                  `json:"date"`
	DateDisplay string                  `json:"dateDisplay"`
	Health      *leantime.ProjectHealth `json:"health,omitempty"`
	HealthCode  string                  `json:"healthCode,omitempty"`
}

func newUpdateView(c leantime.Comment, users []leantime.User) UpdateView {
	v := UpdateView{
		ID:          c.ID.String(),
		Text:        c.Body(),
		Author:      leantime.AuthorName(c, users),
		Date:        c.Date,
		DateDisplay: normalize.FormatDateTime(c.Date),
	}
	if h, ok := leantime.HealthLabel(c.Status.String()); ok {
		v.Health = &h
		v.HealthCode = c.Status.String()
	}
	return v
}

// AddUpdateRequest posts a new project status update.
type AddUpdateRequest struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	Text        string `json:"text"`
	// Health is the traffic-light word: green, yellow or red.
	Health string `json:"health"`
}

// EditUpdateRequest replaces an update's text.
type EditUpdateRequest struct {
	Text string `json:"text"`
}

// ChangeStatusRequest moves a task to another status column.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// TaskWriteRequest creates or updates a task.
type TaskWriteRequest struct {
	Values map[string]any `json:"values"`
}
