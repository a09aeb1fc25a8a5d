package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/leantime"
)

// upstreamFailure maps a typed accessor error onto a problem response.
func (s *Server) upstreamFailure(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	title := "Upstream Error"
	if status == fiber.StatusTooManyRequests {
		title = "Rate Limited"
	}
	return problemResponse(c, status, apperr.KindOf(err).String(), title, err.Error())
}

// ListUsers handles GET /api/v1/users.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.deps.Service.Users(c.Context(), credentials(sessionRecord(c)))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(users)
}

// ListProjects handles GET /api/v1/projects.
func (s *Server) ListProjects(c *fiber.Ctx) error {
	projects, err := s.deps.Service.Projects(c.Context(), credentials(sessionRecord(c)))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, ProjectView{Project: p, Active: leantime.IsActive(p)})
	}
	return c.JSON(views)
}

// ListStatusLabels handles GET /api/v1/statuslabels. Never fails; a
// broken upstream degrades to the built-in list.
func (s *Server) ListStatusLabels(c *fiber.Ctx) error {
	return c.JSON(s.deps.Service.StatusLabels(c.Context(), credentials(sessionRecord(c))))
}

// ListMyTasks handles GET /api/v1/tasks.
func (s *Server) ListMyTasks(c *fiber.Ctx) error {
	tasks, err := s.deps.Service.MyTasks(c.Context(), credentials(sessionRecord(c)))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(taskViews(tasks))
}

// ListProjectTasks handles GET /api/v1/projects/:id/tasks.
func (s *Server) ListProjectTasks(c *fiber.Ctx) error {
	tasks, err := s.deps.Service.ProjectTasks(c.Context(), credentials(sessionRecord(c)), c.Params("id"))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(taskViews(tasks))
}

// ListMilestones handles GET /api/v1/projects/:id/milestones.
func (s *Server) ListMilestones(c *fiber.Ctx) error {
	milestones, err := s.deps.Service.Milestones(c.Context(), credentials(sessionRecord(c)), c.Params("id"))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(milestones)
}

// AddTask handles POST /api/v1/tasks.
func (s *Server) AddTask(c *fiber.Ctx) error {
	var req TaskWriteRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if len(req.Values) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_values", "Bad Request", "Task values are required")
	}
	result, err := s.deps.Service.AddTask(c.Context(), credentials(sessionRecord(c)), req.Values)
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "result": result})
}

// UpdateTask handles PATCH /api/v1/tasks/:id.
func (s *Server) UpdateTask(c *fiber.Ctx) error {
	var req TaskWriteRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if len(req.Values) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_values", "Bad Request", "Task values are required")
	}
	if err := s.deps.Service.UpdateTask(c.Context(), credentials(sessionRecord(c)), c.Params("id"), req.Values); err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ChangeTaskStatus handles PATCH /api/v1/tasks/:id/status.
func (s *Server) ChangeTaskStatus(c *fiber.Ctx) error {
	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Status == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_status", "Bad Request", "Status is required")
	}
	if err := s.deps.Service.ChangeTaskStatus(c.Context(), credentials(sessionRecord(c)), c.Params("id"), req.Status); err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (s *Server) DeleteTask(c *fiber.Ctx) error {
	if err := s.deps.Service.DeleteTask(c.Context(), credentials(sessionRecord(c)), c.Params("id")); err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ListProjectUpdates handles GET /api/v1/projects/:id/updates.
func (s *Server) ListProjectUpdates(c *fiber.Ctx) error {
	src := credentials(sessionRecord(c))
	updates, err := s.deps.Service.ProjectUpdates(c.Context(), src, c.Params("id"))
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	// Author resolution wants the directory; its failure only costs
	// nicer names.
	users, err := s.deps.Service.Users(c.Context(), src)
	if err != nil {
		s.logger.Debug().Err(err).Msg("user directory unavailable for author names")
	}
	views := make([]UpdateView, 0, len(updates))
	for _, u := range updates {
		views = append(views, newUpdateView(u, users))
	}
	return c.JSON(views)
}

// AddProjectUpdate handles POST /api/v1/projects/:id/updates.
func (s *Server) AddProjectUpdate(c *fiber.Ctx) error {
	var req AddUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_text", "Bad Request", "Update text is required")
	}
	health, ok := leantime.HealthCode(req.Health)
	if !ok {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_health", "Bad Request", "Health must be green, yellow or red")
	}
	result, err := s.deps.Service.AddProjectUpdate(c.Context(), credentials(sessionRecord(c)),
		c.Params("id"), req.ProjectName, req.Text, health)
	if err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "result": result})
}

// EditProjectUpdate handles PATCH /api/v1/updates/:id.
func (s *Server) EditProjectUpdate(c *fiber.Ctx) error {
	var req EditUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_text", "Bad Request", "Update text is required")
	}
	if err := s.deps.Service.EditProjectUpdate(c.Context(), credentials(sessionRecord(c)), c.Params("id"), req.Text); err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DeleteProjectUpdate handles DELETE /api/v1/updates/:id.
func (s *Server) DeleteProjectUpdate(c *fiber.Ctx) error {
	if err := s.deps.Service.DeleteProjectUpdate(c.Context(), credentials(sessionRecord(c)), c.Params("id")); err != nil {
		return s.upstreamFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func taskViews(tasks []leantime.Task) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	return views
}
