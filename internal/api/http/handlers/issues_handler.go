package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/api/http/response"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/router"
	"github.com/spec-kit/issue-tracker/internal/service"
)

// IssuesHandler serves the /issues resource. Successful bodies are bare.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// List GET /issues.
func (h *IssuesHandler) List(c *fiber.Ctx, _ router.Params) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	res, err := h.service.ListIssues(c.UserContext(), service.IssueListInput{
		Limit:     limit,
		NextToken: c.Query("nextToken"),
	})
	if err != nil {
		return err
	}
	return response.JSON(c, fiber.StatusOK, dto.NewIssueListResponse(res))
}

// Create POST /issues.
func (h *IssuesHandler) Create(c *fiber.Ctx, _ router.Params) error {
	var req dto.CreateIssueRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	issue, err := h.service.CreateIssue(c.UserContext(), actorID(c), req.CreateInput())
	if err != nil {
		return err
	}
	return response.JSON(c, fiber.StatusCreated, dto.NewIssueResponse(issue))
}

// Get GET /issues/{id}.
func (h *IssuesHandler) Get(c *fiber.Ctx, params router.Params) error {
	issue, err := h.service.GetIssue(c.UserContext(), params.Get("id"))
	if err != nil {
		return err
	}
	return response.JSON(c, fiber.StatusOK, dto.NewIssueResponse(issue))
}

// Update PUT /issues/{id}.
func (h *IssuesHandler) Update(c *fiber.Ctx, params router.Params) error {
	var req dto.UpdateIssueRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	issue, err := h.service.UpdateIssue(c.UserContext(), actorID(c), params.Get("id"), req.UpdateInput())
	if err != nil {
		return err
	}
	return response.JSON(c, fiber.StatusOK, dto.NewIssueResponse(issue))
}

// Delete DELETE /issues/{id}.
func (h *IssuesHandler) Delete(c *fiber.Ctx, params router.Params) error {
	if err := h.service.DeleteIssue(c.UserContext(), actorID(c), params.Get("id")); err != nil {
		return err
	}
	return response.NoContent(c)
}

func actorID(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return ""
	}
	return principal.User.ID
}
