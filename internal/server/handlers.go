package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guardline/guardline/internal/capability"
	"github.com/guardline/guardline/internal/store"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// handleChat runs one conversational turn. A missing session_id starts a new
// session; the caller keeps the returned ID for continuity.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	ctx := c.Request().Context()
	sess, err := s.sessions.EnsureSession(ctx, req.SessionID, s.cfg.Session.TTL)
	if err != nil {
		return err
	}
	answer, err := s.orch.Respond(ctx, sess, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{SessionID: sess.ID(), Answer: answer})
}

type assessRequest struct {
	Situation string `json:"situation"`
	Location  string `json:"location"`
	Context   string `json:"context"`
}

// handleAssess rates a situation directly, without the oracle. Same rule
// table the conversational path uses.
func (s *Server) handleAssess(c echo.Context) error {
	var req assessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	content, err := s.orch.Assess(c.Request().Context(), map[string]any{
		"situation": req.Situation,
		"location":  req.Location,
		"context":   req.Context,
	})
	if err != nil {
		var violation *capability.SchemaViolationError
		if errors.As(err, &violation) {
			return echo.NewHTTPError(http.StatusBadRequest, violation.Error())
		}
		return err
	}
	return c.JSONBlob(http.StatusOK, []byte(content))
}

// handleCapabilities lists the registered capability catalog.
func (s *Server) handleCapabilities(c echo.Context) error {
	specs := s.orch.Registry().Specs()
	out := make([]map[string]any, 0, len(specs))
	for _, sp := range specs {
		out = append(out, map[string]any{
			"name":        sp.Name,
			"description": sp.Description,
			"parameters":  sp.ParametersSchema(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"capabilities": out})
}

// handleSessionCases lists case records filed during a session.
func (s *Server) handleSessionCases(c echo.Context) error {
	id := c.Param("id")
	cases, err := s.cases.CasesBySession(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if cases == nil {
		cases = []store.CaseRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{"session_id": id, "cases": cases})
}

// handleClearSession drops a session and its conversation.
func (s *Server) handleClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.sessions.ClearSession(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
