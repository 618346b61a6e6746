package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clearport/import-console/internal/core/domain"
	"github.com/clearport/import-console/internal/core/service"
)

// EditHandler exposes the shipment edit session over HTTP: one endpoint per
// edit shape (job milestone, container milestone, free time) plus read
// endpoints for the derived views.
type EditHandler struct {
	sessions *service.SessionManager
}

func NewEditHandler(sessions *service.SessionManager) *EditHandler {
	return &EditHandler{sessions: sessions}
}

// EditMilestone handles PATCH /v1/shipments/:id/milestones. The field's kind
// decides whether the value is parsed as a date or validated as text.
func (h *EditHandler) EditMilestone(c echo.Context) error {
	var req editFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	field := domain.Field(req.Field)
	var status domain.StatusLabel
	switch {
	case field.IsJobDate():
		status, err = session.ApplyJobDate(c.Request().Context(), field, req.Value)
	case field.IsText():
		status, err = session.ApplyJobText(c.Request().Context(), field, req.Value)
	default:
		return fmt.Errorf("%w: %q is not an editable milestone field", domain.ErrUnknownField, req.Field)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, editResponse{
		ShipmentID:     c.Param("id"),
		DetailedStatus: string(status),
		UpdateState:    session.UpdateState(),
	})
}

// EditContainer handles PATCH /v1/shipments/:id/containers/:index.
func (h *EditHandler) EditContainer(c echo.Context) error {
	index, err := containerIndex(c)
	if err != nil {
		return err
	}

	var req editFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	status, err := session.ApplyContainerDate(c.Request().Context(), index, domain.Field(req.Field), req.Value)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, editResponse{
		ShipmentID:     c.Param("id"),
		DetailedStatus: string(status),
		UpdateState:    session.UpdateState(),
	})
}

// SetFreeTime handles PUT /v1/shipments/:id/free-time.
func (h *EditHandler) SetFreeTime(c echo.Context) error {
	var req freeTimeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	status, err := session.SetFreeTime(c.Request().Context(), req.Days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, editResponse{
		ShipmentID:     c.Param("id"),
		DetailedStatus: string(status),
		UpdateState:    session.UpdateState(),
	})
}

// Get handles GET /v1/shipments/:id, returning the local optimistic view.
func (h *EditHandler) Get(c echo.Context) error {
	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	shipment, ok := session.Shipment()
	if !ok {
		return domain.ErrShipmentNotFound
	}
	return c.JSON(http.StatusOK, shipment)
}

// GetStatus handles GET /v1/shipments/:id/status.
func (h *EditHandler) GetStatus(c echo.Context) error {
	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{
		ShipmentID:     c.Param("id"),
		DetailedStatus: string(session.CurrentStatus()),
	})
}

// GetDetention handles GET /v1/shipments/:id/containers/:index/detention.
func (h *EditHandler) GetDetention(c echo.Context) error {
	index, err := containerIndex(c)
	if err != nil {
		return err
	}
	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	from, err := session.CurrentDetentionFor(index)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detentionResponse{
		ShipmentID:     c.Param("id"),
		ContainerIndex: index,
		DetentionFrom:  from,
	})
}

// GetUpdateState handles GET /v1/shipments/:id/update-state, the warning
// indicator the console polls after failed writes.
func (h *EditHandler) GetUpdateState(c echo.Context) error {
	session, err := h.sessions.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.UpdateState())
}

func containerIndex(c echo.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "container index must be an integer")
	}
	return index, nil
}
