package handlers

import (
	"strconv"

	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/response"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// EventHandler handles events and helper signups
type EventHandler struct {
	eventService *services.EventService
	validator    *validation.Validator
	logger       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService, v *validation.Validator, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		validator:    v,
		logger:       logger,
	}
}

// ListUpcoming lists events that have not ended
// @Summary Upcoming events
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum events" default(20)
// @Success 200 {object} response.Response
// @Router /events [get]
func (h *EventHandler) ListUpcoming(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.eventService.ListUpcoming(c.UserContext(), limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Events retrieved successfully", events)
}

// GetEvent gets an event with its helper slots
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	event, err := h.eventService.GetEvent(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Event retrieved successfully", event)
}

// CreateEvent creates an event and its helper slots
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param body body services.CreateEventInput true "Event"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /events [post]
func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	var req services.CreateEventInput
	if err := bind(c, h.validator, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	event, err := h.eventService.CreateEvent(c.UserContext(), middleware.ActorFrom(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Event created successfully", event)
}

// Signup signs the caller up for a helper slot
// @Summary Sign up as helper
// @Tags Events
// @Produce json
// @Param slotId path int true "Slot ID"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /events/slots/{slotId}/signup [post]
func (h *EventHandler) Signup(c *fiber.Ctx) error {
	slotID, err := parseID(c, "slotId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	signup, err := h.eventService.Signup(c.UserContext(), middleware.ActorFrom(c), slotID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Created(c, "Signed up successfully", signup)
}

// CancelSignup removes the caller from a helper slot
// @Summary Cancel helper signup
// @Tags Events
// @Produce json
// @Param slotId path int true "Slot ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/slots/{slotId}/signup [delete]
func (h *EventHandler) CancelSignup(c *fiber.Ctx) error {
	slotID, err := parseID(c, "slotId")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.eventService.CancelSignup(c.UserContext(), middleware.ActorFrom(c), slotID); err != nil {
		return respondError(c, h.logger, err)
	}
	return response.Success(c, "Signup cancelled", nil)
}
