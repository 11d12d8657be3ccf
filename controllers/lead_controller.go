package controller

import (
	"errors"

	"leadflow/store"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type LeadController struct {
	Store  *store.Store
	Logger *logrus.Entry
}

func NewLeadController(st *store.Store, logger *logrus.Entry) *LeadController {
	return &LeadController{
		Store:  st,
		Logger: logger,
	}
}

// CreateLead inserts a lead, or returns the existing one when the email is already known
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input struct {
		Name  *string `json:"name" validate:"omitempty,max=200"`
		Email string  `json:"email" validate:"required,mailbox"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	input.Email = utils.NormalizeEmail(input.Email)

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	name := ""
	if input.Name != nil {
		name = *input.Name
	}

	ctx := c.UserContext()
	leadID, err := lc.Store.InsertLead(ctx, name, input.Email)
	if err != nil {
		return storageFailure(c, "insert_lead", err)
	}

	lead, err := lc.Store.GetLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "lead not found after insert", nil)
		}
		return storageFailure(c, "get_lead", err)
	}

	return c.JSON(lead)
}

// GetLeads returns every lead, newest first
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	leads, err := lc.Store.ListLeads(c.UserContext())
	if err != nil {
		return storageFailure(c, "list_leads", err)
	}
	return c.JSON(leads)
}

// GetLead returns a single lead by ID
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	leadID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}

	lead, err := lc.Store.GetLead(c.UserContext(), leadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "lead not found", nil)
		}
		return storageFailure(c, "get_lead", err)
	}
	return c.JSON(lead)
}

// UpdateLead applies a partial update of name and/or email
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	leadID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}

	var input struct {
		Name  *string `json:"name" validate:"omitempty,max=200"`
		Email *string `json:"email" validate:"omitempty,mailbox"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if input.Email != nil {
		input.Email = utils.Pointer(utils.NormalizeEmail(*input.Email))
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	lead, err := lc.Store.UpdateLead(c.UserContext(), leadID, store.LeadUpdate{
		Name:  input.Name,
		Email: input.Email,
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			lc.Logger.WithError(err).WithField("lead_id", leadID).Warn("Lead update rejected")
		}
		return utils.ErrorResponse(c, fiber.StatusNotFound, "lead not found or update failed", nil)
	}

	return c.JSON(lead)
}

// DeleteLead deletes a lead and its sequence memberships
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	leadID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}

	removed, err := lc.Store.DeleteLead(c.UserContext(), leadID)
	if err != nil {
		return storageFailure(c, "delete_lead", err)
	}
	if !removed {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "lead not found", nil)
	}

	return c.JSON(utils.OKResponse())
}

// ClaimLead assigns an unclaimed lead to the claimer given in the query string
func (lc *LeadController) ClaimLead(c *fiber.Ctx) error {
	leadID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", err)
	}

	claimer := c.Query("claimer")
	if claimer == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "claimer is required", nil)
	}

	claimed, err := lc.Store.ClaimLead(c.UserContext(), leadID, claimer)
	if err != nil {
		return storageFailure(c, "claim_lead", err)
	}
	if !claimed {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "lead not found or already claimed", nil)
	}

	return c.JSON(utils.OKResponse())
}
