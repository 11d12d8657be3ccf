package controller

import (
	"errors"

	"leadflow/models"
	"leadflow/store"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type SequenceController struct {
	Store  *store.Store
	Mailer utils.Mailer
	Logger *logrus.Entry
}

func NewSequenceController(st *store.Store, mailer utils.Mailer, logger *logrus.Entry) *SequenceController {
	return &SequenceController{
		Store:  st,
		Mailer: mailer,
		Logger: logger,
	}
}

type sequenceStepInput struct {
	StepIndex  *int    `json:"step_index" validate:"required"`
	DelayHours *int    `json:"delay_hours" validate:"required"`
	Subject    *string `json:"subject" validate:"required"`
	Body       *string `json:"body" validate:"required"`
}

// CreateSequence creates a sequence with its steps and initial leads
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input struct {
		Name        string              `json:"name" validate:"required,max=200"`
		ScheduledAt *string             `json:"scheduled_at"`
		CreatedBy   *string             `json:"created_by"`
		LeadIDs     []uint              `json:"lead_ids"`
		Steps       []sequenceStepInput `json:"steps" validate:"omitempty,dive"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	scheduledAt, err := utils.ParseOptionalTimestamp(input.ScheduledAt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid scheduled_at", err)
	}

	steps := make([]store.StepInput, 0, len(input.Steps))
	for _, step := range input.Steps {
		steps = append(steps, store.StepInput{
			StepIndex:  *step.StepIndex,
			DelayHours: *step.DelayHours,
			Subject:    *step.Subject,
			Body:       *step.Body,
		})
	}

	ctx := c.UserContext()
	sequenceID, err := sc.Store.CreateSequenceWithMembers(ctx, store.SequenceInput{
		Name:        input.Name,
		ScheduledAt: scheduledAt,
		CreatedBy:   input.CreatedBy,
		Steps:       steps,
		LeadIDs:     input.LeadIDs,
	})
	if err != nil {
		return storageFailure(c, "create_sequence", err)
	}

	sequence, err := sc.Store.GetSequence(ctx, sequenceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "sequence not found after insert", nil)
		}
		return storageFailure(c, "get_sequence", err)
	}

	sc.Logger.WithFields(logrus.Fields{
		"sequence_id": sequence.ID,
		"steps":       len(sequence.Steps),
		"leads":       len(sequence.LeadIDs),
	}).Info("Sequence created")

	return c.JSON(sequence)
}

// GetSequences returns all sequences with steps and lead ids
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	sequences, err := sc.Store.ListSequences(c.UserContext())
	if err != nil {
		return storageFailure(c, "list_sequences", err)
	}
	return c.JSON(sequences)
}

func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	sequenceID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence ID", err)
	}

	sequence, err := sc.Store.GetSequence(c.UserContext(), sequenceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "sequence not found", nil)
		}
		return storageFailure(c, "get_sequence", err)
	}
	return c.JSON(sequence)
}

// DeleteSequence removes a sequence with its steps and memberships
func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	sequenceID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence ID", err)
	}

	removed, err := sc.Store.DeleteSequence(c.UserContext(), sequenceID)
	if err != nil {
		return storageFailure(c, "delete_sequence", err)
	}
	if !removed {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "sequence not found", nil)
	}
	return c.JSON(utils.OKResponse())
}

// AddLeads appends leads to an existing sequence
func (sc *SequenceController) AddLeads(c *fiber.Ctx) error {
	sequenceID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence ID", err)
	}

	var input struct {
		LeadIDs []uint `json:"lead_ids" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ctx := c.UserContext()
	if _, err := sc.Store.GetSequence(ctx, sequenceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "sequence not found", nil)
		}
		return storageFailure(c, "get_sequence", err)
	}

	if err := sc.Store.AddLeadsToSequence(ctx, sequenceID, input.LeadIDs); err != nil {
		return storageFailure(c, "add_leads", err)
	}

	return c.JSON(utils.OKResponse())
}

func (sc *SequenceController) PauseSequence(c *fiber.Ctx) error {
	return sc.setStatus(c, models.SequenceStatusPaused)
}

func (sc *SequenceController) ResumeSequence(c *fiber.Ctx) error {
	return sc.setStatus(c, models.SequenceStatusScheduled)
}

func (sc *SequenceController) setStatus(c *fiber.Ctx, status string) error {
	sequenceID, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence ID", err)
	}

	changed, err := sc.Store.UpdateSequenceStatus(c.UserContext(), sequenceID, status)
	if err != nil {
		return storageFailure(c, "update_sequence_status", err)
	}
	if !changed {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "sequence not found", nil)
	}

	return c.JSON(utils.OKResponse())
}
