package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{
		contactService: services.NewContactService(db),
	}
}

// Create adds a musician contact to the user's address book
// POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var req services.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contact, err := h.contactService.Create(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Created(c, contact)
}

// List returns the user's contacts
// GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	var req services.ContactListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contacts, err := h.contactService.List(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, contacts)
}

// Get returns a single contact
// GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	contact, err := h.contactService.Get(middleware.GetActor(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, contact)
}

// Update edits a contact
// PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contact, err := h.contactService.Update(middleware.GetActor(c), id, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, contact)
}

// Delete removes a contact
// DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.contactService.Delete(middleware.GetActor(c), id); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"message": "contact deleted"})
}
