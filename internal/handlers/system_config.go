package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
	}
}

var configGroups = map[string]bool{
	"general":      true,
	"email":        true,
	"ldap":         true,
	"notification": true,
}

// GetGroup returns one settings group with secrets masked
// GET /api/admin/config/:group
func (h *SystemConfigHandler) GetGroup(c *gin.Context) {
	group := c.Param("group")
	if !configGroups[group] {
		response.BadRequest(c, "unknown config group")
		return
	}

	configs, err := h.configService.GetByGroup(group)
	if err != nil {
		respondErr(c, err)
		return
	}

	values := make(map[string]string, len(configs))
	for _, cfg := range configs {
		if isSecretKey(cfg.Key) {
			if cfg.Value != "" {
				values[cfg.Key] = "********"
			} else {
				values[cfg.Key] = ""
			}
			continue
		}
		values[cfg.Key] = cfg.Value
	}
	response.Success(c, values)
}

type updateConfigRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// UpdateGroup writes settings in one group
// PUT /api/admin/config/:group
func (h *SystemConfigHandler) UpdateGroup(c *gin.Context) {
	group := c.Param("group")
	if !configGroups[group] {
		response.BadRequest(c, "unknown config group")
		return
	}

	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	for key, value := range req.Values {
		if !strings.HasPrefix(key, group+"_") && group != "general" {
			response.BadRequest(c, "key "+key+" does not belong to group "+group)
			return
		}
		// Masked secrets echoed back unchanged are not overwritten.
		if isSecretKey(key) && value == "********" {
			continue
		}
		if err := h.configService.Set(key, value); err != nil {
			respondErr(c, err)
			return
		}
	}
	response.Success(c, gin.H{"message": "config updated"})
}

// GetLDAP returns the LDAP settings
// GET /api/admin/ldap
func (h *SystemConfigHandler) GetLDAP(c *gin.Context) {
	response.Success(c, h.configService.GetLDAPConfig())
}

// UpdateLDAP updates the LDAP settings
// PUT /api/admin/ldap
func (h *SystemConfigHandler) UpdateLDAP(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, h.configService.GetLDAPConfig())
}

func isSecretKey(key string) bool {
	return strings.Contains(key, "password") || strings.Contains(key, "secret")
}
