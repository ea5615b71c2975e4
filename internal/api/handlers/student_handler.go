package handlers

import (
	"net/http"

	serviceInterfaces "elective-allocation/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	preferences serviceInterfaces.PreferenceService
}

func NewStudentHandler(preferences serviceInterfaces.PreferenceService) *StudentHandler {
	return &StudentHandler{preferences: preferences}
}

// SubmitPreferences handles PUT /api/v1/students/:student_id/preferences
func (h *StudentHandler) SubmitPreferences(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok || !selfOrAdmin(c, studentID) {
		return
	}

	var req serviceInterfaces.SubmitPreferencesRequest
	if !bindJSON(c, &req) {
		return
	}

	student, err := h.preferences.SubmitPreferences(c.Request.Context(), studentID, req.SubjectIDs)
	if err != nil {
		respondError(c, err, "Failed to submit preferences")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Preferences submitted",
		Data:    student,
	})
}

// GetAllocation handles GET /api/v1/students/:student_id/allocation
func (h *StudentHandler) GetAllocation(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok || !selfOrAdmin(c, studentID) {
		return
	}

	alloc, err := h.preferences.GetAllocation(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err, "Failed to load allocation")
		return
	}
	if alloc == nil {
		c.JSON(http.StatusOK, APIResponse{
			Success: true,
			Message: "Student is not allocated",
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    alloc,
	})
}
