package handlers

import (
	"net/http"

	"elective-allocation/internal/api/middleware"
	domain "elective-allocation/internal/domain/allocation"
	serviceInterfaces "elective-allocation/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type ChangeRequestHandler struct {
	changeRequests serviceInterfaces.ChangeRequestService
	idempotency    Idempotency
}

func NewChangeRequestHandler(changeRequests serviceInterfaces.ChangeRequestService, idempotency Idempotency) *ChangeRequestHandler {
	return &ChangeRequestHandler{changeRequests: changeRequests, idempotency: idempotency}
}

// Create handles POST /api/v1/change-requests for the calling student.
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req serviceInterfaces.CreateChangeRequest
	if !bindJSON(c, &req) {
		return
	}

	idempotent(c, h.idempotency, "change_request.create", req, func() (int, APIResponse) {
		cr, err := h.changeRequests.Create(c.Request.Context(), middleware.CallerID(c), &req)
		if err != nil {
			return errorResponse(c, err, "Failed to create change request")
		}
		return http.StatusCreated, APIResponse{
			Success: true,
			Message: "Change request created",
			Data:    cr,
		}
	})
}

// List handles GET /api/v1/change-requests
func (h *ChangeRequestHandler) List(c *gin.Context) {
	status := domain.ChangeRequestStatus(c.Query("status"))

	reqs, err := h.changeRequests.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err, "Failed to list change requests")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    reqs,
	})
}

// Decide handles POST /api/v1/change-requests/:request_id/decision
func (h *ChangeRequestHandler) Decide(c *gin.Context) {
	requestID, ok := uuidParam(c, "request_id")
	if !ok {
		return
	}

	var req serviceInterfaces.DecideChangeRequest
	if !bindJSON(c, &req) {
		return
	}

	decider := middleware.CallerID(c)
	cr, err := h.changeRequests.Decide(c.Request.Context(), requestID, *req.Approve, &decider)
	if err != nil {
		respondError(c, err, "Failed to decide change request")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Change request " + string(cr.Status),
		Data:    cr,
	})
}
