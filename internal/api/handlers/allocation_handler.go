package handlers

import (
	"net/http"

	"elective-allocation/internal/api/middleware"
	serviceInterfaces "elective-allocation/internal/interfaces/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AllocationHandler exposes allocation runs, snapshots and rollbacks.
type AllocationHandler struct {
	allocations serviceInterfaces.AllocationService
	snapshots   serviceInterfaces.SnapshotService
	idempotency Idempotency
}

// NewAllocationHandler creates the handler. idempotency may be nil.
func NewAllocationHandler(allocations serviceInterfaces.AllocationService, snapshots serviceInterfaces.SnapshotService, idempotency Idempotency) *AllocationHandler {
	return &AllocationHandler{
		allocations: allocations,
		snapshots:   snapshots,
		idempotency: idempotency,
	}
}

// RunAllocation handles POST /api/v1/allocations/run
func (h *AllocationHandler) RunAllocation(c *gin.Context) {
	idempotent(c, h.idempotency, "allocation.run", nil, func() (int, APIResponse) {
		caller := middleware.CallerID(c)
		result, err := h.allocations.RunAllocation(c.Request.Context(), &caller)
		if err != nil {
			return errorResponse(c, err, "Allocation run failed")
		}
		return http.StatusOK, APIResponse{
			Success: true,
			Message: "Allocation completed",
			Data:    result,
		}
	})
}

// ListAllocations handles GET /api/v1/allocations
func (h *AllocationHandler) ListAllocations(c *gin.Context) {
	var subjectID *uuid.UUID
	if raw := c.Query("subject_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, APIResponse{
				Success: false,
				Message: "Invalid subject_id format",
			})
			return
		}
		subjectID = &id
	}

	allocs, err := h.allocations.ListAllocations(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err, "Failed to list allocations")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    allocs,
	})
}

// GetWaitlists handles GET /api/v1/allocations/waitlists
func (h *AllocationHandler) GetWaitlists(c *gin.Context) {
	waitlists, err := h.allocations.GetWaitlists(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load waitlists")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    waitlists,
	})
}

// RollbackAll handles POST /api/v1/allocations/rollback
func (h *AllocationHandler) RollbackAll(c *gin.Context) {
	if err := h.snapshots.RollbackAll(c.Request.Context()); err != nil {
		respondError(c, err, "Rollback failed")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "All allocations rolled back",
	})
}

// ListSnapshots handles GET /api/v1/snapshots
func (h *AllocationHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.snapshots.ListSnapshots(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list snapshots")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    snapshots,
	})
}

// RollbackToSnapshot handles POST /api/v1/snapshots/:snapshot_id/rollback
func (h *AllocationHandler) RollbackToSnapshot(c *gin.Context) {
	snapshotID, ok := uuidParam(c, "snapshot_id")
	if !ok {
		return
	}

	if err := h.snapshots.RollbackToSnapshot(c.Request.Context(), snapshotID); err != nil {
		respondError(c, err, "Rollback failed")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Rolled back to snapshot",
		Data:    gin.H{"snapshot_id": snapshotID},
	})
}
