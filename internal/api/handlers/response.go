package handlers

import (
	"context"
	"net/http"

	"elective-allocation/internal/api/middleware"
	domain "elective-allocation/internal/domain/allocation"
	"elective-allocation/pkg/apperrors"
	"elective-allocation/pkg/logger"
	"elective-allocation/pkg/token"
	"elective-allocation/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// ErrorDetail is the errors payload of a failed request.
type ErrorDetail struct {
	Code   apperrors.Code `json:"code"`
	Detail string         `json:"detail,omitempty"`
}

// Idempotency is the replay store used by mutating handlers.
type Idempotency interface {
	CheckDuplicateRequest(ctx context.Context, key, operation string, actorID uuid.UUID, requestData any) (record *domain.IdempotencyRecord, duplicate bool, err error)
	StoreProcessedRequest(ctx context.Context, key, operation string, actorID uuid.UUID, requestData any, responseData any, statusCode int) error
}

// statusFor maps an error code onto an HTTP status.
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeInvalidInput, apperrors.CodeNoSubjects:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden, apperrors.CodePreferencesLocked:
		return http.StatusForbidden
	case apperrors.CodeRunInProgress, apperrors.CodeConflict:
		return http.StatusConflict
	}
	if apperrors.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errorResponse(c *gin.Context, err error, message string) (int, APIResponse) {
	status := statusFor(err)
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.CodeInternal
	}

	detail := ErrorDetail{Code: code}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.WithFields(logrus.Fields{
			"request_id": middleware.RequestID(c),
			"code":       code,
		}).WithError(err).Error(message)
	} else {
		detail.Detail = apperrors.UserMessage(err)
	}

	return status, APIResponse{Success: false, Message: message, Errors: detail}
}

func respondError(c *gin.Context, err error, message string) {
	status, body := errorResponse(c, err, message)
	c.JSON(status, body)
}

// bindJSON binds and validates the request body. It writes the 400
// response itself and reports whether the handler should continue.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid request format",
			Errors:  err.Error(),
		})
		return false
	}

	if err := validator.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validator.FormatValidationError(err),
		})
		return false
	}
	return true
}

// uuidParam parses a path parameter, writing a 400 on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid " + name + " format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// selfOrAdmin lets admins act on any student and students only on
// themselves.
func selfOrAdmin(c *gin.Context, studentID uuid.UUID) bool {
	if middleware.CallerRole(c) == token.RoleAdmin || middleware.CallerID(c) == studentID {
		return true
	}
	c.JSON(http.StatusForbidden, APIResponse{
		Success: false,
		Message: "Students may only access their own records",
		Errors:  ErrorDetail{Code: apperrors.CodeForbidden},
	})
	return false
}

// idempotent runs handle once per Idempotency-Key and replays the stored
// response for repeats. Only successful responses are stored.
func idempotent(c *gin.Context, idem Idempotency, operation string, request any, handle func() (int, APIResponse)) {
	key := middleware.IdempotencyKey(c)
	if idem == nil || key == "" {
		status, body := handle()
		c.JSON(status, body)
		return
	}

	ctx := c.Request.Context()
	caller := middleware.CallerID(c)

	record, duplicate, err := idem.CheckDuplicateRequest(ctx, key, operation, caller, request)
	if err != nil {
		respondError(c, err, "Idempotency check failed")
		return
	}
	if duplicate {
		c.Header("Idempotent-Replayed", "true")
		c.Data(record.StatusCode, "application/json; charset=utf-8", record.Response)
		return
	}

	status, body := handle()
	if status < http.StatusMultipleChoices {
		if err := idem.StoreProcessedRequest(ctx, key, operation, caller, request, body, status); err != nil {
			logger.WithField("request_id", middleware.RequestID(c)).WithError(err).Warn("Failed to store idempotent response")
		}
	}
	c.JSON(status, body)
}
