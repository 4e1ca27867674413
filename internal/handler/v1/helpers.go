package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/validate"
)

const dateLayout = "2006-01-02"

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, APIResponse[any]{Message: msg})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

var (
	notFoundErrors = []error{
		domain.ErrUserNotFound,
		appointment.ErrAppointmentNotFound,
		catalog.ErrServiceNotFound,
		client.ErrClientNotFound,
		invoice.ErrInvoiceNotFound,
		mr.ErrRecordNotFound,
		mr.ErrAttachmentNotFound,
		notification.ErrNotificationNotFound,
		notification.ErrDeviceTokenNotFound,
		pet.ErrPetNotFound,
		veterinarian.ErrVeterinarianNotFound,
	}

	conflictErrors = []error{
		domain.ErrUserAlreadyExists,
		catalog.ErrServiceCodeExists,
		client.ErrClientAlreadyExists,
		client.ErrClientHasPets,
		client.ErrUserAlreadyLinked,
		invoice.ErrAppointmentInvoiced,
		mr.ErrRecordAlreadyBilled,
		pet.ErrPetHasAppointments,
		pet.ErrChipAlreadyAssigned,
		veterinarian.ErrLicenseAlreadyExists,
		veterinarian.ErrHasUpcomingAppointments,
	}

	unprocessableErrors = []error{
		appointment.ErrInvalidStatusTransition,
		invoice.ErrAppointmentNotBillable,
		invoice.ErrPaidInvoiceDelete,
	}

	badRequestErrors = []error{
		appointment.ErrInvalidStatus,
		appointment.ErrScheduledInPast,
		appointment.ErrInvalidDuration,
		appointment.ErrInvalidLocation,
		appointment.ErrAddressRequired,
		appointment.ErrNoServices,
		appointment.ErrPetNotOwnedByClient,
		catalog.ErrInvalidServiceType,
		catalog.ErrInvalidDuration,
		catalog.ErrInvalidPrice,
		catalog.ErrUnknownServices,
		invoice.ErrInvalidStatus,
		invoice.ErrInvalidPaymentMethod,
		invoice.ErrInvalidTaxRate,
		invoice.ErrNoRecords,
		invoice.ErrRecordsNotOwned,
		mr.ErrInvalidRecordType,
		mr.ErrInvalidQuantity,
		mr.ErrUnsupportedAttachment,
		notification.ErrInvalidType,
		notification.ErrInvalidPlatform,
		pet.ErrInvalidSex,
		pet.ErrInvalidBirthDate,
		veterinarian.ErrInvalidWeekday,
		veterinarian.ErrInvalidClock,
		veterinarian.ErrWindowEndBeforeStart,
		veterinarian.ErrInvalidSlotMinutes,
		service.ErrWeakPassword,
		service.ErrInvalidRole,
		service.ErrInvalidLookupType,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "SCHEDULE_CONFLICT"})

	case errors.Is(err, appointment.ErrScheduleBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "SCHEDULE_BUSY"})

	case isAny(err, notFoundErrors):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case isAny(err, conflictErrors):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case isAny(err, unprocessableErrors):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})

	case isAny(err, badRequestErrors):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, mr.ErrAttachmentTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})

	case errors.Is(err, mr.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "ACCOUNT_INACTIVE"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenTypeMismatch):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"})

	default:
		logger.FromContext(c.Request.Context(), zap.L()).Error("unhandled service error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// bindJSON reports validator failures as 422 with one message per field and
// malformed bodies as 400.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:  "validation failed",
				Fields: validate.Messages(err),
			})
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// parseQueryUUID returns nil when the parameter is absent.
func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

// parseQueryDate reads a YYYY-MM-DD parameter as midnight in loc.
func parseQueryDate(c *gin.Context, key string, loc *time.Location) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must use YYYY-MM-DD"})
		return nil, false
	}
	return &d, true
}

func parseQueryBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be true or false"})
		return nil, false
	}
	return &b, true
}

func optional[T ~string](c *gin.Context, key string) *T {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

func parseNonNegative(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
