package adaptor

import (
	"net/http"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError writes err with its HTTP status and machine-readable
// code. Anything that is not an *apperror.Error becomes a 500.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	appErr := apperror.From(err)
	status := appErr.Status()

	if status >= http.StatusInternalServerError {
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
	} else {
		log.Warn(operation+" failed",
			zap.String("code", appErr.Code),
			zap.Error(err),
			zap.String("operation", operation))
	}

	var details any
	if len(appErr.Details) > 0 {
		details = appErr.Details
	}
	utils.ResponseError(w, status, appErr.Code, appErr.Message, details)
}

// actorFrom builds the caller identity set by AuthSession.
func actorFrom(r *http.Request) (usecase.Actor, bool) {
	info, ok := utils.GetAuthFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{UserID: info.UserID, Role: entity.UserRole(info.Role)}, true
}
