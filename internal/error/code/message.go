package code

// Error code to message mapping
var codeMessageMap = map[int]string{
	// general
	ErrSuccess:          "Success",
	ErrUnknown:          "Internal server error",
	ErrBind:             "Invalid request parameters",
	ErrValidation:       "Request validation failed",
	ErrTokenInvalid:     "Invalid or missing authentication token",
	ErrTooManyRequests:  "Too many requests, please try again later",
	ErrForbidden:        "Insufficient role for this operation",
	ErrInvalidSignature: "Invalid request signature",

	// tasks and needs
	ErrTaskIDRequired: "taskId is required",
	ErrTaskNotFound:   "Task not found",
	ErrTaskCompleted:  "Task is already completed",
	ErrNeedInvalidID:  "Invalid need id",
	ErrEmptyMessage:   "Message body is empty",

	// missions
	ErrMissionInvalidID:     "Invalid mission id",
	ErrMissionNotFound:      "Mission not found",
	ErrMissionNotActive:     "Mission is no longer active",
	ErrMissionStatusInvalid: "Unknown mission status",

	// alerts and stations
	ErrStationInvalid:  "Station type and name are required",
	ErrSourceInvalidID: "Invalid source id",
	ErrAlertTransport:  "Station alert transport unavailable",

	// routing
	ErrRouteInvalidDepot: "Depot with valid lat and lon is required",
	ErrRouteNoStops:      "At least one stop with valid lat and lon is required",

	// database
	ErrDatabase:       "Database error",
	ErrRecordNotFound: "Record not found",
	ErrAuditDisabled:  "Operation log is not configured",
}

// Error code to HTTP status mapping
var codeStatusMap = map[int]int{
	// general
	ErrSuccess:          StatusOK,
	ErrUnknown:          StatusInternalServerError,
	ErrBind:             StatusBadRequest,
	ErrValidation:       StatusBadRequest,
	ErrTokenInvalid:     StatusUnauthorized,
	ErrTooManyRequests:  StatusTooManyRequests,
	ErrForbidden:        StatusForbidden,
	ErrInvalidSignature: StatusForbidden,

	// tasks and needs
	ErrTaskIDRequired: StatusBadRequest,
	ErrTaskNotFound:   StatusNotFound,
	ErrTaskCompleted:  StatusConflict,
	ErrNeedInvalidID:  StatusBadRequest,
	ErrEmptyMessage:   StatusBadRequest,

	// missions
	ErrMissionInvalidID:     StatusBadRequest,
	ErrMissionNotFound:      StatusNotFound,
	ErrMissionNotActive:     StatusConflict,
	ErrMissionStatusInvalid: StatusBadRequest,

	// alerts and stations
	ErrStationInvalid:  StatusBadRequest,
	ErrSourceInvalidID: StatusBadRequest,
	ErrAlertTransport:  StatusServiceUnavailable,

	// routing
	ErrRouteInvalidDepot: StatusBadRequest,
	ErrRouteNoStops:      StatusBadRequest,

	// database
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,
	ErrAuditDisabled:  StatusServiceUnavailable,
}

// GetMessage returns the message for an error code
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "Internal server error"
}

// GetStatus returns the HTTP status for an error code
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
