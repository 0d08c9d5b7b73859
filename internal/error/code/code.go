package code

// HTTP status codes.
const (
	// StatusOK - 200: success.
	StatusOK = 200
	// StatusBadRequest - 400: invalid request parameters.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: unauthorized.
	StatusUnauthorized = 401
	// StatusForbidden - 403: forbidden.
	StatusForbidden = 403
	// StatusNotFound - 404: resource does not exist.
	StatusNotFound = 404
	// StatusConflict - 409: state changed underneath the request.
	StatusConflict = 409
	// StatusInternalServerError - 500: internal server error.
	StatusInternalServerError = 500
	// StatusTooManyRequests - 429: too many requests.
	StatusTooManyRequests = 429
	// StatusServiceUnavailable - 503: a backend is down.
	StatusServiceUnavailable = 503
)

// General error codes (100xxx).
const (
	// ErrSuccess - 200: success.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: unknown error.
	ErrUnknown
	// ErrBind - 400: request binding error.
	ErrBind
	// ErrValidation - 400: request validation error.
	ErrValidation
	// ErrTokenInvalid - 401: invalid token.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: rate limited.
	ErrTooManyRequests
	// ErrForbidden - 403: role may not perform the operation.
	ErrForbidden
	// ErrInvalidSignature - 403: webhook signature mismatch.
	ErrInvalidSignature
)

// Task and need error codes (101xxx).
const (
	// ErrTaskIDRequired - 400: taskId missing.
	ErrTaskIDRequired int = iota + 101000
	// ErrTaskNotFound - 404: need does not exist.
	ErrTaskNotFound
	// ErrTaskCompleted - 409: need already completed.
	ErrTaskCompleted
	// ErrNeedInvalidID - 400: malformed need id.
	ErrNeedInvalidID
	// ErrEmptyMessage - 400: inbound message without body.
	ErrEmptyMessage
)

// Mission error codes (102xxx).
const (
	// ErrMissionInvalidID - 400: malformed mission id.
	ErrMissionInvalidID int = iota + 102000
	// ErrMissionNotFound - 404: mission does not exist.
	ErrMissionNotFound
	// ErrMissionNotActive - 409: mission already completed or rerouted.
	ErrMissionNotActive
	// ErrMissionStatusInvalid - 400: unknown mission status filter.
	ErrMissionStatusInvalid
)

// Alert and station error codes (103xxx).
const (
	// ErrStationInvalid - 400: station type or name missing.
	ErrStationInvalid int = iota + 103000
	// ErrSourceInvalidID - 400: malformed alert source id.
	ErrSourceInvalidID
	// ErrAlertTransport - 503: no station transport reachable.
	ErrAlertTransport
)

// Routing error codes (104xxx).
const (
	// ErrRouteInvalidDepot - 400: depot missing or invalid.
	ErrRouteInvalidDepot int = iota + 104000
	// ErrRouteNoStops - 400: no usable stops.
	ErrRouteNoStops
)

// Database error codes (105xxx).
const (
	// ErrDatabase - 500: database error.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: record does not exist.
	ErrRecordNotFound
	// ErrAuditDisabled - 503: operation log not configured.
	ErrAuditDisabled
)
