package services

import "errors"

// Errors returned by the pipeline services. Controllers map them onto codes.
var (
	ErrEmptyMessage   = errors.New("message body is empty")
	ErrTaskIDRequired = errors.New("taskId is required")
	ErrNeedNotFound   = errors.New("task not found")
	ErrNeedCompleted  = errors.New("task already completed")
	ErrNeedInvalidID  = errors.New("invalid need id")

	ErrMissionInvalidID     = errors.New("invalid mission id")
	ErrMissionNotFound      = errors.New("mission not found")
	ErrMissionNotActive     = errors.New("mission is no longer active")
	ErrMissionStatusInvalid = errors.New("unknown mission status")
	ErrStationInvalid       = errors.New("station type and name are required")

	ErrSourceInvalidID = errors.New("invalid source id")

	ErrRouteInvalidDepot = errors.New("depot with valid lat and lon is required")
	ErrRouteNoStops      = errors.New("at least one stop with valid lat and lon is required")
)
