package services

import "context"

// Hooks carries the optional audit log and live event sinks shared by the
// pipeline services. Either may be nil.
type Hooks struct {
	Audit  InterfaceOperationLogService
	Events InterfaceEventHub
}

func (h Hooks) record(ctx context.Context, opType, targetID string, success bool, details string) {
	if h.Audit != nil {
		h.Audit.Record(ctx, opType, targetID, success, details)
	}
}

func (h Hooks) emit(eventType string, data interface{}) {
	if h.Events != nil {
		h.Events.Publish(eventType, data)
	}
}
