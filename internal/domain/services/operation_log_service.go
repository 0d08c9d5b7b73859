package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"relief-http-service/internal/domain/models"
	"relief-http-service/pkg/logger"
)

const (
	defaultOperationLimit = 50
	maxOperationLimit     = 500
)

type actorKey struct{}

// WithActor tags ctx with who triggered an operation
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "system"
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}

type ipKey struct{}

// WithClientIP tags ctx with the caller address
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}

// InterfaceOperationLogService defines the audit log interface
type InterfaceOperationLogService interface {
	Record(ctx context.Context, opType, targetID string, success bool, details string)
	List(ctx context.Context, opType string, limit int) ([]models.OperationLog, error)
}

// OperationLogService writes audit entries through gorm
type OperationLogService struct {
	DB *gorm.DB
}

// NewOperationLogService creates an audit log service
func NewOperationLogService(db *gorm.DB) InterfaceOperationLogService {
	return &OperationLogService{DB: db}
}

// 1 Record writes one entry. Audit failures are logged and never surface to the caller.
func (s *OperationLogService) Record(ctx context.Context, opType, targetID string, success bool, details string) {
	entry := &models.OperationLog{
		OperationType: opType,
		TargetID:      targetID,
		Actor:         ActorFrom(ctx),
		Details:       details,
		Success:       success,
		Timestamp:     time.Now(),
		IPAddress:     clientIPFrom(ctx),
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Warning("[Audit] failed to record %s for %s: %v", opType, targetID, err)
	}
}

// 2 List returns the newest entries, optionally filtered by type
func (s *OperationLogService) List(ctx context.Context, opType string, limit int) ([]models.OperationLog, error) {
	if limit <= 0 {
		limit = defaultOperationLimit
	}
	if limit > maxOperationLimit {
		limit = maxOperationLimit
	}

	query := s.DB.WithContext(ctx).Model(&models.OperationLog{})
	if opType != "" {
		query = query.Where("operation_type = ?", opType)
	}

	var logs []models.OperationLog
	if err := query.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
