package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/database"
)

func TestOperationLogRecordAndList(t *testing.T) {
	pool, err := database.NewSQLitePool(filepath.Join(t.TempDir(), "oplog.db"))
	require.NoError(t, err)
	defer pool.Close()

	svc := NewOperationLogService(pool.GetDB())
	ctx := WithClientIP(WithActor(context.Background(), "manager-1"), "10.0.0.5")

	svc.Record(ctx, models.OpMissionDone, "m1", true, "reports=2")
	svc.Record(context.Background(), models.OpNeedIngested, "n1", true, "")
	svc.Record(ctx, models.OpMissionReroute, "m2", false, "station=City General")

	all, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.OpMissionReroute, all[0].OperationType)
	assert.False(t, all[0].Success)
	assert.Equal(t, "manager-1", all[0].Actor)
	assert.Equal(t, "10.0.0.5", all[0].IPAddress)
	assert.Equal(t, "system", all[1].Actor)

	done, err := svc.List(ctx, models.OpMissionDone, 10)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "m1", done[0].TargetID)

	limited, err := svc.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
