package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID    uint `gorm:"primaryKey"`
	Title string
}

func TestInstrumentGorm(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	cfg := DefaultDBTracingConfig()
	cfg.DBSystem = "sqlite"
	cfg.TracerProvider = tp
	require.NoError(t, InstrumentGorm(db, cfg, zaptest.NewLogger(t)))

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Title: "Shrimp and grits"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	require.Len(t, rows, 1)
	ended := recorder.Ended()
	assert.GreaterOrEqual(t, len(ended), 3, "request span plus one span per statement")
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.False(t, cfg.IncludeVariables)
	assert.Nil(t, cfg.TracerProvider)
}
