package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedProduct struct {
	ID    uint   `gorm:"primaryKey"`
	Title string `gorm:"size:200"`
	Slug  string `gorm:"size:200"`
}

func newTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedProduct{}))
	return db
}

func newSpanRecorder() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return tp, recorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestNewDBTracingPlugin_FillsDefaults(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)

	assert.Equal(t, 200*time.Millisecond, plugin.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", plugin.config.DBSystem)
	assert.NotNil(t, plugin.logger)
}

func TestDBTracingPlugin_Name(t *testing.T) {
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	assert.Equal(t, "db_tracing", plugin.Name())
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := newTracingTestDB(t)

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, db.Use(plugin))

	// Queries still work with nothing registered
	require.NoError(t, db.Create(&tracedProduct{Title: "Wireless Mouse", Slug: "wireless-mouse"}).Error)
}

func TestDBTracingPlugin_Enabled(t *testing.T) {
	db := newTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, db.Use(plugin))

	require.NoError(t, db.Create(&tracedProduct{Title: "Wireless Mouse", Slug: "wireless-mouse"}).Error)

	var found tracedProduct
	require.NoError(t, db.Where("slug = ?", "wireless-mouse").First(&found).Error)
	assert.Equal(t, "Wireless Mouse", found.Title)
}

func TestDBTracingPlugin_DoubleRegistration(t *testing.T) {
	db := newTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, db.Use(NewDBTracingPlugin(cfg, zap.NewNop())))

	// Second Use with the same plugin name is rejected by GORM
	assert.Error(t, db.Use(NewDBTracingPlugin(cfg, zap.NewNop())))
}

func TestAnnotateSpan_RowsAndTable(t *testing.T) {
	tp, recorder := newSpanRecorder()
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	db := newTracingTestDB(t)
	tx := db.Session(&gorm.Session{})
	tx.Statement.Context = ctx
	tx.Statement.RowsAffected = 5
	tx.Statement.Table = "products"

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	plugin.annotateSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, attr := range spans[0].Attributes() {
		attrs[attr.Key] = attr.Value
	}
	assert.Equal(t, int64(5), attrs["db.rows_affected"].AsInt64())
	assert.Equal(t, "products", attrs["db.sql.table"].AsString())
}

func TestAnnotateSpan_MarksErrors(t *testing.T) {
	tp, recorder := newSpanRecorder()
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	db := newTracingTestDB(t)
	tx := db.Session(&gorm.Session{})
	tx.Statement.Context = ctx
	tx.Error = errors.New("constraint violation")

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	plugin.annotateSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "constraint violation", spans[0].Status().Description)
}

func TestAnnotateSpan_RecordNotFoundIsNotAnError(t *testing.T) {
	tp, recorder := newSpanRecorder()
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")

	db := newTracingTestDB(t)
	tx := db.Session(&gorm.Session{})
	tx.Statement.Context = ctx
	tx.Error = gorm.ErrRecordNotFound

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	plugin.annotateSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_SlowQuery(t *testing.T) {
	tp, recorder := newSpanRecorder()
	ctx, span := tp.Tracer("test").Start(context.Background(), "db.query")
	ctx = WithQueryStartTime(ctx)
	time.Sleep(2 * time.Millisecond)

	db := newTracingTestDB(t)
	tx := db.Session(&gorm.Session{})
	tx.Statement.Context = ctx

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop())
	plugin.annotateSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	hasSlowEvent := false
	for _, event := range spans[0].Events() {
		if event.Name == "slow_query_warning" {
			hasSlowEvent = true
		}
	}
	assert.True(t, hasSlowEvent, "slow query event should be recorded")
}

func TestMarkStart_StampsContext(t *testing.T) {
	db := newTracingTestDB(t)
	tx := db.Session(&gorm.Session{})
	tx.Statement.Context = context.Background()

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	plugin.markStart(tx)

	start, ok := tx.Statement.Context.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}
