package processors

import (
	"testing"
	"time"

	"cartpilot/internal/config"
	"cartpilot/internal/database"
	"cartpilot/internal/events"
	"cartpilot/internal/logger"
	"cartpilot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testProcessor(t *testing.T) (*EventProcessor, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ClickEvent{}))

	cfg := &config.Config{LogLevel: "error"}
	return NewEventProcessor(cfg, logger.New("error"), &database.Database{DB: db}), db
}

func TestProcessRecordsInteractions(t *testing.T) {
	processor, db := testProcessor(t)

	event := events.WidgetEvent{
		Type:       "widget.click",
		CartToken:  "tok",
		ProductID:  "10",
		ShopDomain: "shop.example.com",
		Data:       map[string]interface{}{"position": 1},
		Timestamp:  time.Now(),
	}
	require.NoError(t, processor.Process(event))

	var records []models.ClickEvent
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, "widget.click", records[0].EventType)
	require.NotNil(t, records[0].CartToken)
	assert.Equal(t, "tok", *records[0].CartToken)
	require.NotNil(t, records[0].Metadata)
	assert.Contains(t, *records[0].Metadata, "position")
}

func TestProcessSkipsUnknownTypes(t *testing.T) {
	processor, db := testProcessor(t)

	require.NoError(t, processor.Process(events.WidgetEvent{Type: "something.else"}))

	var count int64
	db.Model(&models.ClickEvent{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
