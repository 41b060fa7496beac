package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dreamstudio/backend/internal/types"
)

// SetupTestDB opens a private in-memory database migrated with the full
// schema. Each call gets its own database, so tests stay independent.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&types.GoalType{},
		&types.Goal{},
		&types.QuizQuestion{},
		&types.Verification{},
		&types.VerificationPhoto{},
		&types.QuizAnswerInput{},
		&types.TaskRun{},
	))
	return db
}
