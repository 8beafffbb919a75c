package services

import (
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"urna/internal/config"
	"urna/internal/testutil"
)

type testDeps struct {
	db  *gorm.DB
	log *zap.Logger
}

func newDeps(t *testing.T) *testDeps {
	t.Helper()
	return &testDeps{db: testutil.DB(t), log: testutil.Logger()}
}

func testConfig() *config.Config {
	return &config.Config{
		ParticipantSelection: config.SelecaoExplicita,
		QuorumComparison:     config.QuorumConfiguravel,
	}
}
