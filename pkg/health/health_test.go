package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockHealther is a mock implementation of the Healther interface
type MockHealther struct {
	mock.Mock
}

func (m *MockHealther) IsHealthy() bool {
	args := m.Called()
	return args.Bool(0)
}

// createTestLogger creates a logger with observer for testing
func createTestLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.InfoLevel)
	return &logger.Logger{Logger: zap.New(core)}, recorded
}

func healther(healthy bool) *MockHealther {
	m := &MockHealther{}
	m.On("IsHealthy").Return(healthy)
	return m
}

func serve(checker *HealthChecker) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	checker.HealthCheck(w, req)
	return w
}

func TestHealthChecker_Register(t *testing.T) {
	testLogger, _ := createTestLogger()

	checker := NewHealthChecker(testLogger).
		Register("db", healther(true)).
		Register("cache", healther(true))

	assert.Len(t, checker.checks, 2)
	assert.Equal(t, "db", checker.checks[0].name)
	assert.Equal(t, "cache", checker.checks[1].name)
}

func TestHealthChecker_HealthCheck(t *testing.T) {
	t.Run("returns OK when no components registered", func(t *testing.T) {
		testLogger, _ := createTestLogger()

		w := serve(NewHealthChecker(testLogger))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("returns OK when all components are healthy", func(t *testing.T) {
		testLogger, logs := createTestLogger()
		db, cache := healther(true), healther(true)

		w := serve(NewHealthChecker(testLogger).Register("db", db).Register("cache", cache))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.Zero(t, logs.Len())
		db.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("returns Not OK and names every failing component", func(t *testing.T) {
		testLogger, logs := createTestLogger()
		db, cache, broker := healther(false), healther(true), healther(false)

		checker := NewHealthChecker(testLogger).
			Register("db", db).
			Register("cache", cache).
			Register("broker", broker)
		w := serve(checker)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "Not OK", w.Body.String())

		assert.Equal(t, 2, logs.Len())
		for _, entry := range logs.All() {
			assert.Equal(t, "health check failed", entry.Message)
			assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		}
		assert.Equal(t, "db", logs.All()[0].ContextMap()["component"])
		assert.Equal(t, "broker", logs.All()[1].ContextMap()["component"])

		db.AssertExpectations(t)
		cache.AssertExpectations(t)
		broker.AssertExpectations(t)
	})
}

func TestHealtherFunc(t *testing.T) {
	testLogger, _ := createTestLogger()

	checker := NewHealthChecker(testLogger).Register("fn", HealtherFunc(func() bool { return false }))

	assert.Equal(t, []string{"fn"}, checker.Failing())
}
