package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/service"
)

func queueTestContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	req.Header.Set("X-Till-ID", "till-1")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", TenantID: "t1", Role: models.RoleCashier})
	return c, w
}

func TestQueueHandlerSnapshotEmpty(t *testing.T) {
	queueSvc := service.NewQueueService(nil, 0, nil, zap.NewNop())
	handler := NewQueueHandler(queueSvc)

	c, w := queueTestContext(t, http.MethodGet, "/queue")
	handler.Snapshot(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"till_id":"till-1"`)
}

func TestQueueHandlerAdvance(t *testing.T) {
	queueSvc := service.NewQueueService(nil, 0, nil, zap.NewNop())
	_, err := queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s1", FullName: "Achieng Mary"}})
	require.NoError(t, err)
	_, err = queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s2", FullName: "Baraka John"}})
	require.NoError(t, err)
	handler := NewQueueHandler(queueSvc)

	c, w := queueTestContext(t, http.MethodPost, "/queue/advance")
	handler.Advance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"s2"`)

	c, w = queueTestContext(t, http.MethodPost, "/queue/advance")
	handler.Advance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"next":null`)
}

func TestQueueHandlerSelectConflict(t *testing.T) {
	queueSvc := service.NewQueueService(nil, 0, nil, zap.NewNop())
	_, err := queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s1"}})
	require.NoError(t, err)
	_, err = queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s2"}})
	require.NoError(t, err)
	handler := NewQueueHandler(queueSvc)

	// s1 was promoted on enqueue, so selecting s2 conflicts.
	c, w := queueTestContext(t, http.MethodPost, "/queue/s2/select")
	c.Params = gin.Params{{Key: "studentId", Value: "s2"}}
	handler.Select(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestQueueHandlerSelectAfterRelease(t *testing.T) {
	queueSvc := service.NewQueueService(nil, 0, nil, zap.NewNop())
	_, err := queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s1"}})
	require.NoError(t, err)
	_, err = queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s2"}})
	require.NoError(t, err)
	require.NoError(t, queueSvc.Release("till-1"))
	handler := NewQueueHandler(queueSvc)

	c, w := queueTestContext(t, http.MethodPost, "/queue/s2/select")
	c.Params = gin.Params{{Key: "studentId", Value: "s2"}}
	handler.Select(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processing"`)
}

func TestQueueHandlerRemove(t *testing.T) {
	queueSvc := service.NewQueueService(nil, 0, nil, zap.NewNop())
	_, err := queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s1"}})
	require.NoError(t, err)
	_, err = queueSvc.Enqueue("till-1", &models.ResolvedStudent{Student: models.Student{ID: "s2"}})
	require.NoError(t, err)
	handler := NewQueueHandler(queueSvc)

	c, w := queueTestContext(t, http.MethodDelete, "/queue/s2")
	c.Params = gin.Params{{Key: "studentId", Value: "s2"}}
	handler.Remove(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)

	snapshot := queueSvc.Snapshot("till-1")
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, "s1", snapshot.Entries[0].StudentID)
}
