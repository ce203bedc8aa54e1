package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/fraud"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type stubAlertRepo struct {
	alerts map[int64]*models.FraudAlert
}

func (s *stubAlertRepo) GetByID(_ context.Context, id int64) (*models.FraudAlert, error) {
	alert, ok := s.alerts[id]
	if !ok {
		return nil, models.ErrAlertNotFound
	}
	cp := *alert
	return &cp, nil
}

func (s *stubAlertRepo) GetAll(context.Context) ([]models.FraudAlert, error) {
	out := make([]models.FraudAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubAlertRepo) GetByInvestigationStatus(_ context.Context, status string) ([]models.FraudAlert, error) {
	var out []models.FraudAlert
	for _, a := range s.alerts {
		if a.InvestigationStatus == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubAlertRepo) GetByUserID(_ context.Context, userID int) ([]models.FraudAlert, error) {
	var out []models.FraudAlert
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubAlertRepo) UpdateInvestigationStatus(_ context.Context, id int64, status string) (*models.FraudAlert, error) {
	alert, ok := s.alerts[id]
	if !ok {
		return nil, models.ErrAlertNotFound
	}
	alert.InvestigationStatus = status
	cp := *alert
	return &cp, nil
}

func (s *stubAlertRepo) Stats(context.Context) (*models.FraudStats, error) {
	stats := &models.FraudStats{TotalAlerts: int64(len(s.alerts))}
	for _, a := range s.alerts {
		switch a.InvestigationStatus {
		case fraud.StatusPending:
			stats.PendingAlerts++
		case fraud.StatusConfirmedFraud:
			stats.ConfirmedFraud++
		}
	}
	return stats, nil
}

func newFraudRouter(repo *stubAlertRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewFraudHandler(fraud.NewService(repo), zap.NewNop())

	router := gin.New()
	router.GET("/fraud/alerts", h.ListAlerts)
	router.GET("/fraud/alerts/stats", h.GetStats)
	router.GET("/fraud/alerts/:id", h.GetAlert)
	router.PATCH("/fraud/alerts/:id", h.PatchAlert)
	return router
}

func seededRepo() *stubAlertRepo {
	return &stubAlertRepo{alerts: map[int64]*models.FraudAlert{
		1: {ID: 1, OrderID: "ORDER-AB12CD34", UserID: 1001, Amount: 12_500_000, InvestigationStatus: fraud.StatusPending},
		2: {ID: 2, OrderID: "ORDER-EF56AB78", UserID: 1002, Amount: 11_000_000, InvestigationStatus: fraud.StatusUnderReview},
	}}
}

func patchAlert(t *testing.T, router *gin.Engine, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.PatchAlertRequest{InvestigationStatus: status})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/fraud/alerts/"+id, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPatchAlertAdvancesLifecycle(t *testing.T) {
	repo := seededRepo()
	router := newFraudRouter(repo)

	w := patchAlert(t, router, "1", "under_review")
	require.Equal(t, http.StatusOK, w.Code)

	var alert models.FraudAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alert))
	assert.Equal(t, fraud.StatusUnderReview, alert.InvestigationStatus)
	assert.Equal(t, fraud.StatusUnderReview, repo.alerts[1].InvestigationStatus)
}

func TestPatchAlertUnknownStatusRejected(t *testing.T) {
	repo := seededRepo()
	router := newFraudRouter(repo)

	w := patchAlert(t, router, "1", "ESCALATED")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fraud.StatusPending, repo.alerts[1].InvestigationStatus, "failed patch must not mutate the alert")
}

func TestPatchAlertIllegalTransitionRejected(t *testing.T) {
	repo := seededRepo()
	router := newFraudRouter(repo)

	// PENDING cannot jump straight to CONFIRMED_FRAUD.
	w := patchAlert(t, router, "1", "CONFIRMED_FRAUD")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fraud.StatusPending, repo.alerts[1].InvestigationStatus)
}

func TestPatchAlertNotFound(t *testing.T) {
	router := newFraudRouter(seededRepo())

	w := patchAlert(t, router, "99", "UNDER_REVIEW")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchAlertInvalidID(t *testing.T) {
	router := newFraudRouter(seededRepo())

	w := patchAlert(t, router, "abc", "UNDER_REVIEW")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAlert(t *testing.T) {
	router := newFraudRouter(seededRepo())

	req := httptest.NewRequest(http.MethodGet, "/fraud/alerts/2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var alert models.FraudAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alert))
	assert.Equal(t, "ORDER-EF56AB78", alert.OrderID)
}

func TestListAlertsFilteredByStatus(t *testing.T) {
	router := newFraudRouter(seededRepo())

	req := httptest.NewRequest(http.MethodGet, "/fraud/alerts?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.FraudAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(1), alerts[0].ID)
}

func TestListAlertsUnknownStatusFilterRejected(t *testing.T) {
	router := newFraudRouter(seededRepo())

	req := httptest.NewRequest(http.MethodGet, "/fraud/alerts?status=bogus", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAlertsFilteredByUser(t *testing.T) {
	router := newFraudRouter(seededRepo())

	req := httptest.NewRequest(http.MethodGet, "/fraud/alerts?userId=1002", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.FraudAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, 1002, alerts[0].UserID)
}

func TestGetStats(t *testing.T) {
	router := newFraudRouter(seededRepo())

	req := httptest.NewRequest(http.MethodGet, "/fraud/alerts/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats models.FraudStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalAlerts)
	assert.Equal(t, int64(1), stats.PendingAlerts)
}
