package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/db"
	"github.com/calstars/calories-backend/internal/ingest"
	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/summary"
	"github.com/calstars/calories-backend/internal/telegram"
	"github.com/calstars/calories-backend/internal/timewindow"
	"github.com/calstars/calories-backend/internal/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type stubEstimator struct {
	estimate ai.Estimate
	vision   ai.VisionResult
}

func (s stubEstimator) EstimateText(_ context.Context, _ string) ai.Estimate {
	return s.estimate
}

func (s stubEstimator) ParsePhoto(_ context.Context, _ string, _ ai.PhotoKind) ai.VisionResult {
	return s.vision
}

func newTestRouter(t *testing.T, estimator ai.Estimator) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	files, errFiles := uploads.NewStore(t.TempDir())
	if errFiles != nil {
		t.Fatalf("uploads store: %v", errFiles)
	}

	calc := timewindow.New(5)
	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:             conn,
		Resolver:       auth.NewResolver(conn, "", false),
		Summary:        summary.NewService(conn, calc),
		Ingest:         ingest.NewStore(conn, calc),
		Files:          files,
		Estimator:      estimator,
		Telegram:       telegram.NewClient(""),
		TZOffsetHours:  5,
		FrontendOrigin: "*",
	})
	return r, conn
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal request: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	return body
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProfileDefaults(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodGet, "/api/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["goal"].(float64) != 2000 {
		t.Fatalf("expected default goal 2000, got %v", body["goal"])
	}
	if body["tzOffset"].(float64) != 5 {
		t.Fatalf("expected tzOffset 5, got %v", body["tzOffset"])
	}
}

func TestAddMealThenDaySummary(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodPost, "/api/addmeal", map[string]any{
		"calories":    450,
		"description": "lunch",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/summary?period=day", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total"].(float64) != 450 {
		t.Fatalf("expected total 450, got %v", body["total"])
	}
	if body["remaining"].(float64) != 1550 {
		t.Fatalf("expected remaining 1550, got %v", body["remaining"])
	}
	items := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestSummaryRejectsUnknownPeriod(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodGet, "/api/summary?period=week", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAIAddStoresEveryItem(t *testing.T) {
	est := stubEstimator{estimate: ai.Estimate{
		Items: []ai.Item{
			{Name: "Borscht", Grams: 300, Kcal: 150},
			{Name: "Bread", Grams: 50, Kcal: 120},
		},
		TotalKcal: 270,
	}}
	r, conn := newTestRouter(t, est)

	w := doJSON(t, r, http.MethodPost, "/api/aiadd", map[string]any{"text": "borscht with bread"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["total_kcal"].(float64) != 270 {
		t.Fatalf("expected total 270, got %v", body["total_kcal"])
	}

	var count int64
	if errCount := conn.Model(&models.Meal{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count meals: %v", errCount)
	}
	if count != 2 {
		t.Fatalf("expected 2 meal rows, got %d", count)
	}
}

func TestAIAddRequiresText(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodPost, "/api/aiadd", map[string]any{"text": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	r, conn := newTestRouter(t, stubEstimator{})

	meal := models.Meal{TelegramID: 42, TS: time.Now().UTC(), Calories: 300}
	if errCreate := conn.Create(&meal).Error; errCreate != nil {
		t.Fatalf("seed meal: %v", errCreate)
	}

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/meal/%d", meal.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["deleted"].(float64) != 0 {
		t.Fatalf("expected cross-owner delete to touch 0 rows, got %v", body["deleted"])
	}

	var count int64
	if errCount := conn.Model(&models.Meal{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count meals: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected the meal to survive, got %d rows", count)
	}
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodDelete, "/api/meal/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func multipartPhoto(t *testing.T, kind string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if errField := mw.WriteField("type", kind); errField != nil {
		t.Fatalf("write field: %v", errField)
	}
	part, errPart := mw.CreateFormFile("file", "dinner.jpg")
	if errPart != nil {
		t.Fatalf("create form file: %v", errPart)
	}
	if _, errWrite := part.Write([]byte("jpeg-bytes")); errWrite != nil {
		t.Fatalf("write part: %v", errWrite)
	}
	if errClose := mw.Close(); errClose != nil {
		t.Fatalf("close writer: %v", errClose)
	}
	return buf, mw.FormDataContentType()
}

func TestUploadRequiresSubscription(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	body, contentType := multipartPhoto(t, "meal")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
}

func TestUploadStoresPhotoItems(t *testing.T) {
	est := stubEstimator{vision: ai.VisionResult{
		Items: []ai.Item{{Name: "Pasta", Grams: 250, Kcal: 400}},
	}}
	r, conn := newTestRouter(t, est)

	// Anonymous sessions resolve to ID 0; give that account an open trial.
	trialUntil := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339Nano)
	user := models.User{TelegramID: 0, DailyGoal: 2000, Plan: models.PlanTrial, TrialUntil: trialUntil}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	body, contentType := multipartPhoto(t, "meal")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["used_time"] != ingest.UsedTimeNow {
		t.Fatalf("expected used_time now, got %v", resp["used_time"])
	}
	if !strings.HasPrefix(resp["photo_url"].(string), uploads.PublicPrefix+"/") {
		t.Fatalf("unexpected photo url %v", resp["photo_url"])
	}

	var meal models.Meal
	if errFind := conn.First(&meal).Error; errFind != nil {
		t.Fatalf("load meal: %v", errFind)
	}
	if meal.ItemName != "Pasta" || meal.Calories != 400 || meal.Source != models.SourceVision {
		t.Fatalf("unexpected meal row: %+v", meal)
	}
}

func TestUploadRejectsUnknownType(t *testing.T) {
	r, conn := newTestRouter(t, stubEstimator{})

	trialUntil := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339Nano)
	user := models.User{TelegramID: 0, DailyGoal: 2000, Plan: models.PlanTrial, TrialUntil: trialUntil}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	body, contentType := multipartPhoto(t, "selfie")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubscriptionStatusForFreshAccount(t *testing.T) {
	r, conn := newTestRouter(t, stubEstimator{})

	trialUntil := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339Nano)
	user := models.User{TelegramID: 0, DailyGoal: 2000, Plan: models.PlanTrial, TrialUntil: trialUntil}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	w := doJSON(t, r, http.MethodGet, "/api/subscribe/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["plan"] != models.PlanTrial {
		t.Fatalf("expected trial plan, got %v", body["plan"])
	}
	if body["trial_days_left"].(float64) != 3 {
		t.Fatalf("expected 3 trial days left, got %v", body["trial_days_left"])
	}
}

func TestSubscribeCreateRequiresIdentity(t *testing.T) {
	r, _ := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodPost, "/api/subscribe/create", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous checkout, got %d", w.Code)
	}
}

func TestWebhookConfirmsPayment(t *testing.T) {
	r, conn := newTestRouter(t, stubEstimator{})

	update := map[string]any{
		"update_id": 7,
		"message": map[string]any{
			"from": map[string]any{"id": 777},
			"successful_payment": map[string]any{
				"currency":                   "XTR",
				"total_amount":               599,
				"invoice_payload":            "sub_monthly:777:1700000000",
				"telegram_payment_charge_id": "tg-charge",
			},
		},
	}
	w := doJSON(t, r, http.MethodPost, "/api/telegram/webhook", update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var user models.User
	if errFind := conn.Where("telegram_id = ?", 777).First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if user.Plan != models.PlanPro {
		t.Fatalf("expected pro plan, got %q", user.Plan)
	}
	renewsAt, errParse := time.Parse(time.RFC3339Nano, user.RenewsAt)
	if errParse != nil {
		t.Fatalf("parse renews_at: %v", errParse)
	}
	daysOut := time.Until(renewsAt).Hours() / 24
	if daysOut < 29 || daysOut > 31 {
		t.Fatalf("expected renews_at about 30 days out, got %.1f days", daysOut)
	}

	var payment models.Payment
	if errFind := conn.Where("telegram_id = ?", 777).First(&payment).Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if payment.Amount != 599 || payment.Currency != "XTR" || payment.Status != models.PaymentStatusPaid {
		t.Fatalf("unexpected payment row: %+v", payment)
	}
}

func TestWebhookIgnoresUnrelatedUpdates(t *testing.T) {
	r, conn := newTestRouter(t, stubEstimator{})

	w := doJSON(t, r, http.MethodPost, "/api/telegram/webhook", map[string]any{"update_id": 8})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var count int64
	if errCount := conn.Model(&models.Payment{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count payments: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no payment rows, got %d", count)
	}
}
