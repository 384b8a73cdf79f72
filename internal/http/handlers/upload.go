package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/access"
	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/ingest"
	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// maxUploadBytes caps accepted photo uploads.
const maxUploadBytes = 7 * 1000 * 1000

// UploadHandler serves the photo entry path. Photo analysis is gated behind
// an active trial or subscription.
type UploadHandler struct {
	db        *gorm.DB
	files     *uploads.Store
	ingest    *ingest.Store
	estimator ai.Estimator
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(db *gorm.DB, files *uploads.Store, ingestStore *ingest.Store, estimator ai.Estimator) *UploadHandler {
	return &UploadHandler{db: db, files: files, ingest: ingestStore, estimator: estimator}
}

// Post accepts a multipart photo, runs vision analysis and stores the result.
func (h *UploadHandler) Post(c *gin.Context) {
	telegramID := auth.TelegramID(c)

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("telegram_id = ?", telegramID).
		First(&user).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}
	if !access.HasPremium(user, time.Now().UTC()) {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "subscription required"})
		return
	}

	kind := ai.PhotoKind(c.DefaultPostForm("type", string(ai.PhotoMeal)))
	if kind != ai.PhotoMeal && kind != ai.PhotoReceipt {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'meal' or 'receipt'"})
		return
	}

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is unreadable"})
		return
	}
	defer file.Close()

	content, errRead := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is unreadable"})
		return
	}
	if len(content) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	photoURL, errSave := h.files.Save(content, fileHeader.Filename)
	if errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo failed"})
		return
	}

	result := h.estimator.ParsePhoto(c.Request.Context(), base64.StdEncoding.EncodeToString(content), kind)
	items, usedTime, errAdd := h.ingest.AddPhotoItems(c.Request.Context(), telegramID, kind, result, photoURL)
	if errAdd != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save meal failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"inferred_type": kind,
		"used_time":     usedTime,
		"photo_url":     photoURL,
		"items":         items,
	})
}
