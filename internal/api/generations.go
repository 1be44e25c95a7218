package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/repository"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/fileuploader"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sasExpiry = 60 * time.Minute

type createGenerationRequest struct {
	AnimationID     string                `json:"animationId" binding:"required"`
	ParticipantData types.ParticipantData `json:"participantData"`
}

// CreateGeneration records a submission in pending state. Running it is a
// separate call so the ingestion boundary stays fire-and-forget.
func CreateGeneration(c *gin.Context) {
	a := getApp(c)

	var req createGenerationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	animationID, err := uuid.Parse(req.AnimationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid animation id"})
		return
	}

	if _, err := a.AnimationRepository.GetByID(c.Request.Context(), animationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "animation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	generation, err := a.GenerationRepository.Create(c.Request.Context(), &models.Generation{
		AnimationID:     animationID,
		ParticipantData: req.ParticipantData,
		Status:          models.GenerationStatusPending,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": generation.ID, "status": generation.Status})
}

// RunGeneration triggers the orchestrator for a pending generation and
// returns immediately.
func RunGeneration(c *gin.Context) {
	a := getApp(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid generation id"})
		return
	}

	generation, err := a.GenerationRepository.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "generation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if generation.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{"message": "generation already finished", "status": generation.Status})
		return
	}

	// Detached from the request context: the run must outlive this request.
	go a.Orchestrator.Run(a.Context(), id)

	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": models.GenerationStatusProcessing})
}

// GetGeneration is the polling read path. Completed generations get a fresh
// time-limited download URL.
func GetGeneration(c *gin.Context) {
	a := getApp(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid generation id"})
		return
	}

	generation, err := a.GenerationRepository.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "generation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	response := gin.H{
		"id":         generation.ID,
		"status":     generation.Status,
		"emailSent":  generation.EmailSent,
		"emailError": generation.EmailError,
	}

	switch generation.Status {
	case models.GenerationStatusCompleted:
		response["imageUrl"] = generation.GeneratedImageURL
		if url, err := a.Storage().GetResultSasURL(c.Request.Context(), id.String(), sasExpiry); err == nil {
			response["downloadUrl"] = url
		} else {
			a.Logger.Warn("failed to mint download url", zap.String("generation_id", id.String()), zap.Error(err))
		}
	case models.GenerationStatusFailed:
		response["error"] = gin.H{
			"code":    generation.ErrorCode,
			"message": userMessage(types.ErrorCode(generation.ErrorCode)),
		}
	}

	c.JSON(http.StatusOK, response)
}

type uploadSelfieRequest struct {
	SelfieBase64 string `json:"selfieBase64" binding:"required"`
}

// UploadSelfie stores the participant's selfie under the generation's key.
func UploadSelfie(c *gin.Context) {
	a := getApp(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid generation id"})
		return
	}

	var req uploadSelfieRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	response := make(chan fileuploader.Result, 1)
	a.Uploader().UploadSelfie(c.Request.Context(), req.SelfieBase64, id.String(), response)

	result := <-response
	if result.Err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": result.Err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.URL})
}
