package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/pipeline"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/fileuploader"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/gin-gonic/gin"
)

type validateRequest struct {
	Pipeline        []types.PipelineBlock `json:"pipeline"`
	InputCollection types.InputCollection `json:"inputCollection"`
}

// ValidatePipeline runs the static configuration check, the same one the
// orchestrator applies before execution.
func ValidatePipeline(c *gin.Context) {
	var req validateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	result := pipeline.Validate(req.Pipeline, req.InputCollection)
	c.JSON(http.StatusOK, result)
}

type createAnimationRequest struct {
	Name            string                `json:"name" binding:"required"`
	Pipeline        []types.PipelineBlock `json:"pipeline"`
	InputCollection types.InputCollection `json:"inputCollection"`
	EmailSubject    string                `json:"emailSubject"`
	EmailTemplate   string                `json:"emailTemplate"`
}

// CreateAnimation saves an animation after validating its pipeline. A
// validation error rejects the save; warnings and info notes are returned
// alongside the created record.
func CreateAnimation(c *gin.Context) {
	a := getApp(c)

	var req createAnimationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	validation := pipeline.Validate(req.Pipeline, req.InputCollection)
	if validation.Level == pipeline.SeverityError {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"validation": validation})
		return
	}

	animation, err := a.AnimationRepository.Create(c.Request.Context(), &models.Animation{
		Name:            req.Name,
		Pipeline:        req.Pipeline,
		InputCollection: req.InputCollection,
		EmailSubject:    req.EmailSubject,
		EmailTemplate:   req.EmailTemplate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": animation.ID, "validation": validation})
}

// UploadReference stores an operator-provided reference image for use with
// imageSource=upload blocks.
func UploadReference(c *gin.Context) {
	a := getApp(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing file"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	defer content.Close()

	buffer, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	response := make(chan fileuploader.Result, 1)
	a.Uploader().UploadReference(c.Request.Context(), buffer, filepath.Ext(file.Filename), response)

	result := <-response
	if result.Err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": result.Err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.URL})
}
