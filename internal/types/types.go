package types

import (
	"encoding/json"
	"fmt"
	"time"
)

type BlockType string

const (
	BlockTypePreprocessing  BlockType = "preprocessing"
	BlockTypeAIGeneration   BlockType = "ai-generation"
	BlockTypePostprocessing BlockType = "postprocessing"
	BlockTypeProcessing     BlockType = "processing"
)

type BlockName string

const (
	BlockCropResize   BlockName = "crop-resize"
	BlockAIGeneration BlockName = "ai-generation"
	BlockFilters      BlockName = "filters"
	BlockQuizScoring  BlockName = "quiz-scoring"
)

type ImageUsageMode string

const (
	ImageUsageNone      ImageUsageMode = "none"
	ImageUsageReference ImageUsageMode = "reference"
	ImageUsageEdit      ImageUsageMode = "edit"
)

type ImageSource string

const (
	ImageSourceSelfie        ImageSource = "selfie"
	ImageSourceURL           ImageSource = "url"
	ImageSourceUpload        ImageSource = "upload"
	ImageSourceAIBlockOutput ImageSource = "ai-block-output"
)

// PipelineBlock is one configured step of an animation's pipeline. Config is
// decoded into exactly one variant, selected by BlockName, so downstream code
// never has to probe optional fields that only exist for some block kinds.
type PipelineBlock struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	BlockName BlockName `json:"blockName"`
	Order     int       `json:"order"`

	CropResize   *CropResizeConfig   `json:"-"`
	AIGeneration *AIGenerationConfig `json:"-"`
	Filters      *FiltersConfig      `json:"-"`
	QuizScoring  *QuizScoringConfig  `json:"-"`
}

func (b *PipelineBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Type      BlockType       `json:"type"`
		BlockName BlockName       `json:"blockName"`
		Order     int             `json:"order"`
		Config    json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.ID = raw.ID
	b.Type = raw.Type
	b.BlockName = raw.BlockName
	b.Order = raw.Order

	if len(raw.Config) == 0 {
		raw.Config = []byte("{}")
	}

	switch raw.BlockName {
	case BlockCropResize:
		b.CropResize = &CropResizeConfig{}
		return json.Unmarshal(raw.Config, b.CropResize)
	case BlockAIGeneration:
		b.AIGeneration = &AIGenerationConfig{}
		return json.Unmarshal(raw.Config, b.AIGeneration)
	case BlockFilters:
		b.Filters = &FiltersConfig{}
		return json.Unmarshal(raw.Config, b.Filters)
	case BlockQuizScoring:
		b.QuizScoring = &QuizScoringConfig{}
		return json.Unmarshal(raw.Config, b.QuizScoring)
	default:
		return fmt.Errorf("unknown block name: %s", raw.BlockName)
	}
}

func (b PipelineBlock) MarshalJSON() ([]byte, error) {
	var config interface{}
	switch b.BlockName {
	case BlockCropResize:
		config = b.CropResize
	case BlockAIGeneration:
		config = b.AIGeneration
	case BlockFilters:
		config = b.Filters
	case BlockQuizScoring:
		config = b.QuizScoring
	}

	return json.Marshal(struct {
		ID        string      `json:"id"`
		Type      BlockType   `json:"type"`
		BlockName BlockName   `json:"blockName"`
		Order     int         `json:"order"`
		Config    interface{} `json:"config,omitempty"`
	}{b.ID, b.Type, b.BlockName, b.Order, config})
}

// CropResizeConfig describes a deterministic geometric transform.
// Format "original" passes the buffer through untouched; every other format
// requires Dimensions (the short edge in pixels).
type CropResizeConfig struct {
	Format     string `json:"format"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type AIGenerationConfig struct {
	ModelID         string           `json:"modelId"`
	PromptTemplate  string           `json:"promptTemplate"`
	ImageUsageMode  ImageUsageMode   `json:"imageUsageMode,omitempty"`
	ImageSource     ImageSource      `json:"imageSource,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	UploadName      string           `json:"uploadName,omitempty"`
	SourceBlockID   string           `json:"sourceBlockId,omitempty"`
	ReferenceImages []ReferenceImage `json:"referenceImages,omitempty"`
	AspectRatio     string           `json:"aspectRatio,omitempty"`
	Quality         string           `json:"quality,omitempty"`
}

// ReferenceImage is an extra image buffer fed to an AI-generation block as
// style or subject input, distinct from the block's own output.
type ReferenceImage struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Source        ImageSource `json:"source"`
	URL           string      `json:"url,omitempty"`
	SourceBlockID string      `json:"sourceBlockId,omitempty"`
	Order         int         `json:"order"`
}

type FiltersConfig struct {
	Filter string  `json:"filter"`
	Amount float64 `json:"amount,omitempty"`
}

type ScoringProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PromptValue string `json:"promptValue,omitempty"`
}

// QuizMapping awards points to a profile when the participant picked the
// given option for the given question.
type QuizMapping struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
	ProfileID  string `json:"profileId"`
	Points     int    `json:"points"`
}

type QuizScoringConfig struct {
	Profiles []ScoringProfile `json:"profiles"`
	Mappings []QuizMapping    `json:"mappings"`
}

type InputElement struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// InputCollection describes what the wizard gathers from a participant. The
// engine only consults it to check that a selfie-sourced AI block is
// satisfiable.
type InputCollection struct {
	Elements []InputElement `json:"elements"`
}

func (c InputCollection) HasSelfie() bool {
	for _, el := range c.Elements {
		if el.Type == "selfie" {
			return true
		}
	}
	return false
}

// ParticipantData is one submission's payload: form answers keyed by input
// element id, plus the optional selfie.
type ParticipantData struct {
	Email        string            `json:"email,omitempty"`
	FirstName    string            `json:"firstName,omitempty"`
	LastName     string            `json:"lastName,omitempty"`
	Answers      map[string]string `json:"answers,omitempty"`
	SelfieBase64 string            `json:"selfieBase64,omitempty"`
	SelfieURL    string            `json:"selfieUrl,omitempty"`
}

type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimit  ErrorCode = "RATE_LIMIT"
	ErrCodeProvider   ErrorCode = "PROVIDER_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// GenerationError is the structured error attached to a failed generation.
type GenerationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewGenerationError(code ErrorCode, format string, args ...interface{}) *GenerationError {
	return &GenerationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

type BlockResult struct {
	BlockID   string        `json:"blockId"`
	BlockName BlockName     `json:"blockName"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// PipelineResult is the outcome of running every block of one pipeline for
// one generation.
type PipelineResult struct {
	Success       bool
	FinalImage    []byte
	FinalPrompt   string
	Err           *GenerationError
	BlockResults  []BlockResult
	ExecutionTime time.Duration
}
