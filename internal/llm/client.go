// Package llm implements integration with Google's Gemini API. It
// generates the bot's conversational replies and drives the structured
// classification and scoring calls.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/leoedu/leobot/internal/config"
	"github.com/leoedu/leobot/internal/database"
)

// Engagement is the structured result of an engagement analysis.
type Engagement struct {
	Behavioral float64  `json:"engajamento_comportamental"`
	Emotional  float64  `json:"engajamento_emocional"`
	Cognitive  float64  `json:"engajamento_cognitivo"`
	RiskScore  float64  `json:"score_desmotivacao"`
	Evidence   []string `json:"observacoes_chave"`
	School     string   `json:"escola"`
	City       string   `json:"cidade"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
}

// Defaults applied when the model omits the location fields.
const (
	DefaultSchool = "Vista Alegre Park, Haras e Hípica"
	DefaultCity   = "João Pessoa"
	DefaultLat    = -7.1195
	DefaultLon    = -34.845
)

// NeutralEngagement is the record persisted when scoring fails. Every
// analyzed sender must be represented, so failure yields a neutral
// entry rather than none.
func NeutralEngagement() *Engagement {
	return &Engagement{
		Behavioral: 0.5,
		Emotional:  0.5,
		Cognitive:  0.5,
		RiskScore:  0.5,
		Evidence:   []string{"Análise não disponível"},
		School:     DefaultSchool,
		City:       DefaultCity,
		Lat:        DefaultLat,
		Lon:        DefaultLon,
	}
}

// Client defines the model operations used by the gateway.
type Client interface {
	// GenerateReply produces Leo's answer for the conversation. The
	// newUser flag selects the introduction prompt; ragContext, when
	// non-empty, is injected ahead of the student's question.
	GenerateReply(ctx context.Context, turns []database.Turn, newUser bool, ragContext string) (string, error)

	// ClassifyAuthorIntent decides whether the message reads like a
	// teacher announcement, with a confidence in [0,1].
	ClassifyAuthorIntent(ctx context.Context, message string) (bool, float64, error)

	// ScoreEngagement analyzes a full conversation transcript.
	ScoreEngagement(ctx context.Context, turns []database.Turn) (*Engagement, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

// NewClient creates a Gemini client with the provided configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	logger := log.With("component", "llm_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.Model)

	return &sdkClient{
		genaiClient:   gi,
		log:           logger,
		contentConfig: baseCfg,
		modelName:     cfg.Model,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", apiErr.Code)
				time.Sleep(c.retryDelay)
				continue
			}

			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", apiErr.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return nil, err
}

func (c *sdkClient) GenerateReply(ctx context.Context, turns []database.Turn, newUser bool, ragContext string) (string, error) {
	c.log.DebugContext(ctx, "Generating reply", "turn_count", len(turns), "new_user", newUser, "has_rag_context", ragContext != "")

	var contents []*genai.Content
	for i, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Role == database.RoleAssistant {
			role = genai.RoleModel
		}

		text := t.Content
		if i == len(turns)-1 && role == genai.RoleUser && ragContext != "" {
			text = fmt.Sprintf("[CONTEXTO DOS DOCUMENTOS DA ESCOLA]:\n%s\n\n[PERGUNTA DO ALUNO]: %s", ragContext, t.Content)
		}

		contents = append(contents, genai.NewContentFromText(text, role))
	}

	copyCfg := *c.contentConfig

	system := PromptReturningUser
	if newUser {
		system = PromptNewUser
	}
	copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}

	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini reply generation failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp, "GenerateReply")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

var authorIntentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_professor": {Type: genai.TypeBoolean, Description: "Whether the message reads like a teacher announcement."},
		"confidence":   {Type: genai.TypeNumber, Description: "Confidence in the classification, 0.0 to 1.0."},
		"reason":       {Type: genai.TypeString, Description: "Brief justification."},
	},
	Required: []string{"is_professor", "confidence", "reason"},
}

func (c *sdkClient) ClassifyAuthorIntent(ctx context.Context, message string) (bool, float64, error) {
	c.log.DebugContext(ctx, "Classifying author intent using JSON schema mode")

	contents := []*genai.Content{genai.NewContentFromText("Mensagem: "+message, genai.RoleUser)}

	copyCfg := *c.contentConfig
	copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: PromptAuthorClassifier}}}
	copyCfg.ResponseMIMEType = "application/json"
	copyCfg.ResponseSchema = authorIntentSchema

	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini author classification API call failed", "error", err)
		return false, 0, fmt.Errorf("failed to classify author intent: %w", err)
	}

	jsonText, err := c.extractTextFromResponse(ctx, resp, "ClassifyAuthorIntent")
	if err != nil {
		return false, 0, fmt.Errorf("failed to extract classification response: %w", err)
	}

	var result struct {
		IsProfessor bool    `json:"is_professor"`
		Confidence  float64 `json:"confidence"`
		Reason      string  `json:"reason"`
	}

	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse classification JSON from Gemini response", "error", err, "response_text", jsonText)
		return false, 0, fmt.Errorf("invalid classification JSON received: %w", err)
	}

	c.log.DebugContext(ctx, "Author intent classified", "is_professor", result.IsProfessor, "confidence", result.Confidence, "reason", result.Reason)

	return result.IsProfessor, result.Confidence, nil
}

var engagementSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"engajamento_comportamental": {Type: genai.TypeNumber, Description: "Score de 0.0 (passivo/não fez) a 1.0 (fez o quiz/participou)."},
		"engajamento_emocional":      {Type: genai.TypeNumber, Description: "Score de 0.0 (frustrado/entediado) a 1.0 (curioso/positivo)."},
		"engajamento_cognitivo":      {Type: genai.TypeNumber, Description: "Score de 0.0 (respostas superficiais) a 1.0 (fez perguntas profundas/críticas)."},
		"score_desmotivacao":         {Type: genai.TypeNumber, Description: "Score de risco de 0.0 (engajado) a 1.0 (alto risco de evasão)."},
		"observacoes_chave":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "1-2 frases exatas do aluno que justificam os scores."},
		"escola":                     {Type: genai.TypeString, Description: "Nome da escola/instituição."},
		"cidade":                     {Type: genai.TypeString, Description: "Cidade da escola, ex: João Pessoa."},
		"lat":                        {Type: genai.TypeNumber, Description: "Latitude da escola."},
		"lon":                        {Type: genai.TypeNumber, Description: "Longitude da escola."},
	},
	Required: []string{
		"engajamento_comportamental", "engajamento_emocional", "engajamento_cognitivo",
		"score_desmotivacao", "observacoes_chave", "escola", "cidade", "lat", "lon",
	},
}

func (c *sdkClient) ScoreEngagement(ctx context.Context, turns []database.Turn) (*Engagement, error) {
	c.log.DebugContext(ctx, "Scoring engagement using JSON schema mode", "turn_count", len(turns))

	var sb strings.Builder
	sb.WriteString("Analise esta conversa:\n\n")

	for _, t := range turns {
		speaker := "Aluno"
		if t.Role == database.RoleAssistant {
			speaker = "Leo"
		}

		sb.WriteString(speaker + ": " + t.Content + "\n")
	}

	contents := []*genai.Content{genai.NewContentFromText(sb.String(), genai.RoleUser)}

	copyCfg := *c.contentConfig
	copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: PromptEngagementAnalyst}}}
	copyCfg.ResponseMIMEType = "application/json"
	copyCfg.ResponseSchema = engagementSchema

	resp, err := c.generateContentWithRetries(ctx, contents, &copyCfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini engagement scoring API call failed", "error", err)
		return nil, fmt.Errorf("failed to score engagement: %w", err)
	}

	jsonText, err := c.extractTextFromResponse(ctx, resp, "ScoreEngagement")
	if err != nil {
		return nil, fmt.Errorf("failed to extract engagement response: %w", err)
	}

	var result Engagement
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse engagement JSON from Gemini response", "error", err, "response_text", jsonText)
		return nil, fmt.Errorf("invalid engagement JSON received: %w", err)
	}

	applyEngagementDefaults(&result)

	c.log.DebugContext(ctx, "Engagement scored", "risk_score", result.RiskScore)

	return &result, nil
}

// applyEngagementDefaults fills in the location fields when the model
// leaves them empty and recomputes the risk score from the three
// pillars when it is missing.
func applyEngagementDefaults(e *Engagement) {
	if e.School == "" {
		e.School = DefaultSchool
	}

	if e.City == "" {
		e.City = DefaultCity
	}

	if e.Lat == 0 && e.Lon == 0 {
		e.Lat = DefaultLat
		e.Lon = DefaultLon
	}

	if e.RiskScore == 0 && (e.Behavioral != 0 || e.Emotional != 0 || e.Cognitive != 0) {
		e.RiskScore = 1.0 - (e.Behavioral+e.Emotional+e.Cognitive)/3
	}
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse, op string) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}

		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)

		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}

		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
		}

		return "", fmt.Errorf("%s returned empty content", op)
	}

	text := resp.Text()
	if text == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty", "operation", op)

		return "", fmt.Errorf("%s returned empty text", op)
	}

	return text, nil
}
