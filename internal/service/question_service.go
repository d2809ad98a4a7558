package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/util"
	"focusmath_backend/pkg/logger"
	"focusmath_backend/pkg/monitoring"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	optionsPerQuestion  = 4
	defaultQuestionList = 10
)

type SeedQuestionsRequest struct {
	Subject    string `json:"subject" binding:"required"`
	Topic      string `json:"topic" binding:"required,max=100"`
	Difficulty int    `json:"difficulty" binding:"required,min=1,max=5"`
	Count      int    `json:"count" binding:"omitempty,min=1"`
}

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	PerfRepo     *repository.PerformanceRepository
	Generator    TextGenerator
	MaxQuestions int

	// 没有作答统计时使用的难度，随配置热更新
	defaultLevel atomic.Int32
}

func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	perfRepo *repository.PerformanceRepository,
	generator TextGenerator,
	maxQuestions int,
	defaultLevel int,
) *QuestionService {
	if maxQuestions <= 0 {
		maxQuestions = 10
	}
	s := &QuestionService{
		QuestionRepo: questionRepo,
		PerfRepo:     perfRepo,
		Generator:    generator,
		MaxQuestions: maxQuestions,
	}
	s.SetDefaultLevel(defaultLevel)
	return s
}

func (s *QuestionService) SetDefaultLevel(level int) {
	s.defaultLevel.Store(int32(level))
}

func (s *QuestionService) DefaultLevel() int {
	return int(s.defaultLevel.Load())
}

var questionSchema = &ResponseSchema{
	Name: "quiz-questions",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"prompt", "options", "answerIndex", "explanation", "hint"},
					"properties": map[string]any{
						"prompt": map[string]any{"type": "string", "minLength": 1},
						"options": map[string]any{
							"type":     "array",
							"minItems": optionsPerQuestion,
							"maxItems": optionsPerQuestion,
							"items":    map[string]any{"type": "string", "minLength": 1},
						},
						"answerIndex": map[string]any{"type": "integer", "minimum": 0, "maximum": optionsPerQuestion - 1},
						"explanation": map[string]any{"type": "string"},
						"hint":        map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

type generatedQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation"`
	Hint        string   `json:"hint"`
}

const questionSystemPrompt = "You write short multiple-choice math questions for Class 11-12 students " +
	"who benefit from focused, bite-sized practice. Keep each prompt under 40 words, " +
	"give exactly four distinct options, one correct answer, a one-sentence hint and a brief explanation. " +
	"Respond with JSON only."

// SeedQuestions 调用模型生成题目并入库
func (s *QuestionService) SeedQuestions(ctx context.Context, req SeedQuestionsRequest) ([]model.Question, error) {
	subject, err := normalizeSubject(req.Subject)
	if err != nil {
		return nil, err
	}
	if s.Generator == nil {
		return nil, util.ErrAIUnavailable
	}

	count := req.Count
	if count <= 0 {
		count = 5
	}
	if count > s.MaxQuestions {
		count = s.MaxQuestions
	}

	prompt := fmt.Sprintf(
		"Create %d questions on the subject %q, topic %q, at difficulty %d on a scale of 1 (easiest) to 5 (hardest).",
		count, subject, strings.TrimSpace(req.Topic), req.Difficulty,
	)

	raw, err := s.Generator.GenerateJSON(ctx, questionSystemPrompt, prompt, questionSchema)
	if err != nil {
		logger.Log.Error("question generation failed", zap.String("subject", subject), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", util.ErrQuestionGeneration, err)
	}

	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrQuestionGeneration, err)
	}

	questions := make([]model.Question, 0, len(payload.Questions))
	for _, g := range payload.Questions {
		if !validGenerated(g) {
			logger.Log.Warn("dropping malformed generated question", zap.String("prompt", g.Prompt))
			continue
		}
		questions = append(questions, model.Question{
			Subject:     subject,
			Topic:       strings.TrimSpace(req.Topic),
			Difficulty:  req.Difficulty,
			Prompt:      strings.TrimSpace(g.Prompt),
			Options:     g.Options,
			AnswerIndex: g.AnswerIndex,
			Explanation: g.Explanation,
			Hint:        g.Hint,
			Source:      model.QuestionSourceAI,
		})
		if len(questions) == count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no usable questions in response", util.ErrQuestionGeneration)
	}

	if err := s.QuestionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, err
	}

	monitoring.QuestionsGeneratedCounter.WithLabelValues(subject).Add(float64(len(questions)))
	logger.Log.Info("questions seeded",
		zap.String("subject", subject),
		zap.Int("difficulty", req.Difficulty),
		zap.Int("count", len(questions)),
	)
	return questions, nil
}

// NextQuestions 按用户当前难度取题，没有统计记录时使用默认难度
func (s *QuestionService) NextQuestions(ctx context.Context, userID uint, subjectIn string, limit int) ([]model.Question, int, error) {
	subject, err := normalizeSubject(subjectIn)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 50 {
		limit = defaultQuestionList
	}

	difficulty := s.DefaultLevel()
	perf, err := s.PerfRepo.FindByUserAndSubject(ctx, userID, subject)
	switch {
	case err == nil:
		difficulty = perf.DifficultyLevel
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, 0, err
	}

	questions, err := s.QuestionRepo.FindBySubjectAndDifficulty(ctx, subject, difficulty, limit)
	if err != nil {
		return nil, 0, err
	}
	return questions, difficulty, nil
}

func validGenerated(g generatedQuestion) bool {
	if strings.TrimSpace(g.Prompt) == "" || len(g.Options) != optionsPerQuestion {
		return false
	}
	if g.AnswerIndex < 0 || g.AnswerIndex >= len(g.Options) {
		return false
	}
	seen := make(map[string]bool, len(g.Options))
	for _, o := range g.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" || seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}

func normalizeSubject(s string) (string, error) {
	subject := strings.ToLower(strings.TrimSpace(s))
	if !model.IsValidSubject(subject) {
		return "", util.ErrInvalidSubject
	}
	return subject, nil
}
