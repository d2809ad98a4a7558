package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	payload string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, prompt string, schema *ResponseSchema) (json.RawMessage, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

const generatedPayload = `{"questions":[
 {"prompt":"sin 30° = ?","options":["1/2","√3/2","1","0"],"answerIndex":0,"explanation":"Standard angle.","hint":"Think of the 30-60-90 triangle."},
 {"prompt":"cos 0° = ?","options":["0","1","1","-1"],"answerIndex":1,"explanation":"dup options","hint":""},
 {"prompt":"tan 45° = ?","options":["0","1","√3","undefined"],"answerIndex":1,"explanation":"Opposite equals adjacent.","hint":"Isosceles right triangle."}
]}`

func newQuestionService(env *testEnv, gen TextGenerator) *QuestionService {
	return NewQuestionService(env.questions, env.perf, gen, 10, 2)
}

func TestSeedQuestionsStoresValidItems(t *testing.T) {
	env := newTestEnv(t)
	gen := &fakeGenerator{payload: generatedPayload}
	svc := newQuestionService(env, gen)

	questions, err := svc.SeedQuestions(context.Background(), SeedQuestionsRequest{
		Subject:    "trigonometry",
		Topic:      "standard angles",
		Difficulty: 2,
		Count:      3,
	})
	require.NoError(t, err)

	// 选项重复的题目被丢弃
	require.Len(t, questions, 2)
	assert.Equal(t, "sin 30° = ?", questions[0].Prompt)
	assert.Equal(t, model.QuestionSourceAI, questions[0].Source)
	assert.NotZero(t, questions[0].ID)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "standard angles")

	stored, err := env.questions.FindBySubjectAndDifficulty(context.Background(), "trigonometry", 2, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, []string{"0", "1", "√3", "undefined"}, stored[0].Options)
}

func TestSeedQuestionsErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := SeedQuestionsRequest{Subject: "algebra", Topic: "linear", Difficulty: 1}

	_, err := newQuestionService(env, nil).SeedQuestions(ctx, req)
	assert.ErrorIs(t, err, util.ErrAIUnavailable)

	_, err = newQuestionService(env, &fakeGenerator{err: errors.New("boom")}).SeedQuestions(ctx, req)
	assert.ErrorIs(t, err, util.ErrQuestionGeneration)

	_, err = newQuestionService(env, &fakeGenerator{payload: `{"questions":[]}`}).SeedQuestions(ctx, req)
	assert.ErrorIs(t, err, util.ErrQuestionGeneration)

	req.Subject = "history"
	_, err = newQuestionService(env, &fakeGenerator{payload: generatedPayload}).SeedQuestions(ctx, req)
	assert.ErrorIs(t, err, util.ErrInvalidSubject)
}

func TestNextQuestionsFollowsCurrentDifficulty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "asha")
	svc := newQuestionService(env, nil)

	require.NoError(t, env.questions.CreateBatch(ctx, []model.Question{
		{Subject: "algebra", Difficulty: 2, Prompt: "x+1=2", Options: []string{"1", "2", "3", "4"}, Source: model.QuestionSourceSeed},
		{Subject: "algebra", Difficulty: 3, Prompt: "2x=6", Options: []string{"1", "2", "3", "4"}, AnswerIndex: 2, Source: model.QuestionSourceSeed},
	}))

	questions, difficulty, err := svc.NextQuestions(ctx, user.ID, "algebra", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, difficulty)
	require.Len(t, questions, 1)
	assert.Equal(t, "x+1=2", questions[0].Prompt)

	req := SubmitResultRequest{Subject: "algebra", Correct: true, ResponseTimeMs: 5000}
	for i := 0; i < 2; i++ {
		_, err := env.submission.Submit(ctx, user.ID, req)
		require.NoError(t, err)
	}

	questions, difficulty, err = svc.NextQuestions(ctx, user.ID, "algebra", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, difficulty)
	require.Len(t, questions, 1)
	assert.Equal(t, "2x=6", questions[0].Prompt)
}

func newOpenAIServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAIService(srv *httptest.Server) *AIService {
	return NewAIService(config.AIConfig{
		BaseURL:        srv.URL + "/v1",
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 5,
	})
}

func TestAIServiceGenerateJSON(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK, generatedPayload)

	raw, err := newTestAIService(srv).GenerateJSON(context.Background(), "system", "prompt", questionSchema)
	require.NoError(t, err)

	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Len(t, payload.Questions, 3)
}

func TestAIServiceRejectsSchemaMismatch(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK, `{"questions":[{"prompt":"x","options":["a"],"answerIndex":7,"explanation":"","hint":""}]}`)

	_, err := newTestAIService(srv).GenerateJSON(context.Background(), "system", "prompt", questionSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestAIServiceRateLimited(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusTooManyRequests, "")

	_, err := newTestAIService(srv).GenerateJSON(context.Background(), "system", "prompt", nil)
	assert.ErrorIs(t, err, ErrAIRateLimited)
}

func TestNewAIServiceWithoutKey(t *testing.T) {
	assert.Nil(t, NewAIService(config.AIConfig{Model: "x"}))
}
