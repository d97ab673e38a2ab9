package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
)

func chatResponse(content string, citations []string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"citations": citations,
	}
}

func TestGenerateVerdict_ParsesModelResponse(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(chatResponse("Alex: fair point. Sam: also valid.\nVERDICT: tie", nil))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	result, err := client.GenerateVerdict(context.Background(), VerdictRequest{
		PersonAName: "Alex",
		PersonBName: "Sam",
		Persona:     models.PersonaMediator,
		Turns: []TranscriptTurn{
			{Speaker: models.SpeakerPersonA, SpeakerName: "Alex", Text: "I always do the dishes"},
			{Speaker: models.SpeakerPersonB, SpeakerName: "Sam", Text: "That's not true, I did them Tuesday"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, models.WinnerTie, result.Winner)
	assert.Equal(t, models.TieLabel, result.WinnerName)
	assert.Equal(t, "Alex: fair point. Sam: also valid.", result.Rationale)
	assert.False(t, result.ResearchPerformed)
	assert.Nil(t, result.Sources)

	// Системная инструкция включает оба имени и контракт формата.
	messages := captured["messages"].([]any)
	system := messages[0].(map[string]any)["content"].(string)
	assert.Contains(t, system, "Alex")
	assert.Contains(t, system, "Sam")
	assert.Contains(t, system, "VERDICT:")
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "Alex: \"I always do the dishes\"")
	// Без research флаг веб-поиска не отправляется.
	_, hasSearch := captured["web_search_options"]
	assert.False(t, hasSearch)
}

func TestGenerateVerdict_ResearchSendsSearchFlagAndKeepsCitations(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(chatResponse("итог\nVERDICT: Alex", []string{"https://example.com/src"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	result, err := client.GenerateVerdict(context.Background(), VerdictRequest{
		PersonAName:   "Alex",
		PersonBName:   "Sam",
		Persona:       models.PersonaAuthoritative,
		AllowResearch: true,
		Turns:         []TranscriptTurn{{SpeakerName: "Alex", Text: "довод"}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.SpeakerPersonA, result.Winner)
	assert.True(t, result.ResearchPerformed)
	assert.Equal(t, []string{"https://example.com/src"}, result.Sources)
	_, hasSearch := captured["web_search_options"]
	assert.True(t, hasSearch)
}

func TestGenerateVerdict_EmptyResponseFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("", nil))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.GenerateVerdict(context.Background(), VerdictRequest{
		PersonAName: "Alex", PersonBName: "Sam", Persona: models.PersonaMediator,
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsGenerationFailure(err))
}

func TestGenerateVerdict_UpstreamErrorIsGenerationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.GenerateVerdict(context.Background(), VerdictRequest{
		PersonAName: "Alex", PersonBName: "Sam", Persona: models.PersonaComedic,
	})

	assert.True(t, apperror.IsGenerationFailure(err))
}
