package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ignatzorin/arbiter-backend/internal/models"
)

// Голоса озвучки по персонам; неизвестная персона получает голос по умолчанию.
var personaVoices = map[string]string{
	models.PersonaMediator:      "EXAVITQu4vr4xnSDxMaL",
	models.PersonaAuthoritative: "onwK4e9ZLuTAKqWW03F9",
	models.PersonaComedic:       "TxGEqnHWrfWFTfGW9XjX",
}

const defaultVoiceID = "EXAVITQu4vr4xnSDxMaL"

// Битрейт, по которому оценивается длительность: аудио отдаётся как
// mp3 128 kbps, длительность не декодируется из самого потока.
const assumedBytesPerSecond = 16000.0

// Synthesis — результат синтеза речи.
type Synthesis struct {
	Audio                    []byte
	EstimatedDurationSeconds float64
}

// Synthesizer озвучивает текст через elevenlabs-совместимый API.
type Synthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSynthesizer создаёт клиента синтеза речи.
func NewSynthesizer(baseURL string) *Synthesizer {
	return &Synthesizer{
		baseURL: baseURL,
		apiKey:  os.Getenv("TTS_API_KEY"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// VoiceForPersona возвращает идентификатор голоса для персоны.
func VoiceForPersona(persona string) string {
	if voice, ok := personaVoices[persona]; ok {
		return voice
	}
	return defaultVoiceID
}

// Synthesize озвучивает текст выбранным голосом. Поток вычитывается целиком
// до возврата: вызывающий получает готовый буфер, частичной выдачи нет.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Synthesis, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("tts: baseURL не задан")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("tts: пустой текст")
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	payload := map[string]any{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(s.baseURL, "/") + "/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	if s.apiKey != "" {
		req.Header.Set("xi-api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tts: код ответа %d: %s", resp.StatusCode, string(data))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: пустой аудио поток")
	}

	return &Synthesis{
		Audio:                    audio,
		EstimatedDurationSeconds: EstimateDuration(len(audio)),
	}, nil
}

// EstimateDuration оценивает длительность по размеру буфера и фиксированному битрейту.
func EstimateDuration(byteLen int) float64 {
	return float64(byteLen) / assumedBytesPerSecond
}
