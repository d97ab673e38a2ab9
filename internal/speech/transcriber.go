package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// Transcription — результат распознавания речи.
type Transcription struct {
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// Transcriber выполняет распознавание речи через whisper-совместимый API.
type Transcriber struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewTranscriber создаёт клиента распознавания речи.
func NewTranscriber(baseURL, model string) *Transcriber {
	apiKey := os.Getenv("STT_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("AI_API_KEY")
	}

	if model == "" {
		model = "whisper-1"
	}

	return &Transcriber{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Transcribe отправляет аудио буфер с подсказкой mime-типа и возвращает
// расшифровку с опциональными языком и длительностью.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcription, error) {
	if t.baseURL == "" {
		return nil, fmt.Errorf("stt: baseURL не задан")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileNameForMime(mimeType)+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}

	if err := writer.WriteField("model", t.model); err != nil {
		return nil, err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(t.baseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("stt: код ответа %d: %s", resp.StatusCode, string(data))
	}

	var result Transcription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("stt: пустая расшифровка")
	}

	return &result, nil
}

// fileNameForMime подбирает имя файла по mime-типу: провайдер определяет
// формат по расширению.
func fileNameForMime(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/wav", "audio/x-wav":
		return "audio.wav"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "audio.m4a"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.bin"
	}
}
