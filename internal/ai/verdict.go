package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
)

// TranscriptTurn — одна реплика расшифровки, подаваемая судье.
type TranscriptTurn struct {
	Speaker     string
	SpeakerName string
	Text        string
}

// VerdictRequest — вход генератора вердикта.
type VerdictRequest struct {
	PersonAName   string
	PersonBName   string
	Persona       string
	AllowResearch bool
	Turns         []TranscriptTurn
}

// VerdictResult — структурированный вердикт, извлечённый из свободного текста.
type VerdictResult struct {
	Winner            string
	WinnerName        string
	Rationale         string
	FullResponse      string
	ResearchPerformed bool
	Sources           []string
}

// Ограничение размера ответа по персонам: персона задаёт и тон, и длину.
var personaMaxTokens = map[string]int{
	models.PersonaMediator:      350,
	models.PersonaAuthoritative: 250,
	models.PersonaComedic:       400,
}

// GenerateVerdict отправляет расшифровку с инструкцией персоны и разбирает
// свободный ответ модели в структурированный вердикт. Ошибка удалённого
// вызова или пустой ответ фатальны для всего разбирательства.
func (c *Client) GenerateVerdict(ctx context.Context, req VerdictRequest) (*VerdictResult, error) {
	system := buildSystemInstruction(req.Persona, req.PersonAName, req.PersonBName)
	transcript := buildTranscript(req.Turns)

	maxTokens, ok := personaMaxTokens[req.Persona]
	if !ok {
		maxTokens = personaMaxTokens[models.PersonaMediator]
	}

	result, err := c.chatCompletion(ctx, system, transcript, maxTokens, req.AllowResearch)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGeneration, "не удалось получить вердикт")
	}

	winner, winnerName, rationale := parseVerdict(result.Content, req.PersonAName, req.PersonBName)

	sources := result.Citations
	if !req.AllowResearch {
		sources = nil
	}

	return &VerdictResult{
		Winner:            winner,
		WinnerName:        winnerName,
		Rationale:         rationale,
		FullResponse:      result.Content,
		ResearchPerformed: req.AllowResearch,
		Sources:           sources,
	}, nil
}

// buildTranscript собирает расшифровку: строка `Имя: "текст"` на каждую реплику,
// в порядке следования реплик.
func buildTranscript(turns []TranscriptTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: \"%s\"", t.SpeakerName, t.Text)
	}
	return b.String()
}

// buildSystemInstruction выбирает шаблон инструкции по персоне. Каждый шаблон
// включает оба имени и обязательный маркер формата VERDICT:.
func buildSystemInstruction(persona, personAName, personBName string) string {
	format := fmt.Sprintf(
		"Address each person directly with at most one short sentence per line, in the form \"Name: message\" (no more than 25 words per line). "+
			"Then finish with a final line in exactly this format: VERDICT: <label>, "+
			"where <label> is %s, %s, or Tie.", personAName, personBName)

	switch persona {
	case models.PersonaAuthoritative:
		return fmt.Sprintf(
			"You are a stern, no-nonsense judge settling an argument between %s and %s. "+
				"Be blunt and decisive, do not soften your ruling. Keep the whole reply brief. %s",
			personAName, personBName, format)
	case models.PersonaComedic:
		return fmt.Sprintf(
			"You are a stand-up comedian asked to settle an argument between %s and %s. "+
				"Be playful and tease both sides, but still pick a clear outcome. Keep the reply short and punchy. %s",
			personAName, personBName, format)
	default: // mediator
		return fmt.Sprintf(
			"You are a calm, fair mediator settling an argument between %s and %s. "+
				"Acknowledge both perspectives with empathy and keep the reply concise. %s",
			personAName, personBName, format)
	}
}

// parseVerdict извлекает победителя из свободного текста. Алгоритм:
// берётся текст после последнего маркера VERDICT: (без учёта регистра),
// обрезается и приводится к нижнему регистру; "tie"/"draw" — ничья; иначе
// метка сопоставляется с именем участника A (или литералами "person a" /
// "first person"), затем симметрично с участником B; порядок проверки
// A-прежде-B намеренный. Несопоставленная метка — ничья. Обоснование —
// исходный ответ без строки VERDICT: и всего, что после неё.
func parseVerdict(raw, personAName, personBName string) (winner, winnerName, rationale string) {
	lines := strings.Split(raw, "\n")

	verdictLine := -1
	label := ""
	for i, line := range lines {
		upper := strings.ToUpper(line)
		if idx := strings.LastIndex(upper, "VERDICT:"); idx != -1 {
			verdictLine = i
			label = line[idx+len("VERDICT:"):]
		}
	}

	if verdictLine == -1 {
		return models.WinnerTie, models.TieLabel, strings.TrimSpace(raw)
	}

	rationale = strings.TrimSpace(strings.Join(lines[:verdictLine], "\n"))
	label = strings.ToLower(strings.TrimSpace(label))

	switch {
	case strings.Contains(label, "tie") || strings.Contains(label, "draw"):
		return models.WinnerTie, models.TieLabel, rationale
	case matchesParty(label, personAName, "person a", "first person"):
		return models.SpeakerPersonA, personAName, rationale
	case matchesParty(label, personBName, "person b", "second person"):
		return models.SpeakerPersonB, personBName, rationale
	default:
		return models.WinnerTie, models.TieLabel, rationale
	}
}

// matchesParty проверяет вхождение имени участника или его литеральных
// обозначений в метку вердикта.
func matchesParty(label, name string, literals ...string) bool {
	if name != "" && strings.Contains(label, strings.ToLower(name)) {
		return true
	}
	for _, lit := range literals {
		if strings.Contains(label, lit) {
			return true
		}
	}
	return false
}
