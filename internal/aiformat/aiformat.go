package aiformat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("AI formatting is not configured")
	// ErrNoRows means the model reply held no usable rows.
	ErrNoRows = errors.New("no valid data found after AI formatting")
)

// Row is one reformatted answer-key line.
type Row struct {
	SNo        string `json:"sno"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// Formatter asks an OpenAI-compatible model to reshape free-form answer-key
// text into Sno,QuestionID,AnswerID rows.
type Formatter struct {
	api   *openai.Client
	model string
}

// New returns nil when apiKey is empty.
func New(baseURL, apiKey, modelName string) *Formatter {
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Formatter{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

func (f *Formatter) Format(ctx context.Context, raw string) ([]Row, error) {
	if f == nil {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("no answer key data provided")
	}

	resp, err := f.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: raw},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	text := resp.Choices[0].Message.Content
	slog.Debug("format reply", "bytes", len(text))

	rows, rejected := ParseRows(text)
	if rejected > 0 {
		slog.Warn("format reply rows rejected", "rejected", rejected, "kept", len(rows))
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

// ToAnswerKey renders rows as tab-separated answer-key text under subject,
// ready for the answer-key upload path.
func ToAnswerKey(subject string, rows []Row) string {
	var sb strings.Builder
	sb.WriteString("Sno\tSubject\tQuestionID\tAnswerID\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\n", r.SNo, subject, r.QuestionID, r.AnswerID)
	}
	return sb.String()
}

const systemPrompt = `You format exam answer keys. Convert the user's data into CSV with exactly 3 columns: Sno,QuestionID,AnswerID.

Rules:
1. Extract only the serial number, question ID and the correct answer ID.
2. Ignore subject names, option lists and other metadata.
3. Return ONLY the CSV data, starting with the header line Sno,QuestionID,AnswerID.
4. Question IDs and Answer IDs are numeric.
5. If a question has several correct answers, emit one row per answer.

Example:
Sno,QuestionID,AnswerID
1,226895708423,2268952746780
2,226895708424,2268952746784`

var numeric = regexp.MustCompile(`^\d+$`)

// ParseRows reads the model's CSV reply. The first non-fence line is a
// header. Rows with fewer than three fields or non-numeric ids are rejected
// and counted.
func ParseRows(text string) (rows []Row, rejected int) {
	header := true
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if header {
			header = false
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			rejected++
			continue
		}
		row := Row{
			SNo:        strings.TrimSpace(parts[0]),
			QuestionID: strings.TrimSpace(parts[1]),
			AnswerID:   strings.TrimSpace(parts[2]),
		}
		if !numeric.MatchString(row.QuestionID) || !numeric.MatchString(row.AnswerID) {
			rejected++
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected
}
