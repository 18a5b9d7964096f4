// Package generation drives the text generator behind the explanation
// endpoint: bounded attempts with exponential backoff, response validation,
// and classification of failures into fatal or retryable.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bobmcallan/dart-portal/internal/faults"
)

// MinResponseRunes is the shortest trimmed response accepted as an explanation.
const MinResponseRunes = 10

// errShortResponse is the retryable failure for empty or truncated output.
var errShortResponse = errors.New("response too short or empty")

// Generator produces text for a prompt. GeminiGenerator is the production one.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ServiceError is a failure reported by the generation service itself.
type ServiceError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Status != "":
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// Outcome is the verdict on a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// AttemptResult is the tagged result of one attempt. Kind is a faults
// sub-kind and is only set for fatal outcomes.
type AttemptResult struct {
	Outcome Outcome
	Kind    string
	Text    string
	Err     error
}

var (
	modelMarkers = []string{"Model not found", "Invalid model"}
	authMarkers  = []string{"API_KEY_INVALID", "INVALID_API_KEY", "INVALID_ARGUMENT: API key"}
)

// Classify decides whether a generator error ends the loop. Checks run in
// order: model, authentication, quota, safety; anything else is retryable.
// model is the configured model name; an error is a model error only when it
// names a model and says it does not exist.
func Classify(err error, model string) AttemptResult {
	if err == nil {
		return AttemptResult{Outcome: OutcomeSuccess}
	}
	msg := err.Error()
	upper := strings.ToUpper(msg)

	status := 0
	var se *ServiceError
	if errors.As(err, &se) {
		status = se.StatusCode
	}

	fatal := func(kind string) AttemptResult {
		return AttemptResult{Outcome: OutcomeFatal, Kind: kind, Err: err}
	}

	switch {
	case containsAny(msg, modelMarkers), modelMissing(msg, status, model):
		return fatal(faults.SubKindModel)
	case status == http.StatusUnauthorized && containsAny(msg, authMarkers):
		return fatal(faults.SubKindAuthentication)
	case strings.Contains(upper, "RESOURCE_EXHAUSTED"),
		strings.Contains(upper, "QUOTA_EXCEEDED"),
		strings.Contains(msg, "429"),
		status == http.StatusTooManyRequests:
		return fatal(faults.SubKindQuota)
	case strings.Contains(upper, "SAFETY"), strings.Contains(upper, "BLOCKED"):
		return fatal(faults.SubKindSafety)
	}
	return AttemptResult{Outcome: OutcomeRetryable, Err: err}
}

// validate checks a successful call's text.
func validate(text string) AttemptResult {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinResponseRunes {
		return AttemptResult{Outcome: OutcomeRetryable, Err: errShortResponse}
	}
	return AttemptResult{Outcome: OutcomeSuccess, Text: text}
}

// modelMissing matches "models/<name> is not found" style failures. Other
// errors that merely mention the model, such as overload, stay retryable.
func modelMissing(msg string, status int, model string) bool {
	mentionsModel := strings.Contains(msg, "models/") || (model != "" && strings.Contains(msg, model))
	if !mentionsModel {
		return false
	}
	lower := strings.ToLower(msg)
	return status == http.StatusNotFound ||
		strings.Contains(msg, "NOT_FOUND") ||
		strings.Contains(lower, "is not found") ||
		strings.Contains(lower, "not supported for generatecontent")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fatalError converts a fatal attempt into the user-facing failure.
func fatalError(r AttemptResult) *faults.Error {
	fe := &faults.Error{Kind: faults.KindGenerationFatal, SubKind: r.Kind, Err: r.Err}
	switch r.Kind {
	case faults.SubKindModel:
		fe.Message = "Gemini 모델 설정 오류"
		fe.Detail = "설정된 모델을 찾을 수 없습니다. GEMINI_MODEL 값을 확인해주세요."
		fe.Hint = "gemini.model 설정 또는 GEMINI_MODEL 환경변수를 사용 가능한 모델로 변경하세요."
	case faults.SubKindAuthentication:
		fe.Message = "Gemini API 키가 유효하지 않습니다."
		fe.Detail = "API 키를 확인하고 다시 설정해주세요. 만약 키가 정확하다면 Google AI Studio에서 새 키를 발급받아보세요."
		fe.Hint = "https://ai.google.dev/"
	case faults.SubKindQuota:
		fe.Message = "API 사용 한도를 초과했습니다."
		fe.Detail = "무료 할당량을 모두 사용했습니다. 잠시 후 다시 시도하거나 유료 플랜을 고려해주세요."
		fe.Hint = "할당량이 초기화된 뒤 다시 시도해주세요."
	case faults.SubKindSafety:
		fe.Message = "콘텐츠가 안전 필터에 의해 차단되었습니다."
		fe.Detail = "다른 데이터로 다시 시도해주세요."
		fe.Hint = "다른 회사나 연도의 데이터로 시도해주세요."
	}
	return fe
}

// ExhaustedHint picks the advice shown after the last attempt failed with msg.
func ExhaustedHint(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return "네트워크 지연이 발생했습니다. 잠시 후 다시 시도해주세요."
	case strings.Contains(lower, "connection"), strings.Contains(lower, "connect"):
		return "인터넷 연결을 확인해주세요."
	case strings.Contains(lower, "temporarily unavailable"), strings.Contains(msg, "503"):
		return "Gemini 서비스가 일시적으로 사용 불가능합니다. 몇 분 후 다시 시도해주세요."
	case strings.Contains(lower, "internal"), strings.Contains(msg, "500"):
		return "Gemini API 내부 오류입니다. 잠시 후 다시 시도해주세요."
	case strings.Contains(lower, "response"), strings.Contains(lower, "validation"):
		return "API 응답 형식 문제입니다. 잠시 후 다시 시도하거나 다른 회사 데이터를 조회해주세요."
	}
	return "Gemini API 일시적 오류입니다. 잠시 후 다시 시도해주세요."
}

const keyIsFineHint = "💡 API 키는 정상입니다! Gemini API의 일시적인 문제이므로 조금 기다렸다가 다시 시도해주세요."

// exhaustedError is returned once every attempt failed with a retryable error.
func exhaustedError(attempts int, last error) *faults.Error {
	msg := ""
	if last != nil {
		msg = last.Error()
	}
	return &faults.Error{
		Kind:       faults.KindGenerationExhausted,
		Message:    "AI 서비스 오류 (API 키는 정상)",
		Detail:     fmt.Sprintf("%d번 시도했지만 실패했습니다. %s", attempts, ExhaustedHint(msg)),
		Hint:       keyIsFineHint,
		RetryCount: attempts,
		Err:        last,
	}
}
