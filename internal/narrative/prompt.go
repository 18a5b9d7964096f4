package narrative

import (
	"strings"

	"github.com/bobmcallan/dart-portal/internal/statements"
)

// SummaryPreviewRunes is how much of the summary is echoed back to callers.
const SummaryPreviewRunes = 500

// BuildPrompt wraps summary in the plain-language explanation request.
func BuildPrompt(companyName string, flag statements.Flag, summary string) string {
	var b strings.Builder
	b.WriteString("\n다음은 ")
	b.WriteString(companyName)
	b.WriteString("의 ")
	b.WriteString(flag.DisplayName())
	b.WriteString(" 재무제표 데이터입니다. \n")
	b.WriteString("일반인도 이해하기 쉽게 재무 상태와 경영 성과를 설명해주세요.\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n다음 내용을 포함하여 설명해주세요:\n")
	b.WriteString("1. **재무 상태 요약**: 자산, 부채, 자본의 변화와 의미\n")
	b.WriteString("2. **경영 성과 분석**: 매출, 영업이익, 당기순이익의 추세\n")
	b.WriteString("3. **주요 특징**: 눈에 띄는 변화나 특이사항\n")
	b.WriteString("4. **투자자 관점**: 이 데이터가 투자자에게 시사하는 점\n\n")
	b.WriteString("설명은 친근하고 이해하기 쉬운 언어로 작성해주세요.\n")
	b.WriteString("전문용어를 사용할 때는 간단한 설명을 덧붙여주세요.\n")
	b.WriteString("최대 1000자 이내로 작성해주세요.\n")
	return b.String()
}
