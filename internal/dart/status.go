package dart

// statusDescriptions is OpenDART's documented status table.
var statusDescriptions = map[string]string{
	"000": "정상",
	"010": "등록되지 않은 키입니다.",
	"011": "사용할 수 없는 키입니다.",
	"012": "접근할 수 없는 IP입니다.",
	"013": "조회된 데이타가 없습니다.",
	"014": "파일이 존재하지 않습니다.",
	"020": "요청 제한을 초과하였습니다.",
	"021": "조회 가능한 회사 개수가 초과하였습니다.(최대 100건)",
	"100": "필드의 부적절한 값입니다.",
	"101": "부적절한 접근입니다.",
	"800": "시스템 점검으로 인한 서비스가 중지 중입니다.",
	"900": "정의되지 않은 오류가 발생하였습니다.",
	"901": "사용자 계정의 개인정보 보유기간이 만료되어 사용할 수 없는 키입니다.",
}

// StatusDescription describes an OpenDART status code.
func StatusDescription(code string) string {
	if d, ok := statusDescriptions[code]; ok {
		return d
	}
	return "알 수 없는 오류 코드: " + code
}

// IsKeyProblem reports whether code means the API key itself is unusable.
func IsKeyProblem(code string) bool {
	switch code {
	case "010", "011", "901":
		return true
	}
	return false
}
