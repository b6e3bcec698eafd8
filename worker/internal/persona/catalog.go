// Package persona carries the simulated customer's data assets: the
// verbatim Korean system-prompt template and the persona/scenario
// catalog it was drawn with, grounded on
// original_source/worker/AI_Simulation_Training/ai.py (SCENARIOS,
// random_persona and the inline prompt text).
package persona

import (
	_ "embed"
	"math/rand"
	"text/template"

	"github.com/lxp-platform/fabric/worker/internal/domain"
)

//go:embed assets/system_prompt_ko.txt
var systemPromptSource string

// SystemPrompt is the parsed Korean persona system-prompt template.
var SystemPrompt = template.Must(template.New("system_prompt_ko").Parse(systemPromptSource))

// Scenarios mirrors the original's SCENARIOS dict: scenario key to a
// short Korean description used in the prompt's situation section.
var Scenarios = map[string]string{
	"intro_meeting":    "매장에 처음 방문한 고객과의 초기 상담",
	"price_negotiation": "가격 및 할인 조건을 협상하는 상황",
	"product_comparison": "경쟁 제품과의 비교 상담",
	"after_sales":       "구매 후 사후 지원 문의",
	"upsell":            "상위 모델로의 업셀 제안 상황",
}

// ScenarioDescription returns the description for scenario, defaulting
// to a generic consultation per the original's `.get(..., "일반적인
// 제품 상담")`.
func ScenarioDescription(scenario string) string {
	if d, ok := Scenarios[scenario]; ok {
		return d
	}
	return "일반적인 제품 상담"
}

var (
	ageGroups    = []string{"20대", "30대", "40대", "50대", "60대 이상"}
	genders      = []string{"남성", "여성"}
	personalities = []string{"신중한", "활발한", "까다로운", "느긋한", "분석적인"}
	techLevels    = []string{"상", "중", "하"}
	goals         = []string{"신혼 가전 마련", "노후 가전 교체", "선물 구매", "자취방 꾸미기", "최신 기술 체험"}
	usages        = []string{"가족용", "1인 가구용", "업무용", "선물용"}
	custTypes     = []string{"실속형", "프리미엄 지향형", "얼리어답터", "가성비 중시형", "브랜드 충성 고객"}
)

// RandomPersona draws a persona the way the original's random_persona()
// would, with independently-random field choices.
func RandomPersona() domain.Persona {
	pick := func(opts []string) string { return opts[rand.Intn(len(opts))] }
	return domain.Persona{
		Type:        pick(custTypes),
		Gender:      pick(genders),
		AgeGroup:    pick(ageGroups),
		Personality: pick(personalities),
		Tech:        pick(techLevels),
		Goal:        pick(goals),
		Usage:       pick(usages),
	}
}
