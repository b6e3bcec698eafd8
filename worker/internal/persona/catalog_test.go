package persona_test

import (
	"testing"

	"github.com/lxp-platform/fabric/worker/internal/persona"
)

func TestScenarioDescription_KnownScenario(t *testing.T) {
	desc := persona.ScenarioDescription("price_negotiation")
	if desc != "가격 및 할인 조건을 협상하는 상황" {
		t.Errorf("unexpected description: %q", desc)
	}
}

func TestScenarioDescription_UnknownScenarioDefaults(t *testing.T) {
	desc := persona.ScenarioDescription("does-not-exist")
	if desc != "일반적인 제품 상담" {
		t.Errorf("expected the generic fallback, got %q", desc)
	}
}

func TestRandomPersona_PopulatesAllFieldsFromCatalog(t *testing.T) {
	validCustTypes := map[string]bool{"실속형": true, "프리미엄 지향형": true, "얼리어답터": true, "가성비 중시형": true, "브랜드 충성 고객": true}
	validGenders := map[string]bool{"남성": true, "여성": true}

	for i := 0; i < 50; i++ {
		p := persona.RandomPersona()
		if p.Type == "" || p.Gender == "" || p.AgeGroup == "" || p.Personality == "" || p.Tech == "" || p.Goal == "" || p.Usage == "" {
			t.Fatalf("expected every persona field to be populated, got %+v", p)
		}
		if !validCustTypes[p.Type] {
			t.Errorf("unexpected customer type: %q", p.Type)
		}
		if !validGenders[p.Gender] {
			t.Errorf("unexpected gender: %q", p.Gender)
		}
	}
}

func TestSystemPrompt_RendersWithoutError(t *testing.T) {
	var buf []byte
	_ = buf
	w := &testWriter{}
	fields := struct {
		AgeGroup     string
		Gender       string
		Personality  string
		Tech         string
		Goal         string
		Usage        string
		Type         string
		ScenarioDesc string
	}{
		AgeGroup: "30대", Gender: "여성", Personality: "신중한", Tech: "중",
		Goal: "신혼 가전 마련", Usage: "가족용", Type: "실속형",
		ScenarioDesc: persona.ScenarioDescription("intro_meeting"),
	}
	if err := persona.SystemPrompt.Execute(w, fields); err != nil {
		t.Fatalf("unexpected error rendering system prompt: %v", err)
	}
	if len(w.written) == 0 {
		t.Fatal("expected rendered output to be non-empty")
	}
}

type testWriter struct {
	written []byte
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.written = append(w.written, p...)
	return len(p), nil
}
