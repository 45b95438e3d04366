package prompt

import (
	"strings"

	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
)

// DefaultLocale is used when a session does not ask for a specific pack.
const DefaultLocale = "ko"

// Pack bundles the localized copy the research partner speaks with.
type Pack struct {
	Locale           string `json:"locale"`
	Title            string `json:"title"`
	Intro            string `json:"intro"`
	SystemPrompt     string `json:"-"`
	GreetingTemplate string `json:"-"`
	UserLabel        string `json:"userLabel"`
	AssistantLabel   string `json:"assistantLabel"`
	NameLabel        string `json:"nameLabel"`
	FieldLabel       string `json:"fieldLabel"`
	StartLabel       string `json:"startLabel"`
	InputPlaceholder string `json:"inputPlaceholder"`
	FailureNotice    string `json:"failureNotice"`
	IncompleteNotice string `json:"incompleteNotice"`
	BusyNotice       string `json:"busyNotice"`
}

// Greeting renders the one-time welcome message for an initialized profile.
// The template understands {name} and {field}.
func (p Pack) Greeting(prof profile.Profile) string {
	return strings.NewReplacer("{name}", prof.Name, "{field}", prof.Field).Replace(p.GreetingTemplate)
}

// Seed provides the built-in packs. Korean comes first and is the default.
func Seed() []Pack {
	return []Pack{
		{
			Locale: "ko",
			Title:  "연구 동료 챗봇",
			Intro: `안녕하세요. 저는 연구 도우미 Gemini 입니다.
먼저 간단한 정보를 입력해 주시면, 더 나은 연구 지원을 제공해 드릴 수 있습니다.`,
			SystemPrompt: `당신은 신경과학과 의학 분야의 전문 연구 동료입니다.
당신의 역할은 다음과 같습니다:
1. 연구 논의에 지적이고 협력적인 지원을 제공
2. 관련 과학 문헌과 연구 논문을 제안
3. 연구 아이디어를 발전시키고 개선하는 데 도움
4. 건설적인 비평과 대안적 관점을 제시
5. 전문적이면서도 지원적인 톤을 유지

항상 다음과 같은 방식으로 응답해주세요:
- 과학적 개념에 대한 깊은 이해를 보여주기
- 비판적 사고와 학문적 엄격성을 장려하기
- 구체적이고 실행 가능한 제안을 제공하기
- 적절한 경우 관련 과학 문헌을 참조하기`,
			GreetingTemplate: `안녕하세요, {name}님.
저는 연구 도우미 Gemini 입니다. {field} 분야의 연구를 지원해 드리겠습니다.

어떤 연구 주제에 대해 논의해 보고 싶으신가요?
혹시 현재 진행 중인 연구가 있거나, 새로운 연구 아이디어를 탐색하고 싶으신지 알려주시면,
제가 가진 전문 지식을 활용하여 지원해 드릴 수 있도록 하겠습니다.
구체적인 질문이나 아이디어를 제시해 주시면 더욱 구체적인 도움을 드릴 수 있습니다.`,
			UserLabel:        "사용자",
			AssistantLabel:   "어시스턴트",
			NameLabel:        "이름을 입력해주세요",
			FieldLabel:       "주요 연구 분야를 입력해주세요 (예: 신경과학, 의학, 생명공학 등)",
			StartLabel:       "시작하기",
			InputPlaceholder: "연구 아이디어, 논문 주제, 질문을 입력하세요…",
			FailureNotice:    "응답 생성 중 오류가 발생했습니다",
			IncompleteNotice: "이름과 연구 분야를 모두 입력해주세요.",
			BusyNotice:       "이전 질문에 대한 답변을 생성하고 있습니다. 잠시 후 다시 시도해주세요.",
		},
		{
			Locale: "en",
			Title:  "Research Partner",
			Intro: `Hello, I am Gemini, your research assistant.
Tell me a little about yourself first so I can support your research better.`,
			SystemPrompt: `You are an expert research colleague in neuroscience and medicine.
Your role:
1. Offer thoughtful, collaborative support in research discussions
2. Suggest relevant scientific literature and papers
3. Help develop and refine research ideas
4. Provide constructive critique and alternative perspectives
5. Keep a professional yet supportive tone

Always respond by:
- Showing deep understanding of scientific concepts
- Encouraging critical thinking and academic rigor
- Giving concrete, actionable suggestions
- Citing relevant literature where appropriate`,
			GreetingTemplate: `Hello, {name}.
I am Gemini, your research assistant, and I will support your work in {field}.

Which research topic would you like to discuss?
Let me know whether you have ongoing work or want to explore new ideas,
and I will bring what I know to help. Specific questions get specific answers.`,
			UserLabel:        "User",
			AssistantLabel:   "Assistant",
			NameLabel:        "Your name",
			FieldLabel:       "Main research field (e.g. neuroscience, medicine, bioengineering)",
			StartLabel:       "Start",
			InputPlaceholder: "Research ideas, paper topics, questions…",
			FailureNotice:    "Something went wrong while generating a reply",
			IncompleteNotice: "Please fill in both your name and research field.",
			BusyNotice:       "Still working on the previous reply. Please try again in a moment.",
		},
	}
}
