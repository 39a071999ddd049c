package model

// Tone is the form of address used in German copy.
type Tone string

// Tones.
const (
	ToneDu  Tone = "du"
	ToneSie Tone = "sie"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool { return t == ToneDu || t == ToneSie }

// DeepAnalysisResult is the brand and messaging profile derived once per job.
type DeepAnalysisResult struct {
	CoreMessage       string   `json:"coreMessage"`
	ValueProposition  string   `json:"valueProposition"`
	TargetAudience    string   `json:"targetAudience"`
	Tone              Tone     `json:"tone"`
	VoiceStyle        string   `json:"voiceStyle"`
	EmotionalTriggers []string `json:"emotionalTriggers"`
	PainPoints        []string `json:"painPoints"`
	Solutions         []string `json:"solutions"`
	KeyPhrases        []string `json:"keyPhrases"`
	HeadlinePatterns  []string `json:"headlinePatterns"`
	CTAPatterns       []string `json:"ctaPatterns"`
	VisualThemes      []string `json:"visualThemes"`
	ColorPalette      []string `json:"colorPalette"`
	AestheticStyle    string   `json:"aestheticStyle"`
}

// TextIteration is one copy variation.
type TextIteration struct {
	PreHeadline string `json:"preHeadline"`
	Headline    string `json:"headline"`
	SubHeadline string `json:"subHeadline,omitempty"`
	CTA         string `json:"cta"`
}
