package agents

import (
	"github.com/snappy-loop/podcasts/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type toneProfile struct {
	instructions string
	description  string
	bestFor      []string
}

var toneProfiles = map[models.Tone]toneProfile{
	models.ToneStorytelling: {
		instructions: `Write in a compelling storytelling style with:
- Engaging narrative structure with clear beginning, middle, and end
- Vivid descriptions and emotional hooks
- Personal anecdotes or relatable examples
- Suspenseful elements and cliffhangers
- Conversational flow that draws listeners in`,
		description: "Narrative-driven episodes with a clear arc and emotional hooks",
		bestFor:     []string{"History", "Biographies", "True stories"},
	},
	models.ToneConversational: {
		instructions: `Write in a friendly, conversational style with:
- Natural speech patterns and contractions
- Direct address to the listener ("you")
- Casual language and relatable examples
- Questions to engage the audience
- Warm and approachable tone`,
		description: "Friendly, natural delivery as if talking to one listener",
		bestFor:     []string{"General topics", "Advice", "Everyday explainers"},
	},
	models.ToneEducational: {
		instructions: `Write in an educational, informative style with:
- Clear structure with main points and subpoints
- Definitions and explanations of complex concepts
- Real-world examples and case studies
- Step-by-step breakdowns where appropriate
- Professional but accessible language`,
		description: "Structured teaching with definitions and worked examples",
		bestFor:     []string{"Science", "Technology", "Learning series"},
	},
	models.ToneEntertaining: {
		instructions: `Write in an entertaining, engaging style with:
- Humor and wit throughout the content
- Pop culture references and current trends
- Interactive elements and audience engagement
- Dynamic pacing and varied sentence structures
- Fun facts and surprising revelations`,
		description: "Lively, witty episodes with fun facts and fast pacing",
		bestFor:     []string{"Pop culture", "Trivia", "Light topics"},
	},
	models.ToneProfessional: {
		instructions: `Write in a professional, authoritative style with:
- Formal language and industry terminology
- Data-driven insights and statistics
- Expert opinions and credible sources
- Structured arguments and logical flow
- Balanced and objective perspective`,
		description: "Authoritative, data-driven analysis",
		bestFor:     []string{"Business", "Industry news", "Finance"},
	},
	models.ToneCasual: {
		instructions: `Write in a casual, relaxed style with:
- Informal language and slang (appropriate)
- Personal opinions and experiences
- Light-hearted approach to serious topics
- Easy-to-follow structure
- Friendly and relatable tone`,
		description: "Relaxed and informal, like chatting with a friend",
		bestFor:     []string{"Hobbies", "Lifestyle", "Opinion pieces"},
	},
}

type voiceProfile struct {
	description string
	bestFor     []string
	personality string
}

var voiceProfiles = map[models.Voice]voiceProfile{
	models.VoiceAlloy: {
		description: "A balanced, neutral voice suitable for most content",
		bestFor:     []string{"Educational content", "Professional presentations", "News"},
		personality: "Professional and trustworthy",
	},
	models.VoiceEcho: {
		description: "A warm, friendly voice with natural intonation",
		bestFor:     []string{"Conversational content", "Storytelling", "Casual podcasts"},
		personality: "Friendly and approachable",
	},
	models.VoiceFable: {
		description: "A clear, expressive voice with good pacing",
		bestFor:     []string{"Storytelling", "Narrative content", "Entertainment"},
		personality: "Engaging and expressive",
	},
	models.VoiceOnyx: {
		description: "A deep, authoritative voice with gravitas",
		bestFor:     []string{"Serious topics", "Documentaries", "Professional content"},
		personality: "Authoritative and serious",
	},
	models.VoiceNova: {
		description: "A bright, energetic voice with enthusiasm",
		bestFor:     []string{"Entertainment", "Motivational content", "Youth-oriented content"},
		personality: "Energetic and enthusiastic",
	},
	models.VoiceShimmer: {
		description: "A smooth, melodic voice with natural flow",
		bestFor:     []string{"Relaxing content", "Meditation", "Smooth narration"},
		personality: "Calm and soothing",
	},
}

// displayName title-cases an identifier. Casers are stateful, so one is built per call.
func displayName(id string) string {
	return cases.Title(language.English).String(id)
}

// ToneInstructions returns the style instructions for tone, falling back to conversational.
func ToneInstructions(tone models.Tone) string {
	if p, ok := toneProfiles[tone]; ok {
		return p.instructions
	}
	return toneProfiles[models.ToneConversational].instructions
}

// Tones lists every tone with its description.
func Tones() []models.ToneInfo {
	out := make([]models.ToneInfo, 0, len(models.Tones))
	for _, t := range models.Tones {
		p := toneProfiles[t]
		out = append(out, models.ToneInfo{
			ID:          t,
			Name:        displayName(string(t)),
			Description: p.description,
			BestFor:     p.bestFor,
		})
	}
	return out
}

// VoiceCharacteristics describes voice, falling back to fable for unknown voices.
func VoiceCharacteristics(voice models.Voice) models.VoiceInfo {
	p, ok := voiceProfiles[voice]
	if !ok {
		voice = models.VoiceFable
		p = voiceProfiles[voice]
	}
	return models.VoiceInfo{
		ID:          voice,
		Name:        displayName(string(voice)),
		Description: p.description,
		BestFor:     p.bestFor,
		Personality: p.personality,
	}
}

// Voices lists every voice with its characteristics.
func Voices() []models.VoiceInfo {
	out := make([]models.VoiceInfo, 0, len(models.Voices))
	for _, v := range models.Voices {
		out = append(out, VoiceCharacteristics(v))
	}
	return out
}
