package classify

import "github.com/PabloGalante/farum-engine/internal/domain"

// Crisis keyword tiers, checked strictly in order critical > high > medium.
var (
	criticalPhrases = []string{
		"kill myself",
		"end my life",
		"take my own life",
		"suicide",
		"suicidal",
		"want to die",
		"better off dead",
		"hurt myself",
		"self harm",
		"cut myself",
		"end it all",
		"no reason to live",
	}

	highPhrases = []string{
		"hopeless",
		"can't go on",
		"cannot go on",
		"no way out",
		"worthless",
		"give up on everything",
		"trapped",
		"unbearable",
		"can't take it anymore",
		"nothing matters",
	}

	mediumPhrases = []string{
		"depressed",
		"overwhelmed",
		"exhausted",
		"empty",
		"numb",
		"can't cope",
		"falling apart",
		"breaking down",
		"so alone",
		"crying",
	}
)

type emotionLexicon struct {
	emotion   domain.EmotionType
	intensity float64
	words     []string
}

// Order matters: matches are appended in this order after the score-derived candidates.
var emotionLexicons = []emotionLexicon{
	{
		emotion:   domain.EmotionAnger,
		intensity: 0.7,
		words:     []string{"angry", "mad", "furious", "frustrated", "annoyed", "irritated", "rage", "hate"},
	},
	{
		emotion:   domain.EmotionAnxiety,
		intensity: 0.8,
		words:     []string{"anxious", "worried", "nervous", "scared", "afraid", "panic", "stressed", "on edge"},
	},
	{
		emotion:   domain.EmotionLoneliness,
		intensity: 0.7,
		words:     []string{"lonely", "alone", "isolated", "no one", "nobody", "left out"},
	},
}

// Local sentiment fallback lexicons.
var (
	positiveWords = []string{
		"good", "great", "happy", "glad", "calm", "better", "grateful", "thankful", "love", "joy",
		"excited", "hopeful", "proud", "relaxed", "peaceful", "wonderful", "amazing", "fine", "okay", "nice",
	}

	negativeWords = []string{
		"bad", "sad", "terrible", "awful", "angry", "anxious", "worried", "depressed", "hopeless", "lonely",
		"scared", "afraid", "hate", "tired", "exhausted", "stressed", "upset", "hurt", "cry", "worthless",
		"miserable", "empty", "overwhelmed", "die", "pain",
	}
)

// topicKeywords are matched as substrings of lowercase tokens, in this order.
var topicKeywords = []string{
	"anxiety", "stress", "depression", "sad", "worried", "angry",
	"happy", "grateful", "work", "family", "friends", "school",
}

type techniqueRule struct {
	technique domain.Technique
	cues      []string
}

// Earlier rules win.
var techniqueRules = []techniqueRule{
	{domain.TechniqueCBT, []string{"thought", "belief", "perspective"}},
	{domain.TechniqueACT, []string{"accept", "present moment", "values", "commitment"}},
	{domain.TechniqueDBT, []string{"distress tolerance", "mindfulness", "emotion regulation"}},
	{domain.TechniqueMindfulness, []string{"breathe", "grounding", "moment"}},
	{domain.TechniqueValidation, []string{"validate", "understand", "makes sense"}},
	{domain.TechniqueReframing, []string{"consider", "alternativ", "another way"}},
}
