package analysis

import "fmt"

// promptTemplate instructs the model to answer in the exact line format the
// parser expects. Changing a field name here requires a matching parser change.
const promptTemplate = `Analyze this Reddit comment and provide a structured analysis:

Comment: %q

Please analyze and respond in this EXACT format:
SENTIMENT: [positive/negative/neutral]
CONFIDENCE: [0.0-1.0]
TOPICS: [topic1, topic2, topic3] (max 5 topics)
TOXICITY: [low/medium/high]
EMOTION: [anger/joy/fear/sadness/surprise/disgust/neutral]
SUMMARY: [brief 1-sentence summary of the comment's main point]

Be concise and objective. Focus on the actual content and tone.`

// BuildPrompt renders the analysis prompt for a cleaned comment body.
func BuildPrompt(cleanedText string) string {
	return fmt.Sprintf(promptTemplate, cleanedText)
}
