package analysis

import (
	"strconv"
	"strings"

	"github.com/threadscope/threadscope/pkg/model"
)

// maxTopics caps the topics kept per comment.
const maxTopics = 5

var validSentiments = map[string]bool{
	model.SentimentPositive: true,
	model.SentimentNegative: true,
	model.SentimentNeutral:  true,
}

var validToxicity = map[string]bool{
	model.ToxicityLow:    true,
	model.ToxicityMedium: true,
	model.ToxicityHigh:   true,
}

var validEmotions = map[string]bool{
	"anger": true, "joy": true, "fear": true, "sadness": true,
	"surprise": true, "disgust": true, "neutral": true,
}

// ParseResponse extracts a structured CommentAnalysis from the model's
// line-oriented reply. Missing or malformed fields keep their defaults;
// out-of-range confidence is clamped to [0,1]. The raw response is retained
// on the result for debugging.
func ParseResponse(response, commentID string) model.CommentAnalysis {
	result := model.CommentAnalysis{
		CommentID:   commentID,
		Sentiment:   model.SentimentNeutral,
		Confidence:  0.5,
		Toxicity:    model.ToxicityLow,
		Emotion:     "neutral",
		Summary:     "no summary available",
		RawResponse: response,
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "SENTIMENT":
			if s := strings.ToLower(value); validSentiments[s] {
				result.Sentiment = s
			}
		case "CONFIDENCE":
			if conf, err := strconv.ParseFloat(value, 64); err == nil {
				result.Confidence = clamp(conf, 0.0, 1.0)
			}
		case "TOPICS":
			result.Topics = parseTopics(value)
		case "TOXICITY":
			if t := strings.ToLower(value); validToxicity[t] {
				result.Toxicity = t
			}
		case "EMOTION":
			if e := strings.ToLower(value); validEmotions[e] {
				result.Emotion = e
			}
		case "SUMMARY":
			if value != "" {
				result.Summary = value
			}
		}
	}

	return result
}

// parseTopics splits a "[topic1, topic2]" list, dropping empties and "none".
func parseTopics(value string) []string {
	value = strings.Trim(value, "[]")
	if value == "" {
		return nil
	}

	var topics []string
	for _, t := range strings.Split(value, ",") {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, "none") {
			continue
		}
		topics = append(topics, t)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
