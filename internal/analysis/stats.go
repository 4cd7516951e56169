package analysis

import (
	"math"
	"sort"

	"github.com/threadscope/threadscope/pkg/model"
)

// topTopicLimit caps the topics reported in summary statistics.
const topTopicLimit = 10

// Summarize aggregates a batch of comment analyses into distribution counts,
// the top topics, and the mean confidence (rounded to 3 decimals).
func Summarize(analyses []model.CommentAnalysis) *model.SummaryStats {
	stats := &model.SummaryStats{
		TotalComments: len(analyses),
		Sentiments:    make(map[string]int),
		Toxicity:      make(map[string]int),
		Emotions:      make(map[string]int),
	}
	if len(analyses) == 0 {
		return stats
	}

	topicCounts := make(map[string]int)
	var confidenceSum float64

	for _, a := range analyses {
		stats.Sentiments[a.Sentiment]++
		stats.Toxicity[a.Toxicity]++
		stats.Emotions[a.Emotion]++
		confidenceSum += a.Confidence
		for _, topic := range a.Topics {
			topicCounts[topic]++
		}
	}

	topics := make([]model.TopicCount, 0, len(topicCounts))
	for topic, count := range topicCounts {
		topics = append(topics, model.TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic // stable output for equal counts
	})
	if len(topics) > topTopicLimit {
		topics = topics[:topTopicLimit]
	}
	stats.TopTopics = topics

	avg := confidenceSum / float64(len(analyses))
	stats.AverageConfidence = math.Round(avg*1000) / 1000

	return stats
}
