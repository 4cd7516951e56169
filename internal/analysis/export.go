package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/threadscope/threadscope/pkg/model"
)

// csvHeader is the column layout of an analysis export.
var csvHeader = []string{
	"comment_id", "sentiment", "confidence", "topics", "toxicity", "emotion", "summary",
}

// ExportCSV writes the analyses to w in CSV form, one row per comment.
// Topics are joined with ", " into a single column.
func ExportCSV(w io.Writer, analyses []model.CommentAnalysis) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, a := range analyses {
		row := []string{
			a.CommentID,
			a.Sentiment,
			strconv.FormatFloat(a.Confidence, 'f', -1, 64),
			strings.Join(a.Topics, ", "),
			a.Toxicity,
			a.Emotion,
			a.Summary,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for comment %s: %w", a.CommentID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the default attachment name for a run export.
func ExportFilename(at time.Time) string {
	return "reddit_analysis_" + at.Format("20060102_150405") + ".csv"
}
