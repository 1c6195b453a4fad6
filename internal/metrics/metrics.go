package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswerKeyDroppedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answer_key_dropped_lines_total",
		Help: "Answer-key data lines dropped for having fewer than four fields.",
	})

	ResponseSheetParses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "response_sheet_parse_total",
		Help: "Response sheets parsed, by input path and result.",
	}, []string{"path", "result"})

	PositionalAttribution = promauto.NewCounter(prometheus.CounterOpts{
		Name: "response_sheet_positional_attribution_total",
		Help: "Sheets whose subjects were attributed by even positional redistribution.",
	})

	SkippedQuestions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "response_sheet_skipped_questions_total",
		Help: "Question markers in text sheets that had no Question ID and produced no response.",
	})

	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyses_total",
		Help: "Analysis requests by outcome.",
	}, []string{"outcome"})

	ScoreHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_completion_rate",
		Help:    "Completion rate (percent) of scored response sheets.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)
