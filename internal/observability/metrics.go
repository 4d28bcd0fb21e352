package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlchat_questions_total",
		Help: "Questions submitted, by outcome (answered, failed, cancelled).",
	}, []string{"outcome"})

	AnswerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqlchat_answer_duration_seconds",
		Help:    "Time from submit to final answer or error.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlchat_tool_calls_total",
		Help: "Tool calls made by the answering agent, by tool and status.",
	}, []string{"tool", "status"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sqlchat_query_duration_seconds",
		Help:    "Data source query latency by driver.",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver"})

	HandleReopensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlchat_datasource_reopens_total",
		Help: "Data source pool reopens, by reason (expired, invalidated).",
	}, []string{"reason"})

	LLMTokensStreamed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlchat_llm_stream_chunks_total",
		Help: "Streamed text chunks received from the provider.",
	}, []string{"provider"})
)
