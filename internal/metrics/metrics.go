// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_game_questions_issued_total",
		Help: "Questions issued across all dates.",
	})

	PredictionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_game_predictions_submitted_total",
		Help: "Predictions accepted by the store.",
	})

	PredictionsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_game_predictions_verified_total",
		Help: "Predictions verified, by outcome.",
	}, []string{"result"})
)
