package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	NegotiationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymclub_negotiation_actions_total",
			Help: "Number of negotiation actions by action kind",
		},
		[]string{"action"},
	)

	SessionsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymclub_sessions_scheduled_total",
			Help: "Number of sessions confirmed out of accepted negotiations",
		},
	)

	GoalVotes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymclub_goal_votes_total",
			Help: "Number of accepted vote casts, including vote changes",
		},
	)

	GoalsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymclub_goals_closed_total",
			Help: "Number of expired polls moved into fundraising",
		},
	)

	GoalContributions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gymclub_goal_contributions_total",
			Help: "Number of recorded fundraising contributions",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		NegotiationActions,
		SessionsScheduled,
		GoalVotes,
		GoalsClosed,
		GoalContributions,
	)
}
