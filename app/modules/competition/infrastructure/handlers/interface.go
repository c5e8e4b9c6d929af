package competitionhandlers

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	competitionscheduler "github.com/beatclash/beatclash/app/modules/competition/infrastructure/scheduler"
)

// Handlers defines the HTTP and event handlers of the competition module.
type Handlers interface {
	HandleHealth(w http.ResponseWriter, r *http.Request)
	HandleListCompetitions(w http.ResponseWriter, r *http.Request)
	HandleGetCompetition(w http.ResponseWriter, r *http.Request)
	HandleUpdateStatus(w http.ResponseWriter, r *http.Request)
	HandleSubmitJudgment(w http.ResponseWriter, r *http.Request)
	HandleConvertJudgments(w http.ResponseWriter, r *http.Request)
	HandleSubmitVotes(w http.ResponseWriter, r *http.Request)
	HandleRecordPicks(w http.ResponseWriter, r *http.Request)
	HandleListJobs(w http.ResponseWriter, r *http.Request)
	HandleRunJob(w http.ResponseWriter, r *http.Request)

	// HandleLifecycleEvent audits a published lifecycle event.
	HandleLifecycleEvent(msg *message.Message) error
}

// JobRunner triggers scheduler jobs on demand.
type JobRunner interface {
	Run(ctx context.Context, name competitionscheduler.JobName) (competitionscheduler.RunReport, error)
	LastReports() []competitionscheduler.RunReport
}

// JobHistory lists persisted scheduler job rows, newest first.
type JobHistory interface {
	RecentJobs(ctx context.Context, limit int) ([]competitionscheduler.JobInfo, error)
}

// HealthCheckFunc reports whether a dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error
