package competitionscheduler

import (
	"context"
	"time"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
)

// JobName identifies a scheduled lifecycle job.
type JobName string

const (
	JobOpenSubmissions     JobName = "open_submissions"
	JobCloseSubmissions    JobName = "close_submissions"
	JobRound1SetupRecovery JobName = "round1_setup_recovery"
	JobCloseRound1Voting   JobName = "close_round1_voting"
	JobRound1TallyRecovery JobName = "round1_tally_recovery"
	JobRound2Setup         JobName = "round2_setup"
	JobCloseRound2Voting   JobName = "close_round2_voting"
	JobRound2TallyRecovery JobName = "round2_tally_recovery"
	JobMonthlyCompetition  JobName = "monthly_competition"
)

// Job is one periodic lifecycle task: it selects competitions in Status whose due date
// has passed and applies Run to each.
type Job struct {
	Name     JobName
	Status   competitiondomain.Status
	Schedule Schedule
	Due      func(c *competitiondb.Competition, now time.Time) bool
	Run      func(ctx context.Context, svc competitionservice.Service, competitionID uuid.UUID) error
}

// Timing carries the durations used to estimate round end dates that were never set.
type Timing struct {
	CheckFrequency time.Duration
	Round1Voting   time.Duration
	Round2Voting   time.Duration
}

// Round1End is the stored round 1 end date, or the submission deadline plus the
// round 1 duration when none is stored.
func (t Timing) Round1End(c *competitiondb.Competition) time.Time {
	if !c.Round1VotingEndDate.IsZero() {
		return c.Round1VotingEndDate
	}
	return c.SubmissionDeadline.Add(t.Round1Voting)
}

// Round2End is the stored round 2 end date, or the round 1 end plus the round 2 duration.
func (t Timing) Round2End(c *competitiondb.Competition) time.Time {
	if !c.Round2VotingEndDate.IsZero() {
		return c.Round2VotingEndDate
	}
	return t.Round1End(c).Add(t.Round2Voting)
}

func always(*competitiondb.Competition, time.Time) bool { return true }

func discard[T any](_ T, err error) error { return err }

// DefaultJobs returns the lifecycle jobs in the order a competition meets them.
func DefaultJobs(t Timing) []Job {
	every := Every(t.CheckFrequency)
	return []Job{
		{
			Name:     JobOpenSubmissions,
			Status:   competitiondomain.StatusUpcoming,
			Schedule: every,
			Due: func(c *competitiondb.Competition, now time.Time) bool {
				return !now.Before(c.StartDate)
			},
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.OpenSubmissions(ctx, id))
			},
		},
		{
			Name:     JobCloseSubmissions,
			Status:   competitiondomain.StatusOpenForSubmissions,
			Schedule: every,
			Due: func(c *competitiondb.Competition, now time.Time) bool {
				return !now.Before(c.SubmissionDeadline)
			},
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.CloseSubmissions(ctx, id))
			},
		},
		{
			Name:     JobRound1SetupRecovery,
			Status:   competitiondomain.StatusVotingRound1Setup,
			Schedule: every,
			Due:      always,
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.SetupRound1(ctx, id))
			},
		},
		{
			Name:     JobCloseRound1Voting,
			Status:   competitiondomain.StatusVotingRound1Open,
			Schedule: every,
			Due: func(c *competitiondb.Competition, now time.Time) bool {
				return !now.Before(t.Round1End(c))
			},
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.CloseRound1Voting(ctx, id))
			},
		},
		{
			Name:     JobRound1TallyRecovery,
			Status:   competitiondomain.StatusVotingRound1Tallying,
			Schedule: every,
			Due:      always,
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				if _, err := svc.TallyRound1(ctx, id); err != nil {
					return err
				}
				return discard(svc.SetupRound2(ctx, id))
			},
		},
		{
			Name:     JobRound2Setup,
			Status:   competitiondomain.StatusVotingRound2Setup,
			Schedule: every,
			Due:      always,
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.SetupRound2(ctx, id))
			},
		},
		{
			Name:     JobCloseRound2Voting,
			Status:   competitiondomain.StatusVotingRound2Open,
			Schedule: every,
			Due: func(c *competitiondb.Competition, now time.Time) bool {
				return !now.Before(t.Round2End(c))
			},
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.CloseRound2Voting(ctx, id))
			},
		},
		{
			Name:     JobRound2TallyRecovery,
			Status:   competitiondomain.StatusVotingRound2Tallying,
			Schedule: every,
			Due:      always,
			Run: func(ctx context.Context, svc competitionservice.Service, id uuid.UUID) error {
				return discard(svc.TallyRound2(ctx, id))
			},
		},
	}
}
