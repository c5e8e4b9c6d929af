package competitionservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
)

// CreateMonthlyCompetition creates the auto-generated competition for the month
// containing now. It is a no-op when one already exists.
func (s *CompetitionService) CreateMonthlyCompetition(ctx context.Context, now time.Time) (*CreationResult, error) {
	box := &outbox{}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return unwrap(withTelemetry(s, ctx, "CreateMonthlyCompetition", monthStart.Format("2006-01"), func(ctx context.Context) (results.OperationResult[*CreationResult, error], error) {
		return runInTx(s, ctx, box, func(ctx context.Context, db bun.IDB) (results.OperationResult[*CreationResult, error], error) {
			return s.createMonthlyLogic(ctx, db, monthStart, box)
		})
	}))
}

func (s *CompetitionService) createMonthlyLogic(ctx context.Context, db bun.IDB, monthStart time.Time, box *outbox) (results.OperationResult[*CreationResult, error], error) {
	existing, err := s.repo.GetCompetitionsStartingBetween(ctx, db, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return failureOrError[*CreationResult](fmt.Errorf("failed to check existing competitions: %w", err))
	}
	for _, c := range existing {
		if c.IsAutoCreated {
			return results.SuccessResult[*CreationResult, error](&CreationResult{Competition: c}), nil
		}
	}

	deadline, err := parseRelative(s.opts.MonthlySubmissionWindow, monthStart)
	if err != nil {
		return failureOrError[*CreationResult](err)
	}
	c := &competitiondb.Competition{
		ID:                  uuid.New(),
		Title:               fmt.Sprintf("%s Monthly Competition", monthStart.Format("January 2006")),
		Description:         "Automatically created monthly competition.",
		Status:              competitiondomain.StatusUpcoming,
		StartDate:           monthStart,
		SubmissionDeadline:  deadline,
		Round1VotingEndDate: deadline.Add(s.opts.Round1Voting),
		Round2VotingEndDate: deadline.Add(s.opts.Round1Voting + s.opts.Round2Voting),
		IsAutoCreated:       true,
	}
	if err := competitiondomain.ValidateSchedule(c.StartDate, c.SubmissionDeadline, c.Round1VotingEndDate, c.Round2VotingEndDate); err != nil {
		return failureOrError[*CreationResult](err)
	}
	if err := s.repo.CreateCompetition(ctx, db, c); err != nil {
		return failureOrError[*CreationResult](fmt.Errorf("failed to create competition: %w", err))
	}

	box.add(competitionevents.CompetitionCreatedV1, competitionevents.CompetitionCreatedPayload{
		CompetitionID:      c.ID,
		Title:              c.Title,
		StartDate:          c.StartDate,
		SubmissionDeadline: c.SubmissionDeadline,
	})
	return results.SuccessResult[*CreationResult, error](&CreationResult{Competition: c, Created: true}), nil
}

// parseRelative resolves a natural-language offset such as "in 3 weeks" against base.
func parseRelative(text string, base time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(strings.ToLower(strings.TrimSpace(text)), base)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse submission window %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognised submission window %q", text)
	}
	if !r.Time.After(base) {
		return time.Time{}, fmt.Errorf("submission window %q does not end after %s", text, base.Format(time.DateOnly))
	}
	return r.Time.UTC(), nil
}
