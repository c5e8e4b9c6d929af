package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
)

// TestDataGenerator provides methods to create test data for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed the generator was built with.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// CompetitionOptions constrains a generated competition.
type CompetitionOptions struct {
	Status             competitiondomain.Status
	StartDate          time.Time
	SubmissionDeadline time.Time
	SongCreatorID      *uuid.UUID
}

// GenerateCompetition builds a competition that is not yet persisted.
func (g *TestDataGenerator) GenerateCompetition(opts CompetitionOptions) *competitiondb.Competition {
	status := opts.Status
	if status == "" {
		status = competitiondomain.StatusUpcoming
	}
	start := opts.StartDate
	if start.IsZero() {
		start = time.Now().UTC().Add(-14 * 24 * time.Hour)
	}
	deadline := opts.SubmissionDeadline
	if deadline.IsZero() {
		deadline = start.Add(7 * 24 * time.Hour)
	}
	creator := opts.SongCreatorID
	if creator == nil {
		id := uuid.New()
		creator = &id
	}
	return &competitiondb.Competition{
		ID:                 uuid.New(),
		Title:              g.faker.Sentence(g.faker.Number(2, 5)),
		Description:        g.faker.Paragraph(1, 2, 8, " "),
		Status:             status,
		StartDate:          start.UTC().Truncate(time.Microsecond),
		SubmissionDeadline: deadline.UTC().Truncate(time.Microsecond),
		SongCreatorID:      creator,
	}
}

// GenerateSubmissions builds count submissions from distinct users.
func (g *TestDataGenerator) GenerateSubmissions(competitionID uuid.UUID, count int) []*competitiondb.Submission {
	base := time.Now().UTC().Add(-time.Duration(count) * time.Hour).Truncate(time.Microsecond)
	out := make([]*competitiondb.Submission, count)
	for i := range count {
		out[i] = &competitiondb.Submission{
			ID:                        uuid.New(),
			CompetitionID:             competitionID,
			UserID:                    uuid.New(),
			Title:                     g.faker.Sentence(g.faker.Number(1, 4)),
			AudioURL:                  fmt.Sprintf("%s/%d.mp3", g.faker.URL(), i),
			SubmittedAt:               base.Add(time.Duration(i) * time.Hour),
			IsEligibleForRound1Voting: true,
		}
	}
	return out
}

// InsertCompetition persists a competition with count submissions.
func (g *TestDataGenerator) InsertCompetition(ctx context.Context, repo competitiondb.Repository, db bun.IDB, opts CompetitionOptions, count int) (*competitiondb.Competition, []*competitiondb.Submission, error) {
	c := g.GenerateCompetition(opts)
	if err := repo.CreateCompetition(ctx, db, c); err != nil {
		return nil, nil, err
	}
	subs := g.GenerateSubmissions(c.ID, count)
	for _, s := range subs {
		if err := repo.CreateSubmission(ctx, db, s); err != nil {
			return nil, nil, err
		}
	}
	return c, subs, nil
}
