package competitionintegrationtests

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/integration_tests/testutils"
)

var (
	testEnv     *testutils.TestEnvironment
	testEnvErr  error
	testEnvOnce sync.Once
)

// CompetitionTestDeps bundles a real service over the shared Postgres container.
type CompetitionTestDeps struct {
	Ctx       context.Context
	Repo      competitiondb.Repository
	BunDB     *bun.DB
	Service   *competitionservice.CompetitionService
	Publisher *capturePublisher
	Generator *testutils.TestDataGenerator
}

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()

	testEnvOnce.Do(func() {
		log.Println("Initializing competition test environment...")
		testEnv, testEnvErr = testutils.NewTestEnvironment(t, false)
	})
	if testEnvErr != nil {
		t.Fatalf("Competition test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

func SetupTestCompetitionService(t *testing.T) CompetitionTestDeps {
	t.Helper()
	env := GetTestEnv(t)

	resetCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := env.Reset(resetCtx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	repo := competitiondb.NewRepository(env.DB)
	pub := &capturePublisher{}
	svc := competitionservice.NewCompetitionService(
		repo,
		env.Logger,
		competitionmetrics.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test_competition_service"),
		env.DB,
		competitionservice.WithPublisher(pub),
		competitionservice.WithOptions(competitionservice.Options{
			MinSubmissions:          3,
			GroupSize:               3,
			AdvancePerGroup:         1,
			Round1Voting:            7 * 24 * time.Hour,
			Round2Voting:            7 * 24 * time.Hour,
			MonthlySubmissionWindow: "in 3 weeks",
		}),
	)

	return CompetitionTestDeps{
		Ctx:       env.Ctx,
		Repo:      repo,
		BunDB:     env.DB,
		Service:   svc,
		Publisher: pub,
		Generator: testutils.NewTestDataGenerator(),
	}
}

// round1Targets returns what a voter must rank in round 1.
func round1Targets(t *testing.T, deps CompetitionTestDeps, competitionID, voter uuid.UUID) []uuid.UUID {
	t.Helper()
	a, err := deps.Repo.GetRound1Assignment(deps.Ctx, nil, competitionID, voter)
	if err != nil {
		t.Fatalf("Failed to load assignment for %s: %v", voter, err)
	}
	groups, err := deps.Repo.GetSubmissionGroups(deps.Ctx, nil, competitionID)
	if err != nil {
		t.Fatalf("Failed to load groups: %v", err)
	}
	members := make([]competitiondomain.GroupMember, len(groups))
	for i, g := range groups {
		members[i] = competitiondomain.GroupMember{SubmissionID: g.SubmissionID, GroupNumber: g.GroupNumber}
	}
	return competitiondomain.GroupTargets(members, a.AssignedGroupNumber, a.SubmissionID)
}

func ballot(targets []uuid.UUID) []uuid.UUID {
	return targets[:competitiondomain.RequiredRanks(len(targets))]
}

// capturePublisher records published messages per topic.
type capturePublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published[topic])
}
