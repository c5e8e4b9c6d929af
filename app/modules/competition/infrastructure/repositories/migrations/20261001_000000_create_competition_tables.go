package competitionmigrations

import (
	"context"
	"fmt"

	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/uptrace/bun"
)

type tableSpec struct {
	model       any
	foreignKeys []string
}

// Ordered so every foreign key points at a table created earlier.
var competitionTables = []tableSpec{
	{model: (*competitiondb.Competition)(nil)},
	{
		model:       (*competitiondb.Submission)(nil),
		foreignKeys: []string{`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`},
	},
	{
		model: (*competitiondb.SubmissionGroup)(nil),
		foreignKeys: []string{
			`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`,
			`("submission_id") REFERENCES "competition_submissions" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*competitiondb.Round1Assignment)(nil),
		foreignKeys: []string{
			`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`,
			`("submission_id") REFERENCES "competition_submissions" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*competitiondb.SubmissionVote)(nil),
		foreignKeys: []string{
			`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`,
			`("submission_id") REFERENCES "competition_submissions" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*competitiondb.SubmissionJudgment)(nil),
		foreignKeys: []string{
			`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`,
			`("submission_id") REFERENCES "competition_submissions" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model:       (*competitiondb.CriteriaScore)(nil),
		foreignKeys: []string{`("judgment_id") REFERENCES "submission_judgments" ("id") ON DELETE CASCADE`},
	},
	{
		model: (*competitiondb.SongCreatorPick)(nil),
		foreignKeys: []string{
			`("competition_id") REFERENCES "competitions" ("id") ON DELETE CASCADE`,
			`("submission_id") REFERENCES "competition_submissions" ("id") ON DELETE CASCADE`,
		},
	},
}

type indexSpec struct {
	model   any
	name    string
	columns []string
}

var competitionIndexes = []indexSpec{
	{model: (*competitiondb.Competition)(nil), name: "idx_competitions_status_start", columns: []string{"status", "start_date"}},
	{model: (*competitiondb.Submission)(nil), name: "idx_competition_submissions_competition", columns: []string{"competition_id"}},
	{model: (*competitiondb.SubmissionGroup)(nil), name: "idx_submission_groups_competition_group", columns: []string{"competition_id", "group_number"}},
	{model: (*competitiondb.SubmissionVote)(nil), name: "idx_submission_votes_competition_round", columns: []string{"competition_id", "round"}},
	{model: (*competitiondb.SubmissionJudgment)(nil), name: "idx_submission_judgments_judge", columns: []string{"competition_id", "judge_id", "round"}},
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating competition tables...")
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				for _, t := range competitionTables {
					q := tx.NewCreateTable().Model(t.model).IfNotExists()
					for _, fk := range t.foreignKeys {
						q = q.ForeignKey(fk)
					}
					if _, err := q.Exec(ctx); err != nil {
						return fmt.Errorf("failed to create table for %T: %w", t.model, err)
					}
				}
				for _, idx := range competitionIndexes {
					if _, err := tx.NewCreateIndex().
						Model(idx.model).
						Index(idx.name).
						Column(idx.columns...).
						IfNotExists().
						Exec(ctx); err != nil {
						return fmt.Errorf("failed to create index %s: %w", idx.name, err)
					}
				}
				fmt.Println("Competition tables created successfully!")
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping competition tables...")
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				for i := len(competitionTables) - 1; i >= 0; i-- {
					if _, err := tx.NewDropTable().Model(competitionTables[i].model).IfExists().Cascade().Exec(ctx); err != nil {
						return fmt.Errorf("failed to drop table for %T: %w", competitionTables[i].model, err)
					}
				}
				fmt.Println("Competition tables dropped successfully!")
				return nil
			})
		},
	)
}
