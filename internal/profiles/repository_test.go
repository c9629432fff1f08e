package profiles

import (
	"context"
	"os"
	"testing"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/storage"
	"skillmatch/internal/storage/models"
	"skillmatch/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SKILLMATCH_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SKILLMATCH_TEST_MYSQL_DSN 未设置，跳过MySQL集成测试")
	}
	m, err := storage.OpenMySQL(dsn, &config.MySQLConfig{LogLevel: 1, AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m.DB()
}

func seed(t *testing.T, db *gorm.DB) (candidateID, jobID, applicationID string) {
	t.Helper()
	candidateID = uuid.Must(uuid.NewV4()).String()
	jobID = uuid.Must(uuid.NewV4()).String()
	applicationID = uuid.Must(uuid.NewV4()).String()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.Candidate{CandidateID: candidateID, FullName: "Ada Lovelace", UpdatedAt: base}).Error)
	require.NoError(t, db.Create(&models.Job{JobID: jobID, JobTitle: "Backend Engineer", UpdatedAt: base}).Error)
	require.NoError(t, db.Create(&models.JobApplication{ApplicationID: applicationID, JobID: jobID, CandidateID: candidateID}).Error)

	t.Cleanup(func() {
		db.Where("candidate_id = ?", candidateID).Delete(&models.CandidateSkill{})
		db.Where("candidate_id = ?", candidateID).Delete(&models.CandidateExperience{})
		db.Where("job_id = ?", jobID).Delete(&models.JobSkill{})
		db.Where("application_id = ?", applicationID).Delete(&models.JobApplication{})
		db.Where("candidate_id = ?", candidateID).Delete(&models.Candidate{})
		db.Where("job_id = ?", jobID).Delete(&models.Job{})
	})
	return candidateID, jobID, applicationID
}

func TestRepository_NotFound(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.FetchCandidateSkills(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = repo.FetchJobSkills(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = repo.FetchApplication(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, repo.ReplaceJobSkills(ctx, "missing", nil, time.Now()), types.ErrNotFound)
}

func TestRepository_ProfileUpdatedAtIncludesSubRecords(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	c, _, _ := seed(t, db)

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.CandidateExperience{CandidateID: c, JobTitle: "Engineer", Company: "Acme", UpdatedAt: later}).Error)

	profile, err := repo.FetchCandidateFullProfile(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	assert.Len(t, profile.Experience, 1)
	assert.False(t, profile.UpdatedAt.Before(later), "子记录更新时间应计入档案更新时间")
}

func TestRepository_ReplaceJobSkillsAndSnapshot(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	_, j, app := seed(t, db)

	before, err := repo.FetchJobFullRecord(ctx, j)
	require.NoError(t, err)
	assert.Empty(t, before.RequiredSkills)

	updatedAt := time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.ReplaceJobSkills(ctx, j, []types.ExtractedSkill{
		{Skill: "go", Category: "technical", Importance: "required"},
		{Skill: "communication", Category: "soft", Importance: "preferred"},
	}, updatedAt))

	after, err := repo.FetchJobFullRecord(ctx, j)
	require.NoError(t, err)
	assert.Len(t, after.RequiredSkills, 2)
	assert.True(t, after.UpdatedAt.Equal(updatedAt), "updated_at 取调用方传入的时间")

	analyzedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SaveApplicationAnalysis(ctx, app, &types.CompatibilityAnalysis{OverallScore: 77, FitLevel: "Good"}, analyzedAt))

	got, err := repo.FetchApplication(ctx, app)
	require.NoError(t, err)
	require.NotNil(t, got.AnalysisData)
	require.NotNil(t, got.AnalysisScore)
	assert.Equal(t, 77, *got.AnalysisScore)
	assert.Equal(t, "Good", got.AnalysisData.FitLevel)
	require.NotNil(t, got.AnalyzedAt)
	assert.True(t, got.AnalyzedAt.Equal(analyzedAt))
}
