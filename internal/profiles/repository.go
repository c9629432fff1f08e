// Package profiles 读取候选人、岗位和申请数据。
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillmatch/internal/freshness"
	"skillmatch/internal/storage/models"
	"skillmatch/internal/types"

	"gorm.io/gorm"
)

// Repository 候选人/岗位数据访问
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FetchCandidateSkills 候选人不存在时返回 ErrNotFound，没有技能时返回空切片
func (r *Repository) FetchCandidateSkills(ctx context.Context, candidateID string) ([]types.CandidateSkill, error) {
	if _, err := r.candidate(ctx, candidateID); err != nil {
		return nil, err
	}

	var rows []models.CandidateSkill
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询候选人技能失败: %w", err)
	}

	skills := make([]types.CandidateSkill, 0, len(rows))
	for _, row := range rows {
		skills = append(skills, types.CandidateSkill{
			SkillName:  row.SkillName,
			SkillLevel: row.SkillLevel,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return skills, nil
}

// FetchJobSkills 岗位不存在时返回 ErrNotFound
func (r *Repository) FetchJobSkills(ctx context.Context, jobID string) ([]types.JobSkill, error) {
	if _, err := r.job(ctx, jobID); err != nil {
		return nil, err
	}
	return r.jobSkills(ctx, jobID)
}

func (r *Repository) jobSkills(ctx context.Context, jobID string) ([]types.JobSkill, error) {
	var rows []models.JobSkill
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询岗位技能失败: %w", err)
	}

	skills := make([]types.JobSkill, 0, len(rows))
	for _, row := range rows {
		skills = append(skills, types.JobSkill{
			SkillName:  row.SkillName,
			Category:   row.Category,
			Importance: row.Importance,
		})
	}
	return skills, nil
}

// FetchCandidateFullProfile 返回档案及全部子记录，UpdatedAt 取其中最新的时间
func (r *Repository) FetchCandidateFullProfile(ctx context.Context, candidateID string) (*types.CandidateProfile, error) {
	cand, err := r.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	var (
		skills []models.CandidateSkill
		exps   []models.CandidateExperience
		edus   []models.CandidateEducation
		certs  []models.CandidateCertification
	)
	if err := db.Where("candidate_id = ?", candidateID).Order("id").Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("查询候选人技能失败: %w", err)
	}
	if err := db.Where("candidate_id = ?", candidateID).Order("start_date desc").Find(&exps).Error; err != nil {
		return nil, fmt.Errorf("查询工作经历失败: %w", err)
	}
	if err := db.Where("candidate_id = ?", candidateID).Order("end_date desc").Find(&edus).Error; err != nil {
		return nil, fmt.Errorf("查询教育经历失败: %w", err)
	}
	if err := db.Where("candidate_id = ?", candidateID).Order("issue_date desc").Find(&certs).Error; err != nil {
		return nil, fmt.Errorf("查询证书失败: %w", err)
	}

	profile := &types.CandidateProfile{
		CandidateID:       cand.CandidateID,
		FullName:          cand.FullName,
		Email:             cand.Email,
		CurrentJobTitle:   cand.CurrentJobTitle,
		CurrentCompany:    cand.CurrentCompany,
		YearsOfExperience: cand.YearsOfExperience,
		Bio:               cand.Bio,
		Skills:            make([]types.CandidateSkill, 0, len(skills)),
		Experience:        make([]types.Experience, 0, len(exps)),
		Education:         make([]types.Education, 0, len(edus)),
		Certifications:    make([]types.Certification, 0, len(certs)),
	}

	times := []time.Time{cand.UpdatedAt}
	for _, s := range skills {
		profile.Skills = append(profile.Skills, types.CandidateSkill{SkillName: s.SkillName, SkillLevel: s.SkillLevel, UpdatedAt: s.UpdatedAt})
		times = append(times, s.UpdatedAt)
	}
	for _, e := range exps {
		profile.Experience = append(profile.Experience, types.Experience{
			JobTitle: e.JobTitle, Company: e.Company, StartDate: e.StartDate, EndDate: e.EndDate,
			IsCurrent: e.IsCurrent, Description: e.Description,
		})
		times = append(times, e.UpdatedAt)
	}
	for _, e := range edus {
		profile.Education = append(profile.Education, types.Education{
			Degree: e.Degree, FieldOfStudy: e.FieldOfStudy, Institution: e.Institution,
			StartDate: e.StartDate, EndDate: e.EndDate, Grade: e.Grade,
		})
		times = append(times, e.UpdatedAt)
	}
	for _, c := range certs {
		profile.Certifications = append(profile.Certifications, types.Certification{
			Name: c.Name, IssuingOrganization: c.IssuingOrganization, IssueDate: c.IssueDate, ExpiryDate: c.ExpiryDate,
		})
		times = append(times, c.UpdatedAt)
	}
	profile.UpdatedAt = freshness.Latest(times...)

	return profile, nil
}

// FetchJobFullRecord 返回岗位信息和技能要求
func (r *Repository) FetchJobFullRecord(ctx context.Context, jobID string) (*types.JobRecord, error) {
	job, err := r.job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	skills, err := r.jobSkills(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &types.JobRecord{
		JobID:                  job.JobID,
		JobTitle:               job.JobTitle,
		Department:             job.Department,
		ExperienceLevel:        job.ExperienceLevel,
		JobType:                job.JobType,
		JobDescription:         job.JobDescription,
		Responsibilities:       job.Responsibilities,
		Qualifications:         job.Qualifications,
		NiceToHave:             job.NiceToHave,
		Benefits:               job.Benefits,
		MinimumExperienceYears: job.MinimumExperienceYears,
		RequiredSkills:         skills,
		UpdatedAt:              job.UpdatedAt,
	}, nil
}

// FetchApplication 读取申请及已有的兼容性快照
func (r *Repository) FetchApplication(ctx context.Context, applicationID string) (*types.Application, error) {
	var row models.JobApplication
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("查询申请失败: %w", err)
	}

	app := &types.Application{
		ApplicationID: row.ApplicationID,
		JobID:         row.JobID,
		CandidateID:   row.CandidateID,
		Status:        row.Status,
		AnalysisScore: row.AIAnalysisScore,
		AnalyzedAt:    row.AIAnalyzedAt,
	}
	if len(row.AIAnalysisData) > 0 && string(row.AIAnalysisData) != "null" {
		var analysis types.CompatibilityAnalysis
		// 历史数据损坏时当作没有快照
		if err := json.Unmarshal(row.AIAnalysisData, &analysis); err == nil {
			app.AnalysisData = &analysis
		}
	}
	return app, nil
}

// SaveApplicationAnalysis 写入兼容性快照
func (r *Repository) SaveApplicationAnalysis(ctx context.Context, applicationID string, analysis *types.CompatibilityAnalysis, analyzedAt time.Time) error {
	data, err := models.ToJSON(analysis)
	if err != nil {
		return fmt.Errorf("序列化兼容性分析失败: %w", err)
	}
	score := analysis.OverallScore

	res := r.db.WithContext(ctx).Model(&models.JobApplication{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"ai_analysis_score": score,
			"ai_analysis_data":  data,
			"ai_analyzed_at":    analyzedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("保存兼容性分析失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ReplaceJobSkills 在一个事务里替换岗位的全部技能，岗位的 updated_at 设为 now
func (r *Repository) ReplaceJobSkills(ctx context.Context, jobID string, skills []types.ExtractedSkill, now time.Time) error {
	now = now.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Job{}).Where("job_id = ?", jobID).Update("updated_at", now)
		if res.Error != nil {
			return fmt.Errorf("更新岗位时间失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.ErrNotFound
		}

		if err := tx.Where("job_id = ?", jobID).Delete(&models.JobSkill{}).Error; err != nil {
			return fmt.Errorf("删除岗位技能失败: %w", err)
		}
		if len(skills) == 0 {
			return nil
		}

		rows := make([]models.JobSkill, 0, len(skills))
		for _, s := range skills {
			rows = append(rows, models.JobSkill{
				JobID:      jobID,
				SkillName:  s.Skill,
				Category:   s.Category,
				Importance: s.Importance,
				CreatedAt:  now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("写入岗位技能失败: %w", err)
		}
		return nil
	})
}

func (r *Repository) candidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var cand models.Candidate
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Take(&cand).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	return &cand, nil
}

func (r *Repository) job(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Take(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}
	return &job, nil
}
