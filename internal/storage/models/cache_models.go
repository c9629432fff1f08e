package models

import (
	"time"

	"gorm.io/datatypes"
)

// SkillMatchScore 快速层：只保存分数和分类计数
type SkillMatchScore struct {
	ID                     string    `gorm:"type:char(36);primaryKey"`
	CandidateID            string    `gorm:"type:char(36);not null;uniqueIndex:uq_sms_candidate_job,priority:1"`
	JobID                  string    `gorm:"type:char(36);not null;uniqueIndex:uq_sms_candidate_job,priority:2;index:idx_sms_job_id"`
	OverallMatchPercentage int       `gorm:"not null;default:0"`
	RequiredSkillsMatched  int       `gorm:"not null;default:0"`
	RequiredSkillsTotal    int       `gorm:"not null;default:0"`
	PreferredSkillsMatched int       `gorm:"not null;default:0"`
	PreferredSkillsTotal   int       `gorm:"not null;default:0"`
	NiceToHaveMatched      int       `gorm:"not null;default:0"`
	NiceToHaveTotal        int       `gorm:"not null;default:0"`
	HitCount               int       `gorm:"not null;default:0"`
	ScoreComputedAt        time.Time `gorm:"type:datetime(6);not null"`
	ScoreValidUntil        time.Time `gorm:"type:datetime(6);not null;index:idx_sms_valid_until"`
	CreatedAt              time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt              time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (SkillMatchScore) TableName() string {
	return "skill_match_scores"
}

// JobSkillAnalysis 明细层：保存完整的匹配/缺失技能列表
type JobSkillAnalysis struct {
	ID                   string         `gorm:"type:char(36);primaryKey"`
	CandidateID          string         `gorm:"type:char(36);not null;uniqueIndex:uq_jsa_candidate_job,priority:1"`
	JobID                string         `gorm:"type:char(36);not null;uniqueIndex:uq_jsa_candidate_job,priority:2;index:idx_jsa_job_id"`
	MatchingSkills       datatypes.JSON `gorm:"type:json"`
	MissingSkills        datatypes.JSON `gorm:"type:json"`
	SkillMatchPercentage int            `gorm:"not null;default:0"`
	AnalysisDate         time.Time      `gorm:"type:datetime(6);not null"`
	CacheValidUntil      time.Time      `gorm:"type:datetime(6);not null;index:idx_jsa_valid_until"`
	IsCached             bool           `gorm:"not null;default:true"`
	AICallCount          int            `gorm:"not null;default:1"`
	CacheHitCount        int            `gorm:"not null;default:0"`
	CreatedAt            time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt            time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (JobSkillAnalysis) TableName() string {
	return "job_skill_analysis"
}

// JobSkillRecommendation 缺失技能的学习建议缓存
type JobSkillRecommendation struct {
	ID              string         `gorm:"type:char(36);primaryKey"`
	CandidateID     string         `gorm:"type:char(36);not null;uniqueIndex:uq_jsr_candidate_job,priority:1"`
	JobID           string         `gorm:"type:char(36);not null;uniqueIndex:uq_jsr_candidate_job,priority:2"`
	Recommendations datatypes.JSON `gorm:"type:json"`
	GeneratedAt     time.Time      `gorm:"type:datetime(6);not null"`
	ValidUntil      time.Time      `gorm:"type:datetime(6);not null"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (JobSkillRecommendation) TableName() string {
	return "job_skill_recommendations"
}

// AllModels 需要自动迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Candidate{},
		&CandidateSkill{},
		&CandidateExperience{},
		&CandidateEducation{},
		&CandidateCertification{},
		&Job{},
		&JobSkill{},
		&JobApplication{},
		&SkillMatchScore{},
		&JobSkillAnalysis{},
		&JobSkillRecommendation{},
		&OutboxMessage{},
	}
}
