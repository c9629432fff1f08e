package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人档案
type Candidate struct {
	CandidateID       string    `gorm:"type:char(36);primaryKey"`
	FullName          string    `gorm:"type:varchar(255)"`
	Email             string    `gorm:"type:varchar(255);index:idx_candidates_email"`
	CurrentJobTitle   string    `gorm:"type:varchar(255)"`
	CurrentCompany    string    `gorm:"type:varchar(255)"`
	YearsOfExperience int       `gorm:"default:0"`
	Bio               string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateSkill 候选人技能
type CandidateSkill struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	CandidateID string    `gorm:"type:char(36);not null;index:idx_cs_candidate_id"`
	SkillName   string    `gorm:"type:varchar(255);not null"`
	SkillLevel  string    `gorm:"type:varchar(50)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateSkill) TableName() string {
	return "candidate_skills"
}

// CandidateExperience 工作经历
type CandidateExperience struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID string     `gorm:"type:char(36);not null;index:idx_ce_candidate_id"`
	JobTitle    string     `gorm:"type:varchar(255)"`
	Company     string     `gorm:"type:varchar(255)"`
	StartDate   *time.Time `gorm:"type:date"`
	EndDate     *time.Time `gorm:"type:date"`
	IsCurrent   bool       `gorm:"default:false"`
	Description string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateExperience) TableName() string {
	return "candidate_experiences"
}

// CandidateEducation 教育经历
type CandidateEducation struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID  string     `gorm:"type:char(36);not null;index:idx_ced_candidate_id"`
	Degree       string     `gorm:"type:varchar(255)"`
	FieldOfStudy string     `gorm:"type:varchar(255)"`
	Institution  string     `gorm:"type:varchar(255)"`
	StartDate    *time.Time `gorm:"type:date"`
	EndDate      *time.Time `gorm:"type:date"`
	Grade        string     `gorm:"type:varchar(50)"`
	CreatedAt    time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt    time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateEducation) TableName() string {
	return "candidate_educations"
}

// CandidateCertification 证书
type CandidateCertification struct {
	ID                  uint64     `gorm:"primaryKey;autoIncrement"`
	CandidateID         string     `gorm:"type:char(36);not null;index:idx_cc_candidate_id"`
	Name                string     `gorm:"type:varchar(255)"`
	IssuingOrganization string     `gorm:"type:varchar(255)"`
	IssueDate           *time.Time `gorm:"type:date"`
	ExpiryDate          *time.Time `gorm:"type:date"`
	CreatedAt           time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CandidateCertification) TableName() string {
	return "candidate_certifications"
}

// Job 岗位信息表
type Job struct {
	JobID                  string    `gorm:"type:char(36);primaryKey"`
	JobTitle               string    `gorm:"type:varchar(255);not null"`
	Department             string    `gorm:"type:varchar(255)"`
	ExperienceLevel        string    `gorm:"type:varchar(50)"`
	JobType                string    `gorm:"type:varchar(50)"`
	JobDescription         string    `gorm:"type:text"`
	Responsibilities       string    `gorm:"type:text"`
	Qualifications         string    `gorm:"type:text"`
	NiceToHave             string    `gorm:"type:text"`
	Benefits               string    `gorm:"type:text"`
	MinimumExperienceYears int       `gorm:"default:0"`
	Status                 string    `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt              time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt              time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobSkill 岗位技能要求
type JobSkill struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	JobID      string    `gorm:"type:char(36);not null;index:idx_js_job_id"`
	SkillName  string    `gorm:"type:varchar(255);not null"`
	Category   string    `gorm:"type:varchar(50);default:'other'"`
	Importance string    `gorm:"type:varchar(50);default:'required'"`
	CreatedAt  time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (JobSkill) TableName() string {
	return "job_skills"
}

// JobApplication 岗位申请，附带兼容性分析快照
type JobApplication struct {
	ApplicationID   string         `gorm:"type:char(36);primaryKey"`
	JobID           string         `gorm:"type:char(36);not null;index:idx_ja_job_id;uniqueIndex:idx_ja_job_candidate,priority:1"`
	CandidateID     string         `gorm:"type:char(36);not null;index:idx_ja_candidate_id;uniqueIndex:idx_ja_job_candidate,priority:2"`
	Status          string         `gorm:"type:varchar(50);default:'SUBMITTED'"`
	AIAnalysisScore *int           `gorm:"type:int"`
	AIAnalysisData  datatypes.JSON `gorm:"type:json"`
	AIAnalyzedAt    *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (JobApplication) TableName() string {
	return "job_applications"
}

// ToJSON 序列化为 datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
