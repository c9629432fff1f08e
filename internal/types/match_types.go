package types

import "time"

// Requirement 岗位对技能的要求级别
type Requirement string

const (
	RequirementRequired   Requirement = "required"
	RequirementPreferred  Requirement = "preferred"
	RequirementNiceToHave Requirement = "nice_to_have"
)

// NormalizeRequirement 未知值按 required 处理
func NormalizeRequirement(s string) Requirement {
	switch Requirement(s) {
	case RequirementPreferred:
		return RequirementPreferred
	case RequirementNiceToHave:
		return RequirementNiceToHave
	case "nice-to-have", "nicetohave", "nice to have":
		return RequirementNiceToHave
	default:
		return RequirementRequired
	}
}

// MatchQuality 技能匹配程度
type MatchQuality string

const (
	MatchQualityExact   MatchQuality = "exact"
	MatchQualitySimilar MatchQuality = "similar"
)

// CacheSource 结果来源
type CacheSource string

const (
	CacheSourceFast   CacheSource = "fast"
	CacheSourceDetail CacheSource = "detail"
	CacheSourceFresh  CacheSource = "fresh"
)

// CandidateSkill 候选人的一项技能
type CandidateSkill struct {
	SkillName  string    `json:"skill_name"`
	SkillLevel string    `json:"skill_level,omitempty"`
	UpdatedAt  time.Time `json:"-"`
}

// JobSkill 岗位的一项技能要求
type JobSkill struct {
	SkillName  string `json:"skill_name"`
	Category   string `json:"category,omitempty"`
	Importance string `json:"importance,omitempty"`
}

// MatchingSkill 候选人已具备的岗位技能
type MatchingSkill struct {
	Skill          string       `json:"skill"`
	CandidateLevel string       `json:"candidate_level,omitempty"`
	JobRequirement Requirement  `json:"job_requirement"`
	MatchQuality   MatchQuality `json:"match_quality"`
}

// MissingSkill 候选人缺失的岗位技能
type MissingSkill struct {
	Skill          string      `json:"skill"`
	JobRequirement Requirement `json:"job_requirement"`
	Importance     string      `json:"importance,omitempty"`
}

// MatchResult 一次技能匹配分析的结果
type MatchResult struct {
	MatchingSkills  []MatchingSkill `json:"matching_skills"`
	MissingSkills   []MissingSkill  `json:"missing_skills"`
	MatchPercentage int             `json:"match_percentage"`
}

// CategoryBreakdown 按要求级别统计的匹配数量
type CategoryBreakdown struct {
	RequiredMatched   int `json:"requiredMatched"`
	RequiredTotal     int `json:"requiredTotal"`
	PreferredMatched  int `json:"preferredMatched"`
	PreferredTotal    int `json:"preferredTotal"`
	NiceToHaveMatched int `json:"niceToHaveMatched"`
	NiceToHaveTotal   int `json:"niceToHaveTotal"`
}

// MatchResponse GetMatch 的返回结构
type MatchResponse struct {
	CandidateID     string            `json:"candidateId"`
	JobID           string            `json:"jobId"`
	MatchingSkills  []MatchingSkill   `json:"matchingSkills"`
	MissingSkills   []MissingSkill    `json:"missingSkills"`
	MatchPercentage int               `json:"matchPercentage"`
	Breakdown       CategoryBreakdown `json:"breakdown"`
	AnalysisDate    time.Time         `json:"analysisDate"`
	Cached          bool              `json:"cached"`
	CacheSource     CacheSource       `json:"cacheSource"`
}

// ScoreBreakdown 兼容性分析的分项得分
type ScoreBreakdown struct {
	SkillsMatch     int `json:"skills_match"`
	ExperienceMatch int `json:"experience_match"`
	EducationMatch  int `json:"education_match"`
	OverallFit      int `json:"overall_fit"`
}

// CompatibilityAnalysis 候选人与岗位的整体兼容性分析
type CompatibilityAnalysis struct {
	OverallScore    int            `json:"overall_score"`
	ScoreBreakdown  ScoreBreakdown `json:"score_breakdown"`
	Strengths       []string       `json:"strengths"`
	SkillGaps       []string       `json:"skill_gaps"`
	ExperienceGaps  []string       `json:"experience_gaps"`
	Recommendations []string       `json:"recommendations"`
	FitLevel        string         `json:"fit_level"`
	Summary         string         `json:"summary"`
}

// SnapshotResponse GetCompatibilitySnapshot 的返回结构
type SnapshotResponse struct {
	ApplicationID   string         `json:"applicationId"`
	CandidateName   string         `json:"candidateName"`
	JobTitle        string         `json:"jobTitle"`
	OverallScore    int            `json:"overallScore"`
	ScoreBreakdown  ScoreBreakdown `json:"scoreBreakdown"`
	Strengths       []string       `json:"strengths"`
	SkillGaps       []string       `json:"skillGaps"`
	ExperienceGaps  []string       `json:"experienceGaps"`
	Recommendations []string       `json:"recommendations"`
	FitLevel        string         `json:"fitLevel"`
	Summary         string         `json:"summary"`
	AnalyzedAt      time.Time      `json:"analyzedAt"`
	Cached          bool           `json:"cached"`
}

// Experience 工作经历
type Experience struct {
	JobTitle    string     `json:"job_title"`
	Company     string     `json:"company"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsCurrent   bool       `json:"is_current"`
	Description string     `json:"description,omitempty"`
}

// Education 教育经历
type Education struct {
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"field_of_study,omitempty"`
	Institution  string     `json:"institution"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Grade        string     `json:"grade,omitempty"`
}

// Certification 证书
type Certification struct {
	Name                string     `json:"name"`
	IssuingOrganization string     `json:"issuing_organization,omitempty"`
	IssueDate           *time.Time `json:"issue_date,omitempty"`
	ExpiryDate          *time.Time `json:"expiry_date,omitempty"`
}

// CandidateProfile 候选人完整档案，Email 不进入提示词
type CandidateProfile struct {
	CandidateID       string           `json:"candidate_id"`
	FullName          string           `json:"full_name"`
	Email             string           `json:"-"`
	CurrentJobTitle   string           `json:"current_job_title,omitempty"`
	CurrentCompany    string           `json:"current_company,omitempty"`
	YearsOfExperience int              `json:"years_of_experience"`
	Bio               string           `json:"bio,omitempty"`
	Skills            []CandidateSkill `json:"skills"`
	Experience        []Experience     `json:"experience"`
	Education         []Education      `json:"education"`
	Certifications    []Certification  `json:"certifications"`
	// UpdatedAt 档案及其子记录中最新的更新时间
	UpdatedAt time.Time `json:"-"`
}

// JobRecord 岗位完整信息
type JobRecord struct {
	JobID                  string     `json:"job_id"`
	JobTitle               string     `json:"job_title"`
	Department             string     `json:"department,omitempty"`
	ExperienceLevel        string     `json:"experience_level,omitempty"`
	JobType                string     `json:"job_type,omitempty"`
	JobDescription         string     `json:"job_description,omitempty"`
	Responsibilities       string     `json:"responsibilities,omitempty"`
	Qualifications         string     `json:"qualifications,omitempty"`
	NiceToHave             string     `json:"nice_to_have,omitempty"`
	Benefits               string     `json:"benefits,omitempty"`
	MinimumExperienceYears int        `json:"minimum_experience_years"`
	RequiredSkills         []JobSkill `json:"required_skills"`
	UpdatedAt              time.Time  `json:"-"`
}

// Application 岗位申请及其兼容性快照
type Application struct {
	ApplicationID string
	JobID         string
	CandidateID   string
	Status        string
	// 快照字段，未分析过时为空
	AnalysisScore *int
	AnalysisData  *CompatibilityAnalysis
	AnalyzedAt    *time.Time
}

// ExtractedSkill 从岗位描述中提取的技能
type ExtractedSkill struct {
	Skill      string `json:"skill"`
	Category   string `json:"category"`
	Importance string `json:"importance"`
}

// SkillRecommendation 针对缺失技能的学习建议
type SkillRecommendation struct {
	Skill         string `json:"skill"`
	LearningPath  string `json:"learning_path"`
	Resources     string `json:"resources"`
	EstimatedTime string `json:"estimated_time"`
	Difficulty    string `json:"difficulty"`
}

// RecommendationResponse 技能推荐的返回结构
type RecommendationResponse struct {
	CandidateID     string                `json:"candidateId"`
	JobID           string                `json:"jobId"`
	Recommendations []SkillRecommendation `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generatedAt"`
	Cached          bool                  `json:"cached"`
}
