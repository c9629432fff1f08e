package analysis

const skillMatchSystemPrompt = "You are an expert recruiter analyzing skill compatibility. Return only valid JSON objects."

const skillMatchPromptTemplate = `Analyze the skill match between a candidate and a job posting.

CANDIDATE SKILLS:
%s

JOB REQUIRED SKILLS:
%s

Return ONLY a JSON object in this exact format:
{
  "match_percentage": 85,
  "matching_skills": [
    {"skill": "React", "candidate_level": "Intermediate", "job_requirement": "required", "match_quality": "exact"}
  ],
  "missing_skills": [
    {"skill": "Docker", "job_requirement": "preferred", "importance": "medium"}
  ]
}

Rules:
- Consider skill variations (e.g., "React" matches "React.js", "JavaScript" matches "JS")
- Be generous with matching - include similar skills
- Calculate match percentage based on required skills only
- Include soft skills in analysis
- Prioritize exact matches over similar ones
- job_requirement must be one of: required, preferred, nice_to_have
- match_quality must be one of: exact, similar`

const compatibilitySystemPrompt = "You are an expert recruiter and HR analyst providing objective candidate assessments. Return only valid JSON objects."

const compatibilityPromptTemplate = `You are an expert recruiter analyzing candidate fit for a job position.
Analyze the candidate's qualifications against the job requirements comprehensively.

JOB REQUIREMENTS:
Job Title: %s
Experience Level: %s
Job Type: %s
Job Description: %s
Responsibilities: %s
Required Qualifications: %s
Nice to Have: %s
Minimum Experience: %d years
Required Skills: %s

CANDIDATE PROFILE:
Current Role: %s
Current Company: %s
Years of Experience: %d
Bio: %s

Candidate Skills:
%s

Work Experience:
%s

Education:
%s

Certifications:
%s

Return ONLY a JSON object in this EXACT format:
{
  "overall_score": 85,
  "score_breakdown": {
    "skills_match": 80,
    "experience_match": 90,
    "education_match": 85,
    "overall_fit": 85
  },
  "strengths": ["Strong technical skills in required technologies"],
  "skill_gaps": ["Missing: React.js - Required for frontend development"],
  "experience_gaps": ["Lacks experience in leading teams"],
  "recommendations": ["Strong candidate - Schedule interview immediately"],
  "fit_level": "Excellent Fit",
  "summary": "This candidate demonstrates strong alignment with the job requirements."
}

SCORING GUIDELINES:
- 90-100: Excellent fit - Exceeds requirements
- 75-89: Good fit - Meets most requirements
- 60-74: Moderate fit - Meets some requirements
- Below 60: Poor fit - Significant gaps

IMPORTANT RULES:
- Be objective and data-driven in analysis
- Highlight specific skill and experience gaps
- Consider years of experience vs job requirements
- Evaluate education relevance
- Provide actionable recommendations
- Be honest about gaps but also highlight strengths
- Score should reflect realistic compatibility`

const extractionSystemPrompt = "You are an expert at analyzing job postings and extracting technical skills. Return only valid JSON objects."

const extractionPromptTemplate = `Analyze the following job posting and extract ALL technical skills, tools, technologies, and competencies mentioned.

Job Title: %s
Department: %s
Job Description: %s
Responsibilities: %s
Qualifications: %s
Nice to Have: %s
Benefits: %s%s

Return ONLY a JSON object in this exact format:
{
  "skills": [
    {"skill": "React", "category": "framework", "importance": "required"},
    {"skill": "TypeScript", "category": "language", "importance": "preferred"}
  ]
}

IMPORTANT: If there are manually specified required skills, you MUST include ALL of them in your output as "required" importance.
Additionally, extract any other skills mentioned in the job description, responsibilities, and qualifications.
Be comprehensive but precise. Include programming languages, frameworks, tools, methodologies, soft skills, etc.
Normalize skill names (e.g., "React.js" -> "React").
Do not include generic terms like "experience" or "knowledge".
importance must be one of: required, preferred, nice_to_have`

const recommendationSystemPrompt = "You are a career development expert providing skill learning recommendations. Return only valid JSON objects."

const recommendationPromptTemplate = `Provide learning recommendations for these missing skills:
%s

Return ONLY a JSON object in this format:
{
  "recommendations": [
    {"skill": "Docker", "learning_path": "Brief path", "resources": "Resource1; Resource2", "estimated_time": "2 weeks", "difficulty": "beginner"}
  ]
}

Focus on practical, actionable learning paths.
Include free and paid resources.
Be specific about time estimates.`
