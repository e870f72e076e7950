package candidate

import "time"

// Candidate 是候选人的嵌套领域对象：标量档案字段加上七组一对多子关系。
// JSON 字段名与前端约定保持 camelCase。
type Candidate struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LastUpdated   time.Time `json:"lastUpdated"`
	PipelineStage string    `json:"pipelineStage,omitempty"`

	DOB                    string `json:"dob,omitempty"`
	Gender                 string `json:"gender,omitempty"`
	MaritalStatus          string `json:"maritalStatus,omitempty"`
	HighestEducation       string `json:"highestEducation,omitempty"`
	SecondHighestEducation string `json:"secondHighestEducation,omitempty"`
	ThirdHighestEducation  string `json:"thirdHighestEducation,omitempty"`
	Diploma                string `json:"diploma,omitempty"`
	ITI                    string `json:"iti,omitempty"`
	PUC                    string `json:"puc,omitempty"`
	SSLC                   string `json:"sslc,omitempty"`

	TotalExperience *float64 `json:"totalExperience,omitempty"`
	CurrentRole     string   `json:"currentRole,omitempty"`
	ExpectedRole    string   `json:"expectedRole,omitempty"`
	JobType         string   `json:"jobType,omitempty"`
	ReadyToRelocate string   `json:"readyToRelocate,omitempty"`
	NoticePeriod    string   `json:"noticePeriod,omitempty"`
	CurrentCTC      string   `json:"currentCTC,omitempty"`
	ExpectedCTC     string   `json:"expectedCTC,omitempty"`
	SectorType      string   `json:"sectorType,omitempty"`

	// "Yes" / "No"，持久化为布尔列；空串表示未填写。
	LookingForJobsAbroad string `json:"lookingForJobsAbroad,omitempty"`
	HasCurrentOffers     string `json:"hasCurrentOffers,omitempty"`

	BestTimeToContact      string `json:"bestTimeToContact,omitempty"`
	PreferredModeOfContact string `json:"preferredModeOfContact,omitempty"`
	Summary                string `json:"summary,omitempty"`

	OriginalResume *OriginalResume `json:"originalResume,omitempty"`

	Skills              []string `json:"skills"`
	Languages           []string `json:"languages"`
	Certificates        []string `json:"certificates"`
	PreferredIndustries []string `json:"preferredIndustries"`
	CurrentLocations    []string `json:"currentLocations"`
	PreferredLocations  []string `json:"preferredLocations"`

	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`

	CreatedAt time.Time `json:"createdAt"`
}

// Experience 是一段工作经历，持久化时拥有独立 ID。
type Experience struct {
	ID          string `json:"id,omitempty"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
	ToolsUsed   string `json:"toolsUsed,omitempty"`
}

// Education 是一段教育经历。
type Education struct {
	ID          string `json:"id,omitempty"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Duration    string `json:"duration,omitempty"`
}

// OriginalResume 记录上传的原始简历文件，content 为自描述 data URI。
type OriginalResume struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}
