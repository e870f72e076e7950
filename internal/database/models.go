package database

import (
	"time"

	"gorm.io/datatypes"
)

// User 表示系统账号，角色为 Admin 或 Recruiter。
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:20;not null;default:Recruiter"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// AIProvider 保存一套外部 AI 服务的接入配置。
type AIProvider struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:100;not null"`
	APIKey        string    `gorm:"column:api_key;type:text;not null"`
	BaseURL       string    `gorm:"column:base_url;size:255"`
	ParsingModel  string    `gorm:"size:100;not null"`
	MatchingModel string    `gorm:"size:100;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// AppSetting 是简单的键值配置表（jsonb），保存激活的 AI 供应商与流水线阶段列表。
type AppSetting struct {
	Key   string         `gorm:"size:100;primaryKey"`
	Value datatypes.JSON `gorm:"type:jsonb;not null"`
}

// Candidate 是候选人主表的标量行，七张子表各自承载一对多关系。
type Candidate struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:255;not null;index"`
	Email         string    `gorm:"size:255;not null;uniqueIndex"`
	Phone         string    `gorm:"size:50"`
	LastUpdated   time.Time `gorm:"not null;index"`
	PipelineStage string    `gorm:"size:100;not null;default:Sourced;index"`

	DOB                    string `gorm:"column:dob;size:50"`
	Gender                 string `gorm:"size:50"`
	MaritalStatus          string `gorm:"size:50"`
	HighestEducation       string `gorm:"type:text"`
	SecondHighestEducation string `gorm:"type:text"`
	ThirdHighestEducation  string `gorm:"type:text"`
	Diploma                string `gorm:"type:text"`
	ITI                    string `gorm:"column:iti;type:text"`
	PUC                    string `gorm:"column:puc;type:text"`
	SSLC                   string `gorm:"column:sslc;type:text"`

	TotalExperience *float64 `gorm:"type:numeric(4,2)"`
	CurrentRole     string   `gorm:"type:text"`
	ExpectedRole    string   `gorm:"type:text"`
	JobType         string   `gorm:"size:50"`
	ReadyToRelocate string   `gorm:"size:50"`
	NoticePeriod    string   `gorm:"size:50"`
	CurrentCTC      string   `gorm:"column:current_ctc;size:100"`
	ExpectedCTC     string   `gorm:"column:expected_ctc;size:100"`
	SectorType      string   `gorm:"size:50"`

	// 布尔列：写入时由 "Yes"/"No" 字符串归一化而来，NULL 表示从未填写。
	LookingForJobsAbroad *bool
	HasCurrentOffers     *bool

	BestTimeToContact      string `gorm:"type:text"`
	PreferredModeOfContact string `gorm:"size:50"`
	Summary                string `gorm:"type:text"`

	OriginalResume datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
}

// CandidateSkill 等集合子表以 (candidate_id, 值) 作为复合主键，天然去重。
type CandidateSkill struct {
	CandidateID string    `gorm:"type:uuid;primaryKey"`
	SkillName   string    `gorm:"size:100;primaryKey"`
	Candidate   Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

type CandidateLanguage struct {
	CandidateID  string    `gorm:"type:uuid;primaryKey"`
	LanguageName string    `gorm:"size:100;primaryKey"`
	Candidate    Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

type CandidateCertificate struct {
	CandidateID     string    `gorm:"type:uuid;primaryKey"`
	CertificateName string    `gorm:"size:255;primaryKey"`
	Candidate       Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

type CandidateIndustry struct {
	CandidateID  string    `gorm:"type:uuid;primaryKey"`
	IndustryName string    `gorm:"size:255;primaryKey"`
	Candidate    Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

// CandidateLocation 以 type 区分当前所在地与期望工作地。
type CandidateLocation struct {
	CandidateID  string    `gorm:"type:uuid;primaryKey"`
	LocationName string    `gorm:"size:255;primaryKey"`
	Type         string    `gorm:"size:20;primaryKey"`
	Candidate    Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

// CandidateExperience 与 CandidateEducation 拥有独立主键，读取顺序不做承诺。
type CandidateExperience struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	CandidateID string    `gorm:"type:uuid;not null;index"`
	Company     string    `gorm:"size:255;not null"`
	Role        string    `gorm:"type:text;not null"`
	StartDate   string    `gorm:"size:50"`
	EndDate     string    `gorm:"size:50"`
	Duration    string    `gorm:"size:100"`
	Description string    `gorm:"type:text"`
	ToolsUsed   string    `gorm:"type:text"`
	Candidate   Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}

type CandidateEducation struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	CandidateID string    `gorm:"type:uuid;not null;index"`
	Institution string    `gorm:"size:255;not null"`
	Degree      string    `gorm:"type:text;not null"`
	Duration    string    `gorm:"size:100"`
	Candidate   Candidate `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE"`
}
