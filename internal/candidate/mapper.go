package candidate

import (
	"encoding/json"

	"github.com/google/uuid"

	"recruithub/internal/database"
)

// 地点子表的 type 判别值。
const (
	locationCurrent   = "current"
	locationPreferred = "preferred"
)

// ChildRows 汇集一次读写涉及的全部子表行，按关系分组。
type ChildRows struct {
	Skills       []database.CandidateSkill
	Languages    []database.CandidateLanguage
	Certificates []database.CandidateCertificate
	Industries   []database.CandidateIndustry
	Locations    []database.CandidateLocation
	Experience   []database.CandidateExperience
	Education    []database.CandidateEducation
}

// Decompose 把嵌套的候选人对象拆成一行标量记录与七组子表行。
// 集合字段按值去重（保留首次出现的顺序）；经历与教育若缺少 ID 则补发；
// "Yes"/"No" 字符串在此边界归一化为布尔值（单向有损）。
func Decompose(c Candidate) (database.Candidate, ChildRows) {
	row := database.Candidate{
		ID:                     c.ID,
		Name:                   c.Name,
		Email:                  c.Email,
		Phone:                  c.Phone,
		LastUpdated:            c.LastUpdated,
		PipelineStage:          c.PipelineStage,
		DOB:                    c.DOB,
		Gender:                 c.Gender,
		MaritalStatus:          c.MaritalStatus,
		HighestEducation:       c.HighestEducation,
		SecondHighestEducation: c.SecondHighestEducation,
		ThirdHighestEducation:  c.ThirdHighestEducation,
		Diploma:                c.Diploma,
		ITI:                    c.ITI,
		PUC:                    c.PUC,
		SSLC:                   c.SSLC,
		TotalExperience:        c.TotalExperience,
		CurrentRole:            c.CurrentRole,
		ExpectedRole:           c.ExpectedRole,
		JobType:                c.JobType,
		ReadyToRelocate:        c.ReadyToRelocate,
		NoticePeriod:           c.NoticePeriod,
		CurrentCTC:             c.CurrentCTC,
		ExpectedCTC:            c.ExpectedCTC,
		SectorType:             c.SectorType,
		LookingForJobsAbroad:   yesNoToBool(c.LookingForJobsAbroad),
		HasCurrentOffers:       yesNoToBool(c.HasCurrentOffers),
		BestTimeToContact:      c.BestTimeToContact,
		PreferredModeOfContact: c.PreferredModeOfContact,
		Summary:                c.Summary,
		CreatedAt:              c.CreatedAt,
	}

	if c.OriginalResume != nil {
		if data, err := json.Marshal(c.OriginalResume); err == nil {
			row.OriginalResume = data
		}
	}

	var children ChildRows
	for _, v := range dedup(c.Skills) {
		children.Skills = append(children.Skills, database.CandidateSkill{CandidateID: c.ID, SkillName: v})
	}
	for _, v := range dedup(c.Languages) {
		children.Languages = append(children.Languages, database.CandidateLanguage{CandidateID: c.ID, LanguageName: v})
	}
	for _, v := range dedup(c.Certificates) {
		children.Certificates = append(children.Certificates, database.CandidateCertificate{CandidateID: c.ID, CertificateName: v})
	}
	for _, v := range dedup(c.PreferredIndustries) {
		children.Industries = append(children.Industries, database.CandidateIndustry{CandidateID: c.ID, IndustryName: v})
	}
	for _, v := range dedup(c.CurrentLocations) {
		children.Locations = append(children.Locations, database.CandidateLocation{CandidateID: c.ID, LocationName: v, Type: locationCurrent})
	}
	for _, v := range dedup(c.PreferredLocations) {
		children.Locations = append(children.Locations, database.CandidateLocation{CandidateID: c.ID, LocationName: v, Type: locationPreferred})
	}

	for _, exp := range c.Experience {
		id := exp.ID
		if id == "" {
			id = uuid.NewString()
		}
		children.Experience = append(children.Experience, database.CandidateExperience{
			ID:          id,
			CandidateID: c.ID,
			Company:     exp.Company,
			Role:        exp.Role,
			StartDate:   exp.StartDate,
			EndDate:     exp.EndDate,
			Duration:    exp.Duration,
			Description: exp.Description,
			ToolsUsed:   exp.ToolsUsed,
		})
	}
	for _, edu := range c.Education {
		id := edu.ID
		if id == "" {
			id = uuid.NewString()
		}
		children.Education = append(children.Education, database.CandidateEducation{
			ID:          id,
			CandidateID: c.ID,
			Institution: edu.Institution,
			Degree:      edu.Degree,
			Duration:    edu.Duration,
		})
	}

	return row, children
}

// Recompose 由一批标量行与子表行重建嵌套对象。复杂度 O(标量行 + 子表行)：
// 先按 ID 建一次索引，再对每种子关系各扫一遍归位。没有任何子行的关系得到
// 空切片而非 nil。返回值中的整数是指向未知候选人 ID 的子行数量，调用方
// 应将其作为数据完整性告警记录。
func Recompose(rows []database.Candidate, children ChildRows) ([]Candidate, int) {
	out := make([]Candidate, len(rows))
	index := make(map[string]*Candidate, len(rows))
	for i, row := range rows {
		out[i] = fromScalarRow(row)
		index[row.ID] = &out[i]
	}

	orphans := 0
	for _, r := range children.Skills {
		if c, ok := index[r.CandidateID]; ok {
			c.Skills = append(c.Skills, r.SkillName)
		} else {
			orphans++
		}
	}
	for _, r := range children.Languages {
		if c, ok := index[r.CandidateID]; ok {
			c.Languages = append(c.Languages, r.LanguageName)
		} else {
			orphans++
		}
	}
	for _, r := range children.Certificates {
		if c, ok := index[r.CandidateID]; ok {
			c.Certificates = append(c.Certificates, r.CertificateName)
		} else {
			orphans++
		}
	}
	for _, r := range children.Industries {
		if c, ok := index[r.CandidateID]; ok {
			c.PreferredIndustries = append(c.PreferredIndustries, r.IndustryName)
		} else {
			orphans++
		}
	}
	for _, r := range children.Locations {
		c, ok := index[r.CandidateID]
		if !ok {
			orphans++
			continue
		}
		if r.Type == locationCurrent {
			c.CurrentLocations = append(c.CurrentLocations, r.LocationName)
		} else {
			c.PreferredLocations = append(c.PreferredLocations, r.LocationName)
		}
	}
	for _, r := range children.Experience {
		c, ok := index[r.CandidateID]
		if !ok {
			orphans++
			continue
		}
		c.Experience = append(c.Experience, Experience{
			ID:          r.ID,
			Company:     r.Company,
			Role:        r.Role,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
			Duration:    r.Duration,
			Description: r.Description,
			ToolsUsed:   r.ToolsUsed,
		})
	}
	for _, r := range children.Education {
		c, ok := index[r.CandidateID]
		if !ok {
			orphans++
			continue
		}
		c.Education = append(c.Education, Education{
			ID:          r.ID,
			Institution: r.Institution,
			Degree:      r.Degree,
			Duration:    r.Duration,
		})
	}

	return out, orphans
}

func fromScalarRow(row database.Candidate) Candidate {
	c := Candidate{
		ID:                     row.ID,
		Name:                   row.Name,
		Email:                  row.Email,
		Phone:                  row.Phone,
		LastUpdated:            row.LastUpdated,
		PipelineStage:          row.PipelineStage,
		DOB:                    row.DOB,
		Gender:                 row.Gender,
		MaritalStatus:          row.MaritalStatus,
		HighestEducation:       row.HighestEducation,
		SecondHighestEducation: row.SecondHighestEducation,
		ThirdHighestEducation:  row.ThirdHighestEducation,
		Diploma:                row.Diploma,
		ITI:                    row.ITI,
		PUC:                    row.PUC,
		SSLC:                   row.SSLC,
		TotalExperience:        row.TotalExperience,
		CurrentRole:            row.CurrentRole,
		ExpectedRole:           row.ExpectedRole,
		JobType:                row.JobType,
		ReadyToRelocate:        row.ReadyToRelocate,
		NoticePeriod:           row.NoticePeriod,
		CurrentCTC:             row.CurrentCTC,
		ExpectedCTC:            row.ExpectedCTC,
		SectorType:             row.SectorType,
		LookingForJobsAbroad:   boolToYesNo(row.LookingForJobsAbroad),
		HasCurrentOffers:       boolToYesNo(row.HasCurrentOffers),
		BestTimeToContact:      row.BestTimeToContact,
		PreferredModeOfContact: row.PreferredModeOfContact,
		Summary:                row.Summary,
		CreatedAt:              row.CreatedAt,

		Skills:              []string{},
		Languages:           []string{},
		Certificates:        []string{},
		PreferredIndustries: []string{},
		CurrentLocations:    []string{},
		PreferredLocations:  []string{},
		Experience:          []Experience{},
		Education:           []Education{},
	}

	if len(row.OriginalResume) > 0 {
		var resume OriginalResume
		if err := json.Unmarshal(row.OriginalResume, &resume); err == nil && resume.Content != "" {
			c.OriginalResume = &resume
		}
	}

	return c
}

// yesNoToBool 把 "Yes"/"No" 归一化为布尔值。空串视为未填写（NULL）。
// 任何其他字符串都会折叠成 false，反向映射只能重建出 "No"。
func yesNoToBool(s string) *bool {
	if s == "" {
		return nil
	}
	v := s == "Yes"
	return &v
}

func boolToYesNo(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

func dedup(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
