package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"recruithub/internal/candidate"
)

// maxMatches 是职位匹配返回的候选人数量上限。
const maxMatches = 5

const defaultOpenAIEndpoint = "https://api.openai.com/v1"
const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

var (
	// ErrMalformedReply 表示模型输出中找不到或解析不出合法 JSON。
	ErrMalformedReply = errors.New("the AI returned malformed JSON")

	// ErrParseUnsupported：多模态简历解析只支持 Gemini。
	ErrParseUnsupported = errors.New("multi-modal file parsing is only supported with the Google Gemini provider")
)

// ProviderError 携带上游 AI 服务的 HTTP 失败详情，调用方据此区分
// 密钥失效、限流与模型配置错误。
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("API error from %s: %d - %s", e.Provider, e.Status, e.Body)
}

// Client 把解析、匹配与面试问题生成请求分发到当前激活的供应商。
// AI 输出的字段不作完整性假设，缺失字段由调用方容忍。
type Client struct {
	providers  *ProviderStore
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 构造 AI 网关客户端。
func NewClient(providers *ProviderStore, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		providers:  providers,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// MatchResult 是匹配结果中的一名候选人，附带分数与理由。
type MatchResult struct {
	candidate.Candidate
	MatchScore  int    `json:"matchScore"`
	MatchReason string `json:"matchReason"`
}

// InterviewQuestions 按类别组织生成的面试问题。
type InterviewQuestions struct {
	Technical   []string `json:"technical"`
	Behavioral  []string `json:"behavioral"`
	Situational []string `json:"situational"`
}

// ParseResume 把简历文件交给 Gemini 做多模态解析，返回模型给出的
// 部分候选人字段与逐字段置信度。结果保持原始 JSON，由展示层防御性消费。
func (c *Client) ParseResume(ctx context.Context, file candidate.OriginalResume) (json.RawMessage, error) {
	provider, err := c.providers.Active(ctx)
	if err != nil {
		return nil, err
	}
	if provider.Name != ProviderGemini {
		return nil, ErrParseUnsupported
	}

	payload, ok := dataURIPayload(file.Content)
	if !ok {
		return nil, fmt.Errorf("resume content is not a data URI")
	}

	prompt := "You are an expert resume parsing system with OCR capabilities. " +
		"Analyze the provided document and extract the candidate's information as a JSON object " +
		"with camelCase field names (name, email, phone, skills, languages, certificates, experience, " +
		"education, summary, and related profile fields). For each field you extract, provide a " +
		"confidence score from 0.0 (low) to 1.0 (high) in a separate 'confidenceScores' object. " +
		"Your entire response must be ONLY the JSON object."

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": prompt},
				{"inline_data": map[string]any{"mime_type": file.Type, "data": payload}},
			},
		}},
		"generationConfig": map[string]any{"response_mime_type": "application/json"},
	}

	text, err := c.callGemini(ctx, provider, provider.ParsingModel, body)
	if err != nil {
		return nil, err
	}
	return extractJSON(text)
}

// MatchCandidates 让模型按职位描述给候选人打分，返回去掉未知 ID、
// 按分数降序排列并截断到前五名的结果。
func (c *Client) MatchCandidates(ctx context.Context, jobDescription string, candidates []candidate.Candidate) ([]MatchResult, error) {
	provider, err := c.providers.Active(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, len(candidates))
	for i, cand := range candidates {
		experience := make([]string, 0, len(cand.Experience))
		for _, exp := range cand.Experience {
			experience = append(experience, exp.Role+" at "+exp.Company)
		}
		summaries[i] = map[string]any{
			"id":              cand.ID,
			"summary":         fmt.Sprintf("Name: %s, Skills: %s. Summary: %s", cand.Name, strings.Join(cand.Skills, ", "), cand.Summary),
			"experience":      strings.Join(experience, ". "),
			"totalExperience": cand.TotalExperience,
			"currentRole":     cand.CurrentRole,
			"noticePeriod":    cand.NoticePeriod,
		}
	}
	encoded, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("encode candidate summaries: %w", err)
	}

	prompt := fmt.Sprintf("Job Description:\n---\n%s\n---\nAvailable Candidates:\n---\n%s\n---\n"+
		"Based on the job description, analyze the candidates. Return a ranked list of the top %d matches. "+
		"For each, provide the candidate's id, a matchScore (0-100) and a brief matchReason. "+
		"Respond with ONLY a JSON array of objects with fields id, matchScore, matchReason.",
		jobDescription, encoded, maxMatches)

	text, err := c.generate(ctx, provider, provider.MatchingModel, prompt)
	if err != nil {
		return nil, err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var scored []struct {
		ID          string `json:"id"`
		MatchScore  int    `json:"matchScore"`
		MatchReason string `json:"matchReason"`
	}
	if err := json.Unmarshal(raw, &scored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	byID := make(map[string]candidate.Candidate, len(candidates))
	for _, cand := range candidates {
		byID[cand.ID] = cand
	}

	results := make([]MatchResult, 0, len(scored))
	for _, s := range scored {
		cand, ok := byID[s.ID]
		if !ok {
			// 模型有时会编造 ID，直接丢弃。
			continue
		}
		results = append(results, MatchResult{
			Candidate:   cand,
			MatchScore:  s.MatchScore,
			MatchReason: s.MatchReason,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	if len(results) > maxMatches {
		results = results[:maxMatches]
	}
	return results, nil
}

// GenerateInterviewQuestions 基于候选人画像与职位描述生成三类面试问题。
func (c *Client) GenerateInterviewQuestions(ctx context.Context, cand candidate.Candidate, jobDescription string) (*InterviewQuestions, error) {
	provider, err := c.providers.Active(ctx)
	if err != nil {
		return nil, err
	}

	experience := "N/A"
	if cand.TotalExperience != nil {
		experience = fmt.Sprintf("%.1f", *cand.TotalExperience)
	}
	role := cand.CurrentRole
	if role == "" {
		role = "N/A"
	}

	profile := fmt.Sprintf("- Name: %s\n- Role: %s\n- Experience: %s years\n- Skills: %s\n- Summary: %s",
		cand.Name, role, experience, strings.Join(cand.Skills, ", "), cand.Summary)

	prompt := fmt.Sprintf("Based on the following candidate profile and job description, generate a set of "+
		"insightful interview questions (3-5 per category: technical, behavioral, situational).\n\n"+
		"Candidate Profile:\n---\n%s\n---\nJob Description:\n---\n%s\n---\n"+
		"Respond with ONLY a JSON object with string-array fields technical, behavioral and situational.",
		profile, jobDescription)

	text, err := c.generate(ctx, provider, provider.MatchingModel, prompt)
	if err != nil {
		return nil, err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var questions InterviewQuestions
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return &questions, nil
}

// generate 按供应商类型分发纯文本生成请求：Gemini 走 generateContent，
// 其余走 OpenAI 兼容的 chat/completions（支持 base_url 覆盖）。
func (c *Client) generate(ctx context.Context, provider *Provider, model, prompt string) (string, error) {
	c.logger.Info("dispatching AI request",
		slog.String("provider", provider.Name),
		slog.String("model", model),
	)

	if provider.Name == ProviderGemini {
		body := map[string]any{
			"contents": []map[string]any{{
				"parts": []map[string]any{{"text": prompt}},
			}},
			"generationConfig": map[string]any{"response_mime_type": "application/json"},
		}
		return c.callGemini(ctx, provider, model, body)
	}

	endpoint := defaultOpenAIEndpoint
	if provider.BaseURL != "" {
		endpoint = strings.TrimSuffix(provider.BaseURL, "/")
	}

	body := map[string]any{
		"model":           model,
		"messages":        []map[string]any{{"role": "user", "content": prompt}},
		"response_format": map[string]any{"type": "json_object"},
	}

	req, err := c.newJSONRequest(ctx, endpoint+"/chat/completions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	if provider.Name == "OpenRouter" {
		req.Header.Set("X-Title", "Recruitment Hub")
	}

	respBody, err := c.do(req, provider.Name)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrMalformedReply)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) callGemini(ctx context.Context, provider *Provider, model string, body map[string]any) (string, error) {
	endpoint := geminiEndpoint
	if provider.BaseURL != "" {
		endpoint = strings.TrimSuffix(provider.BaseURL, "/")
	}

	req, err := c.newJSONRequest(ctx, fmt.Sprintf("%s/%s:generateContent", endpoint, model), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", provider.APIKey)

	respBody, err := c.do(req, provider.Name)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidates", ErrMalformedReply)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) newJSONRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, providerName string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", providerName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```|(\\{.*\\}|\\[.*\\])")

// extractJSON 从模型输出里取出 JSON 对象或数组：优先匹配代码围栏，
// 其次匹配裸 JSON，并校验其可解析。
func extractJSON(text string) (json.RawMessage, error) {
	m := jsonBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: no JSON object or array in response", ErrMalformedReply)
	}

	raw := m[1]
	if raw == "" {
		raw = m[2]
	}

	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return json.RawMessage(raw), nil
}

// dataURIPayload 取出 data URI 的 base64 负载。
func dataURIPayload(content string) (string, bool) {
	idx := strings.Index(content, ",")
	if idx < 0 || !strings.HasPrefix(content, "data:") {
		return "", false
	}
	return content[idx+1:], true
}
