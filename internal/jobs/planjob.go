// Package jobs defines the asynchronous job payloads exchanged between the
// API and the worker, their validation, and the Redis-backed status tracker
// for plan generation.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/honestmeals/honestmeals/internal/models"
)

// PlanJobPayload is the Kafka message for one plan-generation job. The
// credit for the job is debited before enqueueing; the worker refunds it if
// the job terminally fails.
type PlanJobPayload struct {
	// JobID is the unique identifier used for status tracking
	JobID string `json:"jobID"`
	// UserID owns the chat and pays for the generation
	UserID string `json:"userID"`
	// ChatID is the conversation the plan belongs to
	ChatID string `json:"chatID"`
	// PlanType is "diet" or "workout"
	PlanType string `json:"planType"`
	// Answers holds the questionnaire responses keyed by question id
	Answers map[string]string `json:"answers"`
}

// Validate checks if the PlanJobPayload is valid
func (p *PlanJobPayload) Validate() error {
	if p.JobID == "" {
		return errors.New("jobID is required")
	}
	if p.UserID == "" {
		return errors.New("userID is required")
	}
	if p.ChatID == "" {
		return errors.New("chatID is required")
	}
	if p.PlanType != models.PlanTypeDiet && p.PlanType != models.PlanTypeWorkout {
		return fmt.Errorf("planType must be one of: diet, workout")
	}
	if len(p.Answers) == 0 {
		return errors.New("answers are required")
	}
	return nil
}

// ValidatePlanJobWithGJSON performs payload validation before the bytes are
// unmarshalled, mirroring the checks in Validate.
func ValidatePlanJobWithGJSON(payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return errors.New("invalid JSON payload")
	}

	data := gjson.ParseBytes(payload)

	requiredFields := []string{"jobID", "userID", "chatID", "planType", "answers"}
	for _, field := range requiredFields {
		if !data.Get(field).Exists() {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	planType := data.Get("planType").String()
	if planType != models.PlanTypeDiet && planType != models.PlanTypeWorkout {
		return fmt.Errorf("planType must be one of: diet, workout")
	}

	answers := data.Get("answers")
	if !answers.IsObject() || len(answers.Map()) == 0 {
		return errors.New("answers must be a non-empty object")
	}

	return nil
}

// BuildPlanPrompt renders the questionnaire into the structured-output prompt
// sent to the model. Answer keys are sorted so the prompt is deterministic.
func BuildPlanPrompt(planType string, answers map[string]string) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %s\n", k, answers[k])
	}

	schema := dietPlanSchema
	kind := "diet"
	if planType == models.PlanTypeWorkout {
		schema = workoutPlanSchema
		kind = "workout"
	}

	return fmt.Sprintf(`
Create a personalized %s plan from the following questionnaire answers.

ANSWERS:
%s
JSON SCHEMA:
%s

Respond with ONLY a valid JSON object matching the schema. Do not include any explanations or markdown formatting.
`, kind, sb.String(), schema)
}

const dietPlanSchema = `{
  "title": "string",
  "daily_calories": 0,
  "meals": [
    {"name": "string", "time": "HH:MM", "items": "string", "calories": 0, "protein_g": 0, "carbs_g": 0, "fat_g": 0}
  ],
  "notes": "string"
}`

const workoutPlanSchema = `{
  "title": "string",
  "days": [
    {"day": "string", "focus": "string", "exercises": [{"name": "string", "sets": 0, "reps": "string", "rest": "string"}]}
  ],
  "notes": "string"
}`
