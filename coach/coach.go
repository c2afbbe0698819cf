package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"

	"github.com/spotme/spotme/models"
)

const (
	routineTokens  = 1500
	analysisTokens = 1000
	helperTokens   = 500

	noAnalysis = "Unable to analyze data."
	noAnswer   = "I'm sorry, I couldn't process that request."
)

// outermost {...} span, tolerant of markdown fences around it
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// GenerateRoutine asks the model for a routine matching prefs.
func (c *Client) GenerateRoutine(ctx context.Context, apiKey string, prefs models.RoutinePreferences) (models.Routine, error) {
	prompt := fmt.Sprintf(`Create a personalized workout routine for these preferences:

Goal: %s
Experience level: %s
Frequency: %s per week
Session length: %d minutes
Equipment: %s
Focus areas: %s

Include a motivating title, 4-8 exercises suited to the experience level, sets and reps,
a suggested weight where it applies, rest in seconds and a short form note per exercise.

Answer with a single JSON object shaped exactly like:
{"title":"...","description":"...","duration":%d,"exercises":[{"name":"...","sets":3,"reps":10,"weight":135,"rest":60,"notes":"..."}]}
Return only the JSON.`,
		prefs.Goal, prefs.Experience, prefs.Frequency, prefs.Duration,
		strings.Join(prefs.Equipment, ", "), strings.Join(prefs.Focus, ", "), prefs.Duration)

	content, err := c.complete(ctx, apiKey, []chatMessage{
		{Role: "system", Content: "You are a professional fitness trainer. Reply with workout routines as JSON only."},
		{Role: "user", Content: prompt},
	}, routineTokens)
	if err != nil {
		return models.Routine{}, err
	}
	return ParseRoutine(content)
}

// ModifyRoutine asks the model to rewrite routine according to request.
func (c *Client) ModifyRoutine(ctx context.Context, apiKey string, routine models.Routine, request string) (models.Routine, error) {
	current, err := json.MarshalIndent(routine, "", "  ")
	if err != nil {
		return models.Routine{}, err
	}
	prompt := fmt.Sprintf(`Change this workout routine as the user asks.

Current routine:
%s

Request: %s

Keep the same structure and return only the JSON object.`, current, request)

	content, err := c.complete(ctx, apiKey, []chatMessage{
		{Role: "system", Content: "You are a professional fitness trainer. Adjust workout routines on request and reply with JSON only."},
		{Role: "user", Content: prompt},
	}, routineTokens)
	if err != nil {
		return models.Routine{}, err
	}
	return ParseRoutine(content)
}

// AnalyzeWorkouts returns a free-text analysis of arbitrary workout data.
func (c *Client) AnalyzeWorkouts(ctx context.Context, apiKey string, data json.RawMessage) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	prompt := fmt.Sprintf(`Analyze this workout data:

%s

Cover progress trends, strength gains, consistency, concrete recommendations and anything
worrying. Keep it clear and motivating.`, pretty.String())

	content, err := c.complete(ctx, apiKey, []chatMessage{
		{Role: "system", Content: "You are a fitness data analyst who gives clear, actionable insights."},
		{Role: "user", Content: prompt},
	}, analysisTokens)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return noAnalysis, nil
	}
	return content, nil
}

// GymHelper answers a training or form question. imageBase64, when set, is a JPEG
// sent alongside the question.
func (c *Client) GymHelper(ctx context.Context, apiKey, question, imageBase64 string) (string, error) {
	var user chatMessage
	if imageBase64 == "" {
		user = chatMessage{Role: "user", Content: question}
	} else {
		user = chatMessage{Role: "user", Content: []contentPart{
			{Type: "text", Text: question},
			{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageBase64}},
		}}
	}

	content, err := c.complete(ctx, apiKey, []chatMessage{
		{Role: "system", Content: "You are a knowledgeable gym trainer and form coach. Help with exercise form, technique and programming. Be encouraging and concrete."},
		user,
	}, helperTokens)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return noAnswer, nil
	}
	return content, nil
}

// ParseRoutine extracts the JSON object from a model answer, decodes it strictly and
// validates it. Any failure is ErrMalformedResponse; no partial routine is returned.
func ParseRoutine(content string) (models.Routine, error) {
	match := jsonObject.FindString(content)
	if match == "" {
		return models.Routine{}, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(match))
	dec.DisallowUnknownFields()
	var r models.Routine
	if err := dec.Decode(&r); err != nil {
		return models.Routine{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := binding.Validator.ValidateStruct(&r); err != nil {
		return models.Routine{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return r, nil
}
