package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/exit-interview/internal/application"
)

// DefaultQuestions is the question bank used by Scripted when none is given.
var DefaultQuestions = []string{
	"What is your primary reason for leaving?",
	"What did you enjoy most about your job?",
	"How would you describe your relationship with your manager?",
	"Did you receive the feedback and recognition you needed?",
	"How well did your role match what you expected when you joined?",
	"Did you feel there were growth opportunities for you here?",
	"How would you describe the workload in your team?",
	"How was collaboration across teams?",
	"Were the tools and resources you had adequate for your work?",
	"How did you feel about compensation and benefits?",
	"How would you describe the company culture?",
	"Was there a moment that made you start considering leaving?",
	"Is there anything that could have changed your decision?",
	"How was your onboarding experience?",
	"What should we keep doing as a company?",
	"What should we stop doing?",
	"Would you recommend the company to a friend?",
	"Would you consider returning in the future?",
}

// Scripted is a deterministic interviewer. It walks a fixed question bank and
// derives a simple evaluation from keywords in the answers.
type Scripted struct {
	Questions []string
}

// NewScripted returns a scripted interviewer over questions, or over
// DefaultQuestions when none are given.
func NewScripted(questions ...string) *Scripted {
	if len(questions) == 0 {
		questions = DefaultQuestions
	}
	return &Scripted{Questions: questions}
}

// Generate implements application.Generator.
func (s *Scripted) Generate(ctx context.Context, req application.GenerationRequest) (application.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return application.GenerationResult{}, err
	}

	switch req.Phase {
	case application.PhaseOpening:
		greeting := "Thank you for taking the time to talk with us."
		if name := strings.TrimSpace(req.Subject.Name); name != "" {
			greeting = fmt.Sprintf("Hello %s, thank you for taking the time to talk with us.", name)
		}
		return application.GenerationResult{
			Stage: application.StageOngoing,
			Text:  greeting + " " + s.question(0),
		}, nil
	case application.PhaseClosing:
		return application.GenerationResult{
			Stage:   application.StageCompleted,
			Text:    "That was the last question. Thank you for your honest feedback, and all the best in your next step.",
			Summary: evaluate(req),
		}, nil
	}
	return application.GenerationResult{Stage: application.StageOngoing, Text: s.question(req.Answered)}, nil
}

func (s *Scripted) question(index int) string {
	return s.Questions[index%len(s.Questions)]
}

var (
	positiveWords = []string{"good", "great", "enjoy", "loved", "love", "supportive", "happy", "yes"}
	negativeWords = []string{"bad", "poor", "stress", "toxic", "unfair", "lack", "no ", "never", "not"}
)

// evaluate scores the windowed history by counting positive and negative
// keywords.
func evaluate(req application.GenerationRequest) *application.FinalSummary {
	var positive, negative int
	var recommend, returning string
	for _, turn := range req.History {
		answer := " " + strings.ToLower(turn.Answer) + " "
		positive += countWords(answer, positiveWords)
		negative += countWords(answer, negativeWords)
		question := strings.ToLower(turn.Question)
		switch {
		case strings.Contains(question, "recommend"):
			recommend = answer
		case strings.Contains(question, "return"):
			returning = answer
		}
	}

	rating := 50 + 10*positive - 10*negative
	if rating < 0 {
		rating = 0
	}
	if rating > 100 {
		rating = 100
	}

	return &application.FinalSummary{
		Summary: fmt.Sprintf("%s (%s) answered %d questions. Positive signals: %d, negative signals: %d.",
			nonEmpty(req.Subject.Name, "The respondent"), nonEmpty(req.Subject.Position, "unknown role"), req.Answered, positive, negative),
		Recommendation: recommendationFrom(recommend),
		ReturnIntent:   returnIntentFrom(returning),
		Rating:         rating,
	}
}

func recommendationFrom(answer string) application.Recommendation {
	switch {
	case answer == "":
		return application.RecommendationNeutral
	case strings.Contains(answer, "not") || strings.Contains(answer, " no "):
		return application.RecommendationWouldNot
	case strings.Contains(answer, "yes") || strings.Contains(answer, "would"):
		return application.RecommendationWould
	}
	return application.RecommendationNeutral
}

func returnIntentFrom(answer string) application.ReturnIntent {
	switch {
	case answer == "":
		return application.ReturnIntentUnstated
	case strings.Contains(answer, "not") || strings.Contains(answer, " no "):
		return application.ReturnIntentWouldNot
	case strings.Contains(answer, "yes") || strings.Contains(answer, "would"):
		return application.ReturnIntentWould
	}
	return application.ReturnIntentUnstated
}

func countWords(text string, words []string) int {
	count := 0
	for _, word := range words {
		count += strings.Count(text, word)
	}
	return count
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
