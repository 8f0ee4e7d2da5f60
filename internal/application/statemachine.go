package application

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultExpiryWindow is how long a scheduled interview stays open before
	// its status reads as expired.
	DefaultExpiryWindow = 72 * time.Hour
	// DefaultWindowTurns is how many recent turns the generation collaborator sees.
	DefaultWindowTurns = 6
	// DefaultMaxQuestions is the answered-turn count that moves an interview
	// into its closing phase.
	DefaultMaxQuestions = 18
)

// ClassifyStatus derives the read-time status of an interview. A scheduled
// interview older than the expiry window reads as expired; storage is never
// changed by this classification.
func ClassifyStatus(interview Interview, now time.Time, expiryWindow time.Duration) Status {
	if expiryWindow <= 0 {
		expiryWindow = DefaultExpiryWindow
	}
	switch interview.Stage {
	case StageScheduled:
		if now.After(interview.ScheduledAt.Add(expiryWindow)) {
			return StatusExpired
		}
		return StatusScheduled
	case StageOngoing:
		return StatusOngoing
	case StageCompleted:
		return StatusCompleted
	case StageFlagged:
		return StatusFlagged
	}
	return StatusNotFound
}

// Window returns a copy of the most recent n turns in their original order.
// A non-positive n returns the whole history.
func Window(history []Turn, n int) []Turn {
	start := 0
	if n > 0 && len(history) > n {
		start = len(history) - n
	}
	out := make([]Turn, len(history)-start)
	copy(out, history[start:])
	return out
}

// AnsweredTurns counts turns that carry an answer.
func AnsweredTurns(history []Turn) int {
	count := 0
	for _, turn := range history {
		if turn.Answer != "" {
			count++
		}
	}
	return count
}

// PhaseOf derives the conversational phase from history alone.
func PhaseOf(history []Turn, maxQuestions int) Phase {
	if len(history) == 0 {
		return PhaseOpening
	}
	if maxQuestions > 0 && AnsweredTurns(history) >= maxQuestions {
		return PhaseClosing
	}
	return PhaseQuestioning
}

// awaitingAnswer reports whether the last turn is a question with no answer.
func awaitingAnswer(history []Turn) bool {
	return len(history) > 0 && history[len(history)-1].Answer == ""
}

// foldAnswer returns a copy of history with answer recorded against the open
// question. History is returned unchanged when nothing is awaiting an answer.
func foldAnswer(history []Turn, answer string) []Turn {
	out := make([]Turn, len(history))
	copy(out, history)
	if awaitingAnswer(out) {
		out[len(out)-1].Answer = answer
	}
	return out
}

// ValidateGenerationResult checks a collaborator reply against the transition
// table for the phase it was requested in. Any violation is a collaborator
// failure; the reply is untrusted input.
func ValidateGenerationResult(phase Phase, history []Turn, result GenerationResult) error {
	switch result.Stage {
	case StageOngoing:
		if strings.TrimSpace(result.Text) == "" {
			return fmt.Errorf("%w: ongoing reply without a question", ErrCollaboratorFailure)
		}
		if phase == PhaseClosing {
			return fmt.Errorf("%w: ongoing reply in closing phase", ErrCollaboratorFailure)
		}
		return nil
	case StageCompleted:
		if phase == PhaseOpening || AnsweredTurns(history) == 0 {
			return fmt.Errorf("%w: completion before any answer", ErrCollaboratorFailure)
		}
		if result.Summary == nil {
			return fmt.Errorf("%w: completion without summary", ErrCollaboratorFailure)
		}
		return validateSummary(*result.Summary)
	}
	return fmt.Errorf("%w: unexpected stage %q", ErrCollaboratorFailure, result.Stage)
}

func validateSummary(summary FinalSummary) error {
	if summary.Rating < 0 || summary.Rating > 100 {
		return fmt.Errorf("%w: rating %d outside 0..100", ErrCollaboratorFailure, summary.Rating)
	}
	switch summary.Recommendation {
	case RecommendationWould, RecommendationWouldNot, RecommendationNeutral:
	default:
		return fmt.Errorf("%w: unknown recommendation %q", ErrCollaboratorFailure, summary.Recommendation)
	}
	switch summary.ReturnIntent {
	case ReturnIntentWould, ReturnIntentWouldNot, ReturnIntentUnstated:
	default:
		return fmt.Errorf("%w: unknown return intent %q", ErrCollaboratorFailure, summary.ReturnIntent)
	}
	return nil
}
