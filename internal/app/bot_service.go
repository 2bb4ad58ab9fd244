package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"exam-bot-service/internal/domain"
)

// QuestionStore abstracts the question bank (Mongo, Postgres, in-memory).
type QuestionStore interface {
	// RandomUnseen picks one question of the category uniformly at random
	// among those whose id is not in seenIDs. Returns
	// domain.ErrNoUnseenQuestions when the category is exhausted.
	RandomUnseen(ctx context.Context, category string, seenIDs []string) (domain.Question, error)
	// GetByID returns domain.ErrQuestionNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (domain.Question, error)
}

// ProgressStore abstracts per-user seen-question tracking.
type ProgressStore interface {
	// SeenIDs returns the user's seen set, empty for unknown users.
	SeenIDs(ctx context.Context, userID string) ([]string, error)
	// MarkSeen appends a question id, creating the record if absent.
	MarkSeen(ctx context.Context, userID, questionID string) error
}

// Sender delivers a message to a platform recipient. Fire-and-forget: no
// delivery confirmation reaches the bot.
type Sender interface {
	Send(ctx context.Context, recipientID string, msg domain.OutboundMessage) error
}

// Exam categories the text classifier knows about. The bank itself is an
// open set; only these two have entry keywords.
const (
	CategoryNEET = "NEET"
	CategoryJEE  = "JEE"
)

// keywordRules maps text keywords to categories in priority order: the first
// matching keyword wins, so "NEXT NEET OR JEE?" starts a NEET quiz.
var keywordRules = []struct {
	keyword  string
	category string
}{
	{"NEET", CategoryNEET},
	{"NEXT", CategoryNEET},
	{"JEE", CategoryJEE},
}

const (
	helpText          = "Hello! Type 'NEET' or 'JEE' to start a quiz."
	completedFmt      = "🎉 Congratulations! You've completed all available questions for %s."
	correctFmt        = "✅ Correct!\n\n%s"
	incorrectFmt      = "❌ Incorrect. The correct answer was (%s).\n\n%s"
	noExplanationText = "No explanation available."
	nextQuestionTitle = "Next Question"
)

// BotService contains the bot's entire decision logic: event classification,
// question selection, seen-tracking and answer grading.
type BotService struct {
	questions QuestionStore
	progress  ProgressStore
	sender    Sender
}

func NewBotService(questions QuestionStore, progress ProgressStore, sender Sender) *BotService {
	return &BotService{questions: questions, progress: progress, sender: sender}
}

// HandleEvent classifies and fully processes one inbound event. Errors are
// returned for the transport layer to log; the caller never sends an error
// reply into the chat.
func (s *BotService) HandleEvent(ctx context.Context, ev domain.InboundEvent) error {
	switch {
	case ev.Text != "":
		if category, ok := classifyText(ev.Text); ok {
			return s.ServeQuestion(ctx, ev.SenderID, category)
		}
		return s.sender.Send(ctx, ev.SenderID, domain.OutboundMessage{Text: helpText})
	case ev.PostbackPayload != "":
		return s.handlePostback(ctx, ev.SenderID, ev.PostbackPayload)
	default:
		// Neither text nor postback: delivery receipts and the like.
		return nil
	}
}

// classifyText scans the uppercased text for category keywords.
func classifyText(text string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, rule := range keywordRules {
		if strings.Contains(upper, rule.keyword) {
			return rule.category, true
		}
	}
	return "", false
}

func (s *BotService) handlePostback(ctx context.Context, senderID, payload string) error {
	switch {
	case isAnswerPayload(payload):
		questionID, letter, ok := decodeAnswerPayload(payload)
		if !ok {
			return nil
		}
		return s.GradeAnswer(ctx, senderID, questionID, letter)
	case isNextPayload(payload):
		category, ok := decodeNextPayload(payload)
		if !ok {
			return nil
		}
		return s.ServeQuestion(ctx, senderID, category)
	default:
		return nil
	}
}

// ServeQuestion picks an unseen question for the user, marks it seen, and
// sends it with four lettered answer buttons. Marking happens before the
// answer is known: abandoning a served question still consumes it.
func (s *BotService) ServeQuestion(ctx context.Context, userID, category string) error {
	seen, err := s.progress.SeenIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("read seen set: %w", err)
	}

	question, err := s.questions.RandomUnseen(ctx, category, seen)
	if errors.Is(err, domain.ErrNoUnseenQuestions) {
		return s.sender.Send(ctx, userID, domain.OutboundMessage{
			Text: fmt.Sprintf(completedFmt, category),
		})
	}
	if err != nil {
		return fmt.Errorf("select question: %w", err)
	}

	if err := s.progress.MarkSeen(ctx, userID, question.ID); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	msg, err := formatQuestion(question)
	if err != nil {
		return fmt.Errorf("format question %s: %w", question.ID, err)
	}
	return s.sender.Send(ctx, userID, msg)
}

// GradeAnswer looks up the answered question, compares the submitted letter
// case-insensitively, and replies with the verdict plus a next-question
// button. The button's category comes from the stored document, never from
// the client. An unknown question id is dropped without a reply.
func (s *BotService) GradeAnswer(ctx context.Context, userID, questionID, letter string) error {
	question, err := s.questions.GetByID(ctx, questionID)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load question %s: %w", questionID, err)
	}

	explanation := question.Explanation
	if explanation == "" {
		explanation = noExplanationText
	}

	var replyText string
	if strings.EqualFold(letter, question.CorrectOption) {
		replyText = fmt.Sprintf(correctFmt, explanation)
	} else {
		replyText = fmt.Sprintf(incorrectFmt, strings.ToUpper(question.CorrectOption), explanation)
	}

	nextPayload, err := encodeNextPayload(question.ExamName)
	if err != nil {
		return fmt.Errorf("encode next payload: %w", err)
	}
	return s.sender.Send(ctx, userID, domain.OutboundMessage{
		Text:    replyText,
		Buttons: []domain.Button{{Title: nextQuestionTitle, Payload: nextPayload}},
	})
}

// formatQuestion renders the question body with its lettered options and
// builds the four answer buttons.
func formatQuestion(q domain.Question) (domain.OutboundMessage, error) {
	text := fmt.Sprintf("%s\n\nA) %s\nB) %s\nC) %s\nD) %s",
		q.QuestionText, q.Options.A, q.Options.B, q.Options.C, q.Options.D)

	letters := []string{"a", "b", "c", "d"}
	buttons := make([]domain.Button, 0, len(letters))
	for _, letter := range letters {
		payload, err := encodeAnswerPayload(q.ID, letter)
		if err != nil {
			return domain.OutboundMessage{}, err
		}
		buttons = append(buttons, domain.Button{
			Title:   strings.ToUpper(letter),
			Payload: payload,
		})
	}
	return domain.OutboundMessage{Text: text, Buttons: buttons}, nil
}
