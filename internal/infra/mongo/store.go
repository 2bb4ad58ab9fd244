package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"exam-bot-service/internal/domain"
)

const (
	questionsCollection = "questions"
	usersCollection     = "users"
)

// questionDoc is the stored question shape; _id stays an ObjectID in the
// collection and is exposed as its hex string everywhere else.
type questionDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ExamName      string             `bson:"exam_name"`
	QuestionText  string             `bson:"question_text"`
	Options       domain.Options     `bson:"options"`
	CorrectOption string             `bson:"correct_option"`
	Explanation   string             `bson:"explanation,omitempty"`
}

func (d questionDoc) toDomain() domain.Question {
	return domain.Question{
		ID:            d.ID.Hex(),
		ExamName:      d.ExamName,
		QuestionText:  d.QuestionText,
		Options:       d.Options,
		CorrectOption: d.CorrectOption,
		Explanation:   d.Explanation,
	}
}

// QuestionStore reads the question bank from a Mongo collection.
type QuestionStore struct {
	questions *mongo.Collection
}

func NewQuestionStore(db *mongo.Database) *QuestionStore {
	return &QuestionStore{questions: db.Collection(questionsCollection)}
}

// RandomUnseen samples one unseen question of the category with a
// $match + $sample pipeline. Seen ids that are not valid object ids are
// skipped; they cannot exist in the collection anyway.
func (s *QuestionStore) RandomUnseen(ctx context.Context, category string, seenIDs []string) (domain.Question, error) {
	seenObjectIDs := make([]primitive.ObjectID, 0, len(seenIDs))
	for _, id := range seenIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		seenObjectIDs = append(seenObjectIDs, oid)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "exam_name", Value: category},
			{Key: "_id", Value: bson.D{{Key: "$nin", Value: seenObjectIDs}}},
		}}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
	}

	cursor, err := s.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Question{}, fmt.Errorf("sample question: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return domain.Question{}, fmt.Errorf("sample question: %w", err)
		}
		return domain.Question{}, domain.ErrNoUnseenQuestions
	}

	var doc questionDoc
	if err := cursor.Decode(&doc); err != nil {
		return domain.Question{}, fmt.Errorf("decode question: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *QuestionStore) GetByID(ctx context.Context, id string) (domain.Question, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	var doc questionDoc
	err = s.questions.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("find question %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// InsertQuestions loads bank entries; used by the seed command only.
func (s *QuestionStore) InsertQuestions(ctx context.Context, questions []domain.Question) error {
	docs := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		docs = append(docs, questionDoc{
			ID:            primitive.NewObjectID(),
			ExamName:      q.ExamName,
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.questions.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// ProgressStore keeps per-user seen lists in the users collection, one
// document per sender id.
type ProgressStore struct {
	users *mongo.Collection
}

func NewProgressStore(db *mongo.Database) *ProgressStore {
	return &ProgressStore{users: db.Collection(usersCollection)}
}

func (s *ProgressStore) SeenIDs(ctx context.Context, userID string) ([]string, error) {
	var doc struct {
		SeenQuestionIDs []string `bson:"seen_question_ids"`
	}
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}
	return doc.SeenQuestionIDs, nil
}

// MarkSeen appends the id with a $push upsert, creating the user document on
// first interaction.
func (s *ProgressStore) MarkSeen(ctx context.Context, userID, questionID string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "seen_question_ids", Value: questionID}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mark question %s seen for %s: %w", questionID, userID, err)
	}
	return nil
}
