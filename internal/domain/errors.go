package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a question id that is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoUnseenQuestions is returned when a user has exhausted a category.
	ErrNoUnseenQuestions = errors.New("no unseen questions left")
)
