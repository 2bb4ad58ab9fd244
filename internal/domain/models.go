package domain

// Options holds the four answer texts keyed by letter.
type Options struct {
	A string `json:"a" bson:"a"`
	B string `json:"b" bson:"b"`
	C string `json:"c" bson:"c"`
	D string `json:"d" bson:"d"`
}

// ByLetter returns the option text for a lowercase letter a-d.
func (o Options) ByLetter(letter string) (string, bool) {
	switch letter {
	case "a":
		return o.A, true
	case "b":
		return o.B, true
	case "c":
		return o.C, true
	case "d":
		return o.D, true
	}
	return "", false
}

// Question is one bank entry. Questions are created out-of-band and never
// modified by this service.
type Question struct {
	ID            string  `json:"id" bson:"-"`
	ExamName      string  `json:"exam_name" bson:"exam_name"`
	QuestionText  string  `json:"question_text" bson:"question_text"`
	Options       Options `json:"options" bson:"options"`
	CorrectOption string  `json:"correct_option" bson:"correct_option"`
	Explanation   string  `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// UserProgress tracks which questions a user has already been served.
// Created lazily on first interaction and only ever appended to.
type UserProgress struct {
	UserID          string   `json:"user_id" bson:"_id"`
	SeenQuestionIDs []string `json:"seen_question_ids" bson:"seen_question_ids"`
}

// InboundEvent is one messaging event from the webhook, reduced to the fields
// the bot dispatches on. A well-formed event carries exactly one of Text or
// PostbackPayload; an event with neither is ignored.
type InboundEvent struct {
	SenderID        string
	Text            string
	PostbackPayload string
}

// Button is a postback button attached to an outbound message. Payload is an
// opaque string that comes back verbatim when the user clicks the button.
type Button struct {
	Title   string
	Payload string
}

// OutboundMessage is a reply: a text body plus up to four answer buttons, or
// a single next-question button.
type OutboundMessage struct {
	Text    string
	Buttons []Button
}
