package domain

// QuestionType is the closed enumeration of question kinds the extraction
// collaborator can declare. Prompt templates and answer formatting dispatch
// on it; AllQuestionTypes keeps the dispatch tables checkable.
type QuestionType string

const (
	MultipleChoiceSingle QuestionType = "multiple-choice-single"
	MultipleChoiceMulti  QuestionType = "multiple-choice-multi"
	FillInBlank          QuestionType = "fill-in-blank"
	TrueFalse            QuestionType = "true-false"
	Matching             QuestionType = "matching"
	Checkbox             QuestionType = "checkbox"
	FreeText             QuestionType = "free-text"
	Numeric              QuestionType = "numeric"
	DateTime             QuestionType = "date-time"
	Ordering             QuestionType = "ordering"
	Categorization       QuestionType = "categorization"
	Comparison           QuestionType = "comparison"
	CauseEffect          QuestionType = "cause-effect"
	Definition           QuestionType = "definition"
	Explanation          QuestionType = "explanation"
	Analysis             QuestionType = "analysis"
	Evaluation           QuestionType = "evaluation"
)

// AllQuestionTypes lists every member of the enumeration in declaration
// order.
var AllQuestionTypes = []QuestionType{
	MultipleChoiceSingle,
	MultipleChoiceMulti,
	FillInBlank,
	TrueFalse,
	Matching,
	Checkbox,
	FreeText,
	Numeric,
	DateTime,
	Ordering,
	Categorization,
	Comparison,
	CauseEffect,
	Definition,
	Explanation,
	Analysis,
	Evaluation,
}

// Valid reports whether t is a member of the enumeration.
func (t QuestionType) Valid() bool {
	for _, known := range AllQuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Question is an extracted questionnaire record. It is produced and
// validated by the extraction collaborator and read-only here.
type Question struct {
	ID           string       `json:"question_id"`
	Text         string       `json:"question_text"`
	DeclaredType QuestionType `json:"question_type"`
	Options      []string     `json:"options,omitempty"`
}

// AnswerState tracks a question through synthesis. FORMATTED and FAILED are
// terminal; FAILED is reachable from any step.
type AnswerState string

const (
	StatePending          AnswerState = "PENDING"
	StateContextAssembled AnswerState = "CONTEXT_ASSEMBLED"
	StateGenerated        AnswerState = "GENERATED"
	StateFormatted        AnswerState = "FORMATTED"
	StateFailed           AnswerState = "FAILED"
)

// Answer is the synthesized result for one question. Created once, never
// mutated after synthesis finishes, and always present in batch output even
// when the question failed.
type Answer struct {
	QuestionID    string       `json:"question_id"`
	DeclaredType  QuestionType `json:"question_type"`
	FormattedText string       `json:"formatted_text"`
	Confidence    float64      `json:"confidence"`
	ContextIDs    []string     `json:"raw_context_ids"`
	State         AnswerState  `json:"state"`
	FailureReason string       `json:"failure_reason,omitempty"`
	Degraded      bool         `json:"degraded,omitempty"`
}
