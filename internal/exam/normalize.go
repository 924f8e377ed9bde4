package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"exam-practice-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// LooseString accepts a string, number or boolean where a string is expected.
// Pasted question sets routinely use numeric ids and options.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = LooseString(t)
	case json.Number:
		*s = LooseString(t.String())
	case bool:
		*s = LooseString(strconv.FormatBool(t))
	default:
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	return nil
}

func (s *LooseString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = LooseString(node.Value)
	return nil
}

// RawQuestion is one pasted question before validation.
type RawQuestion struct {
	ID             LooseString   `json:"id,omitempty" yaml:"id"`
	Question       string        `json:"question" yaml:"question"`
	Options        []LooseString `json:"options" yaml:"options"`
	CorrectAnswer  LooseString   `json:"correctAnswer,omitempty" yaml:"correctAnswer"`
	CorrectAnswers []LooseString `json:"correctAnswers,omitempty" yaml:"correctAnswers"`
	Explanation    string        `json:"explanation,omitempty" yaml:"explanation"`
	Topic          string        `json:"topic,omitempty" yaml:"topic"`
}

// QuestionSet is the object form of a pasted payload.
type QuestionSet struct {
	Title            string        `json:"title" yaml:"title"`
	Subject          string        `json:"subject" yaml:"subject"`
	TimeLimitSeconds int           `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
	Questions        []RawQuestion `json:"questions" yaml:"questions"`
}

// DecodeQuestionSet parses a pasted payload. JSON is detected by a leading '[' or '{';
// anything else is read as YAML. Both a bare list of questions and the object form are accepted.
func DecodeQuestionSet(data []byte) (QuestionSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return QuestionSet{}, domain.Invalid("questions", "payload is empty")
	}

	var set QuestionSet
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &set.Questions); err != nil {
			return QuestionSet{}, domain.Invalid("questions", err.Error())
		}
	case '{':
		if err := json.Unmarshal(trimmed, &set); err != nil {
			return QuestionSet{}, domain.Invalid("questions", err.Error())
		}
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return QuestionSet{}, domain.Invalid("questions", err.Error())
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			return QuestionSet{}, domain.Invalid("questions", "payload is empty")
		}
		root := doc.Content[0]
		var err error
		switch root.Kind {
		case yaml.SequenceNode:
			err = root.Decode(&set.Questions)
		case yaml.MappingNode:
			err = root.Decode(&set)
		default:
			err = fmt.Errorf("expected a list of questions")
		}
		if err != nil {
			return QuestionSet{}, domain.Invalid("questions", err.Error())
		}
	}
	if set.TimeLimitSeconds < 0 {
		return QuestionSet{}, domain.Invalid("timeLimitSeconds", "must be positive")
	}
	return set, nil
}

// Normalize validates a pasted batch and converts it into questions.
// The batch is all-or-nothing: the first malformed element fails it, with its index in the error.
func Normalize(raw []RawQuestion) ([]domain.Question, error) {
	if len(raw) == 0 {
		return nil, domain.ErrEmptyExam
	}

	questions := make([]domain.Question, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for i, r := range raw {
		text := strings.TrimSpace(r.Question)
		if text == "" {
			return nil, &domain.ValidationError{Index: i, Field: "question", Msg: "text is required"}
		}
		if len(r.Options) == 0 {
			return nil, &domain.ValidationError{Index: i, Field: "options", Msg: "must not be empty"}
		}
		options := make([]string, 0, len(r.Options))
		for j, o := range r.Options {
			opt := strings.TrimSpace(string(o))
			if opt == "" {
				return nil, &domain.ValidationError{Index: i, Field: "options", Msg: fmt.Sprintf("option %d is blank", j+1)}
			}
			options = append(options, opt)
		}

		correct := resolveCorrect(r)
		if len(correct) == 0 {
			return nil, &domain.ValidationError{Index: i, Field: "correctAnswers", Msg: "correctAnswer or correctAnswers is required"}
		}
		for _, c := range correct {
			if !contains(options, c) {
				return nil, &domain.ValidationError{Index: i, Field: "correctAnswers", Msg: fmt.Sprintf("%q is not one of the options", c)}
			}
		}

		id := strings.TrimSpace(string(r.ID))
		if id == "" {
			id = fmt.Sprintf("q_%d", i+1)
		}
		if prev, dup := seen[id]; dup {
			return nil, &domain.ValidationError{Index: i, Field: "id", Msg: fmt.Sprintf("%q is already used by question %d", id, prev+1)}
		}
		seen[id] = i

		kind := domain.KindSingle
		if len(correct) > 1 {
			kind = domain.KindMulti
		}
		questions = append(questions, domain.Question{
			ID:             id,
			Text:           text,
			Options:        options,
			CorrectAnswers: correct,
			Kind:           kind,
			Explanation:    r.Explanation,
			Topic:          r.Topic,
		})
	}
	return questions, nil
}

// BuildDefinition normalizes a decoded set into an exam definition.
func BuildDefinition(id string, set QuestionSet) (domain.ExamDefinition, error) {
	questions, err := Normalize(set.Questions)
	if err != nil {
		return domain.ExamDefinition{}, err
	}
	title := strings.TrimSpace(set.Title)
	if title == "" {
		title = "Untitled exam"
	}
	return domain.ExamDefinition{
		ID:               id,
		Title:            title,
		Subject:          strings.TrimSpace(set.Subject),
		Questions:        questions,
		TimeLimitSeconds: set.TimeLimitSeconds,
	}, nil
}

// SetSummary describes a normalized exam without revealing its answers.
type SetSummary struct {
	Title            string   `json:"title"`
	Subject          string   `json:"subject,omitempty"`
	Questions        int      `json:"questions"`
	MultiSelect      int      `json:"multiSelect"`
	Topics           []string `json:"topics"`
	TimeLimitSeconds int      `json:"timeLimitSeconds,omitempty"`
}

// Describe summarizes def. Topics are unique and sorted.
func Describe(def domain.ExamDefinition) SetSummary {
	sum := SetSummary{
		Title:            def.Title,
		Subject:          def.Subject,
		Questions:        len(def.Questions),
		Topics:           []string{},
		TimeLimitSeconds: def.TimeLimitSeconds,
	}
	for _, q := range def.Questions {
		if q.Kind == domain.KindMulti {
			sum.MultiSelect++
		}
		if t := strings.TrimSpace(q.Topic); t != "" && !contains(sum.Topics, t) {
			sum.Topics = append(sum.Topics, t)
		}
	}
	sort.Strings(sum.Topics)
	return sum
}

// resolveCorrect prefers correctAnswers over correctAnswer; blanks are dropped and duplicates collapsed.
func resolveCorrect(r RawQuestion) []string {
	candidates := r.CorrectAnswers
	if len(nonBlank(candidates)) == 0 {
		candidates = []LooseString{r.CorrectAnswer}
	}
	return nonBlank(candidates)
}

func nonBlank(values []LooseString) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(string(v))
		if s == "" || contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
