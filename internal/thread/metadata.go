package thread

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionLength is how much of the first message stands in for a missing
// thread title.
const QuestionLength = 100

// QAPage is the schema.org structured data emitted as application/ld+json.
type QAPage struct {
	Context    string   `json:"@context"`
	Type       string   `json:"@type"`
	MainEntity Question `json:"mainEntity"`
}

type Question struct {
	Type           string  `json:"@type"`
	Name           string  `json:"name"`
	Text           string  `json:"text"`
	AnswerCount    int     `json:"answerCount"`
	AcceptedAnswer *Answer `json:"acceptedAnswer,omitempty"`
}

type Answer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// QuestionTitle is the thread title, or the start of the first message when
// the title is missing or blank.
func QuestionTitle(first Message, title string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return Truncate(first.Content, QuestionLength)
}

// CanonicalHost prefers the tenant's custom domain over the main site.
func CanonicalHost(customDomain, mainSiteHostname string) string {
	if domain := strings.TrimSpace(customDomain); domain != "" {
		return domain
	}
	return mainSiteHostname
}

// SolutionURL links to the solution block on its message page.
func SolutionURL(host, solutionID string) string {
	return fmt.Sprintf("https://%s/m/%s#solution-%s", host, solutionID, solutionID)
}

// BuildQA derives the question/answer record for a thread. solution may be
// nil; a solution that is the first message itself is not counted as an
// answer.
func BuildQA(first Message, solution *Message, title, host string) QAPage {
	question := Question{
		Type: "Question",
		Name: StripMarkup(QuestionTitle(first, title)),
		Text: StripMarkup(first.Content),
	}
	if solution != nil && solution.ID != first.ID {
		question.AnswerCount = 1
		question.AcceptedAnswer = &Answer{
			Type: "Answer",
			Text: StripMarkup(solution.Content),
			URL:  SolutionURL(host, solution.ID),
		}
	}
	return QAPage{
		Context:    "https://schema.org",
		Type:       "QAPage",
		MainEntity: question,
	}
}

// MarshalLDJSON encodes page for a script tag. HTML-significant characters
// stay escaped.
func MarshalLDJSON(page QAPage) ([]byte, error) {
	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("marshal qa page: %w", err)
	}
	return data, nil
}
