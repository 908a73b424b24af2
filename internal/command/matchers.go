package command

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Input is what the command bar hands the resolver. Code is set when the
// input came from a keyboard shortcut rather than typed text.
type Input struct {
	Text string
	Code string
}

// Matcher is one synchronous step of the resolution chain.
type Matcher interface {
	Match(in Input) (Intent, bool)
}

type MatcherFunc func(Input) (Intent, bool)

func (f MatcherFunc) Match(in Input) (Intent, bool) { return f(in) }

// DefaultMatchers is the deterministic chain in priority order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		DirectCodeMatcher{},
		EntityMatcher{},
		ActionMatcher{},
		NewKeywordMatcher(DefaultKeywords()),
	}
}

var actionCodes = map[string]Action{
	"ACTION:CREATE_DEAL":    ActionCreateDeal,
	"ACTION:CREATE_CONTACT": ActionCreateContact,
	"ACTION:CREATE_TASK":    ActionCreateTask,
	"ACTION:SEARCH":         ActionSearch,
}

// DirectCodeMatcher accepts shortcut codes such as VIEW:WEEK. A code may
// arrive in Code or be typed verbatim.
type DirectCodeMatcher struct{}

func (DirectCodeMatcher) Match(in Input) (Intent, bool) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(in.Text))
	}
	if v := ViewCommand(code); v.Valid() {
		return ViewIntent{Command: v}, true
	}
	a, ok := actionCodes[code]
	if !ok {
		return nil, false
	}
	if a != ActionSearch {
		return ActionIntent{Action: a}, true
	}
	// ACTION:SEARCH from a shortcut searches for whatever was typed.
	if term := strings.TrimSpace(in.Text); in.Code != "" && term != "" {
		return ActionIntent{Action: a, Argument: term}, true
	}
	return nil, false
}

var entityPattern = regexp.MustCompile(`(?i)^(deal|contact|company)\s*[:#/]\s*([a-z0-9][a-z0-9_-]{0,63})$`)

// EntityMatcher recognises typed id references: deal:<id>, contact:<id>,
// company:<id>.
type EntityMatcher struct{}

func (EntityMatcher) Match(in Input) (Intent, bool) {
	m := entityPattern.FindStringSubmatch(strings.TrimSpace(in.Text))
	if m == nil {
		return nil, false
	}
	return EntityIntent{Entity: EntityType(strings.ToLower(m[1])), ID: m[2]}, true
}

var (
	createPattern = regexp.MustCompile(`(?i)^(?:new|create|add)\s+(deal|contact|task)\b\s*[:\-]?\s*(.*)$`)
	searchPattern = regexp.MustCompile(`(?i)^(?:search|find|lookup)\s+(?:for\s+)?(.+)$`)
)

// ActionMatcher recognises "new deal Acme renewal" and "search globex".
type ActionMatcher struct{}

func (ActionMatcher) Match(in Input) (Intent, bool) {
	text := strings.TrimSpace(in.Text)
	if m := createPattern.FindStringSubmatch(text); m != nil {
		var a Action
		switch strings.ToLower(m[1]) {
		case "deal":
			a = ActionCreateDeal
		case "contact":
			a = ActionCreateContact
		default:
			a = ActionCreateTask
		}
		return ActionIntent{Action: a, Argument: strings.TrimSpace(m[2])}, true
	}
	if m := searchPattern.FindStringSubmatch(text); m != nil {
		return ActionIntent{Action: ActionSearch, Argument: strings.TrimSpace(m[1])}, true
	}
	return nil, false
}

type Keyword struct {
	Command ViewCommand
	Words   []string
}

func DefaultKeywords() []Keyword {
	return []Keyword{
		{ViewPipeline, []string{"pipeline", "deals", "stages"}},
		{ViewQuarter, []string{"quarter", "quarterly", "forecast", "landscape"}},
		{ViewContacts, []string{"contacts", "people"}},
		{ViewToday, []string{"today", "now", "agenda"}},
		{ViewWeek, []string{"week", "weekly", "horizon"}},
		{ViewActivities, []string{"activities", "activity", "timeline"}},
		{ViewSettings, []string{"settings", "preferences"}},
	}
}

// Tokens shorter than this never fuzzy match; "week" vs "weak" is not a typo
// worth guessing at.
const fuzzyMinLen = 5

// navigationWords carry no content of their own: "show me the pipeline" is a
// navigation phrase, "pipeline by stage" is a question.
var navigationWords = map[string]bool{
	"show": true, "me": true, "my": true, "the": true, "a": true, "this": true,
	"go": true, "to": true, "open": true, "view": true, "see": true, "take": true,
	"switch": true, "jump": true, "back": true, "please": true, "what's": true,
	"whats": true, "what": true, "is": true, "on": true, "for": true, "recent": true,
	"current": true, "all": true, "list": true, "display": true, "our": true,
}

// KeywordMatcher maps a navigation phrase to a view. The input must hold
// exactly one content word and that word must be a keyword, exactly or one
// edit away. Anything richer is left for the generative fallback.
type KeywordMatcher struct {
	table []Keyword
}

func NewKeywordMatcher(table []Keyword) KeywordMatcher {
	return KeywordMatcher{table: table}
}

func (k KeywordMatcher) Match(in Input) (Intent, bool) {
	var content []string
	for _, tok := range tokenize(in.Text) {
		if !navigationWords[tok] {
			content = append(content, tok)
		}
	}
	if len(content) != 1 {
		return nil, false
	}
	tok := content[0]
	for _, kw := range k.table {
		for _, w := range kw.Words {
			if tok == w {
				return ViewIntent{Command: kw.Command}, true
			}
		}
	}
	if len(tok) < fuzzyMinLen {
		return nil, false
	}
	for _, kw := range k.table {
		for _, w := range kw.Words {
			if len(w) >= fuzzyMinLen && levenshtein.ComputeDistance(tok, w) <= 1 {
				return ViewIntent{Command: kw.Command}, true
			}
		}
	}
	return nil, false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
