package domain

import (
	"fmt"
	"time"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string              `json:"id"`
	Prompt  string              `json:"prompt"`
	Options [OptionCount]string `json:"options"`
	Correct int                 `json:"correct"`
}

// Validate checks that the question is playable.
func (q Question) Validate() error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: %q has no prompt", ErrInvalidQuestion, q.ID)
	}
	if q.Correct < 0 || q.Correct >= OptionCount {
		return fmt.Errorf("%w: %q correct index %d out of range", ErrInvalidQuestion, q.ID, q.Correct)
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("%w: %q option %d is empty", ErrInvalidQuestion, q.ID, i)
		}
	}
	return nil
}

// View strips the answer key so the question can be shown to a display.
func (q Question) View() *QuestionView {
	return &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// QuestionView is the display-safe form of a question.
type QuestionView struct {
	ID      string              `json:"id"`
	Prompt  string              `json:"prompt"`
	Options [OptionCount]string `json:"options"`
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Side is one of the two duel participants.
type Side int

const (
	Contestant Side = iota
	Chaser
)

func (s Side) String() string {
	if s == Chaser {
		return "chaser"
	}
	return "contestant"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Chaser {
		return Contestant
	}
	return Chaser
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "contestant":
		*s = Contestant
	case "chaser", "opponent":
		*s = Chaser
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// Tier is the simulated chaser's difficulty profile.
type Tier string

const (
	Easy   Tier = "easy"
	Medium Tier = "medium"
	Hard   Tier = "hard"
)

// ParseTier validates a tier name. An empty name selects Medium.
func ParseTier(raw string) (Tier, error) {
	switch Tier(raw) {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return Tier(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, raw)
}

// Mode selects which state machine drives a duel.
type Mode string

const (
	Alternating Mode = "alternating"
	CatchUp     Mode = "catchup"
)

// ParseMode validates a mode name. An empty name selects Alternating.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "":
		return Alternating, nil
	case Alternating, CatchUp:
		return Mode(raw), nil
	case "catch-up":
		return CatchUp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
}

// ControlMode says who answers for the chaser.
type ControlMode string

const (
	// Simulated chasers answer through the opponent decision service.
	Simulated ControlMode = "simulated"
	// External chasers are driven by a human operator through SubmitAnswer.
	External ControlMode = "external"
)

// EndReason explains how a duel finished.
type EndReason string

const (
	ReasonTimeout   EndReason = "timeout"
	ReasonExhausted EndReason = "exhausted"
	ReasonCaught    EndReason = "caught"
)

// Result is the outcome from the contestant's point of view.
type Result string

const (
	Win  Result = "win"
	Loss Result = "loss"
)

// Outcome is reported exactly once when a duel ends.
type Outcome struct {
	DuelID              string    `json:"duelId"`
	Mode                Mode      `json:"mode"`
	Winner              Side      `json:"winner"`
	Result              Result    `json:"result"`
	Reason              EndReason `json:"reason"`
	ContestantScore     int       `json:"contestantScore"`
	ChaserScore         int       `json:"chaserScore"`
	Pushbacks           int       `json:"pushbacks"`
	ContestantRemaining int       `json:"contestantTimeRemaining"`
	ChaserRemaining     int       `json:"chaserTimeRemaining"`
	FinishedAt          time.Time `json:"finishedAt"`
}

// Snapshot is broadcast on every clock tick and every transition. Target,
// the score the chaser has to exceed, is only set in catch-up duels.
type Snapshot struct {
	DuelID                  string        `json:"duelId"`
	Mode                    Mode          `json:"mode"`
	ContestantTimeRemaining int           `json:"contestantTimeRemaining"`
	ChaserTimeRemaining     int           `json:"chaserTimeRemaining"`
	ActiveSide              Side          `json:"activeSide"`
	Phase                   string        `json:"phase"`
	ContestantScore         int           `json:"contestantScore"`
	ChaserScore             int           `json:"chaserScore"`
	Pushbacks               int           `json:"pushbacks"`
	Target                  *int          `json:"target,omitempty"`
	Question                *QuestionView `json:"question,omitempty"`
	Selected                *int          `json:"selected,omitempty"`
	Revealed                *int          `json:"revealed,omitempty"`
	Thinking                bool          `json:"thinking"`
	Ended                   bool          `json:"ended"`
	Outcome                 *Outcome      `json:"outcome,omitempty"`
}
