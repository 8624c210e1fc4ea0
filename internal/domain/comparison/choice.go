package comparison

import (
	"fmt"
	"strings"
)

// Choice is a user action on a Session as received from the presentation
// layer.
type Choice string

// Choices accepted by Apply.
const (
	ChoiceCandidate Choice = "candidate"
	ChoiceExisting  Choice = "existing"
	ChoiceSkip      Choice = "skip"
	ChoiceBack      Choice = "back"
	ChoiceBaseline  Choice = "baseline"
)

// ParseChoice validates a choice name.
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ChoiceCandidate, ChoiceExisting, ChoiceSkip, ChoiceBack, ChoiceBaseline:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChoice, s)
}

// Apply performs c on s.
func Apply(s *Session, c Choice) error {
	switch c {
	case ChoiceCandidate:
		return s.PreferCandidate()
	case ChoiceExisting:
		return s.PreferExisting()
	case ChoiceSkip:
		return s.CannotDecide()
	case ChoiceBack:
		s.GoBack()
		return nil
	case ChoiceBaseline:
		return s.ConfirmBaseline()
	}
	return fmt.Errorf("%w: %q", ErrUnknownChoice, string(c))
}
