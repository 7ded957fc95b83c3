package session

import "github.com/brightline-agency/agency/internal/models"

// Phase is the coarse state of the session machine
type Phase int

const (
	PhaseHydrating Phase = iota
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseHydrating:
		return "hydrating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// State is a snapshot of the session
type State struct {
	Token   string
	User    *models.UserProfile
	Loading bool
	Err     string
}

// IsAuthenticated holds iff both the token and the user are present
func (s State) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// IsAdmin reports an authenticated admin
func (s State) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// Phase derives the machine state
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseHydrating
	case s.IsAuthenticated():
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}
