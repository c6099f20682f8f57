// Package guard decides whether a visitor may see a view.
//
// Authorization is a pure function of the current session and the view's
// requirement. The outcome is tagged, so callers can route "not signed in"
// and "wrong role" differently; DefaultPolicy collapses both to the login view.
package guard

import "github.com/trajector/portal/internal/model"

type Requirement int

const (
	// None marks a public view.
	None Requirement = iota
	// Any admits every signed-in role.
	Any
	IntakeOnly
	ClientOnly
)

func (r Requirement) String() string {
	switch r {
	case None:
		return "none"
	case Any:
		return "any"
	case IntakeOnly:
		return "intake-only"
	case ClientOnly:
		return "client-only"
	}
	return "unknown"
}

type Outcome int

const (
	Authorized Outcome = iota
	Unauthenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Authorize evaluates a requirement against the current session (nil when
// nobody is signed in).
func Authorize(s *model.Session, req Requirement) Outcome {
	if req == None {
		return Authorized
	}
	if s == nil {
		return Unauthenticated
	}
	switch req {
	case Any:
		return Authorized
	case IntakeOnly:
		if s.Role == model.RoleIntake {
			return Authorized
		}
	case ClientOnly:
		if s.Role == model.RoleClient {
			return Authorized
		}
	}
	return Forbidden
}

// View paths served by the portal.
const (
	LoginPath  = "/login"
	AdminPath  = "/admin"
	ClientPath = "/client"
	UploadPath = "/upload"
)

// Policy maps non-authorized outcomes to redirect targets.
type Policy struct {
	Unauthenticated string
	Forbidden       string
}

// DefaultPolicy sends both unauthenticated and wrong-role visitors to login.
var DefaultPolicy = Policy{Unauthenticated: LoginPath, Forbidden: LoginPath}

type Decision struct {
	Outcome  Outcome
	Render   bool
	Redirect string
}

func (p Policy) Decide(s *model.Session, req Requirement) Decision {
	switch o := Authorize(s, req); o {
	case Unauthenticated:
		return Decision{Outcome: o, Redirect: p.Unauthenticated}
	case Forbidden:
		return Decision{Outcome: o, Redirect: p.Forbidden}
	default:
		return Decision{Outcome: o, Render: true}
	}
}

// Landing picks the view a visitor is sent to from the landing page and
// right after login.
func Landing(s *model.Session) string {
	switch {
	case s == nil:
		return LoginPath
	case s.Role == model.RoleIntake:
		return AdminPath
	default:
		return ClientPath
	}
}
