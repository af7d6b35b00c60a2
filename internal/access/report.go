package access

import "net/http"

// Surface identifies which transport a request arrived on.
type Surface int

const (
	// SurfaceWeb serves server-rendered pages.
	SurfaceWeb Surface = iota
	// SurfaceAPI serves JSON.
	SurfaceAPI
)

// Login and self-action redirect targets for the web surface.
const (
	LoginPath        = "/login"
	SelfActionTarget = "/admin/dashboard?error=cannotDeleteSelf"
	ErrorTemplate    = "pages/error.html"
)

// Outcome is the transport-level response selected for a denied decision.
type Outcome struct {
	Status   int
	Redirect string
	Template string
	Message  string
}

// IsRedirect reports whether the outcome is a redirect.
func (o Outcome) IsRedirect() bool {
	return o.Redirect != ""
}

// Report maps a failure to a transport outcome. It performs no authorization
// logic.
func Report(kind FailureKind, surface Surface) Outcome {
	if surface == SurfaceAPI {
		return apiOutcome(kind)
	}
	return webOutcome(kind)
}

// ReportUnavailable is the outcome for errors that prevented a decision.
func ReportUnavailable(surface Surface) Outcome {
	out := Outcome{Status: http.StatusInternalServerError, Message: "The request could not be authorized right now"}
	if surface == SurfaceWeb {
		out.Template = ErrorTemplate
	}
	return out
}

func webOutcome(kind FailureKind) Outcome {
	switch kind {
	case Unauthenticated:
		return Outcome{Status: http.StatusSeeOther, Redirect: LoginPath}
	case SelfActionForbidden:
		return Outcome{Status: http.StatusSeeOther, Redirect: SelfActionTarget}
	case NotFound:
		return Outcome{Status: http.StatusNotFound, Template: ErrorTemplate, Message: "The page you are looking for does not exist"}
	case InvalidReference:
		return Outcome{Status: http.StatusBadRequest, Template: ErrorTemplate, Message: "The request refers to an invalid resource"}
	default:
		return Outcome{Status: http.StatusForbidden, Template: ErrorTemplate, Message: "You are not allowed to do that"}
	}
}

func apiOutcome(kind FailureKind) Outcome {
	switch kind {
	case Unauthenticated:
		return Outcome{Status: http.StatusUnauthorized, Message: "authentication required"}
	case SelfActionForbidden:
		return Outcome{Status: http.StatusForbidden, Message: "you cannot perform this action on your own account"}
	case NotFound:
		return Outcome{Status: http.StatusNotFound, Message: "resource not found"}
	case InvalidReference:
		return Outcome{Status: http.StatusBadRequest, Message: "invalid id"}
	default:
		return Outcome{Status: http.StatusForbidden, Message: "forbidden"}
	}
}
