package gate

import (
	"fmt"

	"github.com/go-drift/filelab/pkg/errors"
)

// Outcome is the kind of a Decision.
type Outcome int

const (
	Proceed Outcome = iota
	RequestPermission
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case RequestPermission:
		return "request-permission"
	case Blocked:
		return "blocked"
	default:
		return "proceed"
	}
}

// Route says how a proceeding operation reaches its data.
type Route int

const (
	// RouteDirect opens a file path.
	RouteDirect Route = iota
	// RouteDocumentPicker delegates to the system document picker.
	RouteDocumentPicker
	// RouteMediaIndex goes through the shared media index.
	RouteMediaIndex
)

func (r Route) String() string {
	switch r {
	case RouteDocumentPicker:
		return "document-picker"
	case RouteMediaIndex:
		return "media-index"
	default:
		return "direct"
	}
}

// Decision is the result of Evaluate.
type Decision struct {
	Outcome Outcome
	// Route is set for Proceed, and for RequestPermission it is the route
	// the operation takes once granted.
	Route Route
	// Permission is set for RequestPermission.
	Permission PermissionKind
	// ShowRationale asks the caller to explain the permission before
	// requesting it.
	ShowRationale bool
	// Reason is set for Blocked.
	Reason errors.Kind

	target     Target
	op         Operation
	capability Capability
}

// Target returns the target the decision was made for.
func (d Decision) Target() Target { return d.target }

// Operation returns the operation the decision was made for.
func (d Decision) Operation() Operation { return d.op }

func (d Decision) String() string {
	switch d.Outcome {
	case Blocked:
		return fmt.Sprintf("blocked(%s)", d.Reason)
	case RequestPermission:
		if d.ShowRationale {
			return fmt.Sprintf("request(%s, rationale)", d.Permission)
		}
		return fmt.Sprintf("request(%s)", d.Permission)
	default:
		return fmt.Sprintf("proceed(%s)", d.Route)
	}
}

// Err returns the sentinel error of a Blocked decision, nil otherwise.
func (d Decision) Err() error {
	if d.Outcome != Blocked {
		return nil
	}
	return errors.Sentinel(d.Reason)
}

// Evaluate applies the storage policy:
//
//	Resources               read proceeds; write is always blocked
//	InternalStorage         always proceeds
//	PrivateExternalStorage  needs media; proceeds on SDK >= 19, else needs permission
//	PublicMediaStorage      needs media; proceeds on SDK >= 29, else needs permission
//	PublicOtherStorage      needs media; write goes to the picker on SDK >= 19,
//	                        read goes to the picker on SDK > 19; otherwise needs permission
//
// A permission already granted counts as proceeding.
func Evaluate(target Target, op Operation, c Capability) Decision {
	d := Decision{target: target, op: op, capability: c}

	switch target {
	case Resources:
		if op == Write {
			return d.blocked(errors.KindReadOnly)
		}
		return d.proceed(RouteDirect)

	case InternalStorage:
		return d.proceed(RouteDirect)

	case PrivateExternalStorage:
		if !c.Media.Allows(op) {
			return d.blocked(errors.KindMediaUnavailable)
		}
		if c.SDK >= SDKKitKat {
			return d.proceed(RouteDirect)
		}
		return d.gated(RouteDirect)

	case PublicMediaStorage:
		if !c.Media.Allows(op) {
			return d.blocked(errors.KindMediaUnavailable)
		}
		if c.SDK >= SDKQ {
			return d.proceed(RouteMediaIndex)
		}
		return d.gated(RouteMediaIndex)

	case PublicOtherStorage:
		if !c.Media.Allows(op) {
			return d.blocked(errors.KindMediaUnavailable)
		}
		route := RouteDirect
		if c.SDK >= SDKKitKat {
			route = RouteDocumentPicker
		}
		if op == Write && c.SDK >= SDKKitKat {
			return d.proceed(route)
		}
		// Reads skip the permission check only above KitKat; on KitKat itself
		// the picker is used but the permission is still required.
		if op == Read && c.SDK > SDKKitKat {
			return d.proceed(route)
		}
		return d.gated(route)
	}

	return d.blocked(errors.KindUnknown)
}

// Resume continues a RequestPermission decision once the permission
// callback delivers its result. A grant re-evaluates with the permission
// held; a denial blocks with KindPermissionDenied. Any other decision is
// returned unchanged.
func Resume(d Decision, granted bool) Decision {
	if d.Outcome != RequestPermission {
		return d
	}
	if !granted {
		return d.blocked(errors.KindPermissionDenied)
	}
	c := d.capability
	c.Permission = Granted
	return Evaluate(d.target, d.op, c)
}

func (d Decision) proceed(route Route) Decision {
	d.Outcome = Proceed
	d.Route = route
	return d
}

func (d Decision) blocked(reason errors.Kind) Decision {
	d.Outcome = Blocked
	d.Reason = reason
	d.Permission = ""
	d.ShowRationale = false
	return d
}

func (d Decision) gated(route Route) Decision {
	if d.capability.Permission == Granted {
		return d.proceed(route)
	}
	d.Outcome = RequestPermission
	d.Route = route
	d.Permission = PermissionFor(d.op)
	d.ShowRationale = d.capability.Permission == DeniedShowRationale
	return d
}
