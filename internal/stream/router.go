package stream

// Route is the behaviour selected for a request.
type Route int

const (
	RouteNotFound Route = iota
	RouteStatic
	RouteStream
	RouteMethodNotAllowed
)

func (r Route) String() string {
	switch r {
	case RouteStatic:
		return "static"
	case RouteStream:
		return "stream"
	case RouteMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "not_found"
	}
}

// RootPath serves the static page.
const RootPath = "/"

// Router dispatches on exact path matches. Only GET is supported.
type Router struct {
	StreamPath string
}

func (rt Router) Route(req Request) Route {
	if req.Method != "GET" {
		return RouteMethodNotAllowed
	}
	switch req.Path {
	case RootPath:
		return RouteStatic
	case rt.StreamPath:
		return RouteStream
	}
	return RouteNotFound
}
