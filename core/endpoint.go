package core

// Access is the authentication an endpoint requires
type Access int

const (
	AccessPublic Access = iota
	AccessSession
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessSession:
		return "session"
	case AccessAdmin:
		return "admin"
	default:
		return "public"
	}
}

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint is a framework-agnostic route description. Adapters bind a handler
// to each endpoint by OperationID.
type Endpoint struct {
	Path     string
	Method   string
	Access   Access
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
