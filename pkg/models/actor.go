package models

// Actor identifies who is performing a request: display name plus the
// stable login handle. Resolved by the session middleware.
type Actor struct {
	Name  string `json:"name"`
	Login string `json:"login"`
}

// AnonymousActor is used when no session identity is present.
var AnonymousActor = Actor{Name: "Anonymous", Login: "anonymous"}
