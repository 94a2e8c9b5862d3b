package models

// ActorKind tells whether a deleting principal is a stored account or a stand-in.
type ActorKind int

const (
	// RealActor is an account loaded from the users table.
	RealActor ActorKind = iota
	// SystemStub is a synthetic identity used when no root account exists.
	SystemStub
)

// SystemStubID and SystemStubUsername identify the synthetic system actor.
const (
	SystemStubID       = "system"
	SystemStubUsername = "system"
)

// Actor is the principal recorded as the deleter of content.
type Actor struct {
	Kind     ActorKind
	ID       string
	Username string
}

// ActorFromUser wraps a stored account.
func ActorFromUser(u *User) Actor {
	return Actor{Kind: RealActor, ID: u.ID, Username: u.Username}
}

// SystemActor returns the synthetic stand-in identity.
func SystemActor() Actor {
	return Actor{Kind: SystemStub, ID: SystemStubID, Username: SystemStubUsername}
}

func (a Actor) IsStub() bool { return a.Kind == SystemStub }
