package role

type Role int

const (
	Viewer   Role = iota // read-only staff
	Operator             // manages services and renewals
	Admin
)

func (r Role) String() string {
	switch r {
	case Viewer:
		return "viewer"
	case Operator:
		return "operator"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= Viewer && r <= Admin
}

// CanManageServices gates every mutating service and renewal operation.
func (r Role) CanManageServices() bool {
	return r == Operator || r == Admin
}
