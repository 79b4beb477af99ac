package session

// Operation names a session operation kind. Each kind has its own status.
type Operation string

const (
	OpLogin    Operation = "login"
	OpRegister Operation = "register"
	OpLogout   Operation = "logout"
	OpRestore  Operation = "restore"
)
