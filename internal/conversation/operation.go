package conversation

// Operation names a conversation operation kind. Each kind has its own status.
type Operation string

const (
	OpList   Operation = "list"
	OpFetch  Operation = "fetch"
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
	OpSend   Operation = "send"
)

// Operations lists every kind in display order.
var Operations = []Operation{OpList, OpFetch, OpCreate, OpDelete, OpSend}
