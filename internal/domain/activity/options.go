package activity

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	UID       string
	SessionID *string
	Type      *Type
	Limit     int
	Offset    int
}
