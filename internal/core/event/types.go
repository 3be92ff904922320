package event

// Tick-loop event types.

type AvatarEnteredWorld struct {
	AccountID int64
	Username  string
}

type AvatarLeftWorld struct {
	AccountID int64
	Username  string
}

type CommandDispatched struct {
	AccountID int64
	Input     string
}
