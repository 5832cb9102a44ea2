package domain

// ChatType identifies the kind of chat a message arrived from
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeP2P   ChatType = "p2p"
)
