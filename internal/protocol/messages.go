package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	BoardID         string     `json:"board_id"`
	ClientName      string     `json:"client_name,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id,omitempty"`
	UserID          string      `json:"user_id"`
	Username        string      `json:"username,omitempty"`
	Role            string      `json:"role,omitempty"`
	BoardID         string      `json:"board_id"`
	BoardParams     BoardParams `json:"board_params"`
}

type BoardParams struct {
	Size       float64 `json:"size"`
	ItemWidth  float64 `json:"item_width"`
	ItemHeight float64 `json:"item_height"`
}

// EVENT (server -> client). Exactly one of the per-name field groups is
// populated: Item for ITEM_CREATED, the patch fields for ITEM_UPDATED, and
// only ItemID for ITEM_DELETED. UpdatedAtMs is the server clock in unix
// milliseconds and is the only field used for newer-than comparison.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	BoardID         string `json:"board_id,omitempty"`

	ItemID string    `json:"item_id,omitempty"`
	Item   *ItemWire `json:"item,omitempty"`

	// ITEM_UPDATED patch fields; nil means absent from the event.
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	LikedBy     []string `json:"liked_by,omitempty"`
	Pinned      *bool    `json:"pinned,omitempty"`
	UpdatedAtMs int64    `json:"updated_at_ms,omitempty"`
}

// ItemWire is the canonical wire shape of a board item.
type ItemWire struct {
	ID          string   `json:"id"`
	CorrID      string   `json:"corr_id,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Content     string   `json:"content"`
	OwnerID     string   `json:"owner_id"`
	OwnerName   string   `json:"owner_name,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	Pinned      bool     `json:"pinned,omitempty"`
	LikedBy     []string `json:"liked_by,omitempty"`
	CreatedAtMs int64    `json:"created_at_ms"`
	UpdatedAtMs int64    `json:"updated_at_ms"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
