package coinbase

// Subscription message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// SubscribeMessage is the subscribe / unsubscribe request sent over the websocket.
// Exactly one of JWT or Signature is set once the message has been signed.
type SubscribeMessage struct {
	Type       string   `json:"type"`                // "subscribe" or "unsubscribe"
	ProductIDs []string `json:"product_ids"`         // e.g. ["BTC-USD"]
	Channel    string   `json:"channel"`             // wire channel name
	APIKey     string   `json:"api_key,omitempty"`   // set by the signer
	Timestamp  string   `json:"timestamp,omitempty"` // unix seconds
	JWT        string   `json:"jwt,omitempty"`       // token mode
	Signature  string   `json:"signature,omitempty"` // legacy mode, hex HMAC-SHA256
}

// NewSubscribeMessage builds an unsigned subscription request.
func NewSubscribeMessage(msgType string, channel Channel, productIDs []string) *SubscribeMessage {
	products := make([]string, len(productIDs))
	copy(products, productIDs)
	return &SubscribeMessage{
		Type:       msgType,
		ProductIDs: products,
		Channel:    channel.String(),
	}
}

// GenericMessage holds the top-level fields shared by every inbound frame.
type GenericMessage struct {
	Channel     string `json:"channel"`
	ClientID    string `json:"client_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	SequenceNum int64  `json:"sequence_num"`
	Type        string `json:"type,omitempty"`    // "error" for rejected requests
	Message     string `json:"message,omitempty"` // error description
}

// Envelope is an inbound frame decoded with channel specific events.
type Envelope[T any] struct {
	Channel     string `json:"channel"`
	ClientID    string `json:"client_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	SequenceNum int64  `json:"sequence_num"`
	Events      []T    `json:"events"`
}
