package auctionapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidMessage is returned for envelopes and messages that cannot be dispatched.
var ErrInvalidMessage = errors.New("invalid message")

// Request types accepted by the host server.
const (
	RequestPing        = "ping"
	RequestInstantiate = "instantiate"
	RequestExecute     = "execute"
	RequestQuery       = "query"
	RequestKey         = "key_request"
)

// Coin is a denomination and an amount in the smallest unit, encoded as a decimal string.
type Coin struct {
	Denom  string `json:"denom" cbor:"denom"`
	Amount string `json:"amount" cbor:"amount"`
}

// InstantiateMsg configures a new auction.
type InstantiateMsg struct {
	Owner               *string         `json:"owner,omitempty"`
	RequiredNativeDenom string          `json:"required_native_denom"`
	Fee                 decimal.Decimal `json:"fee"`
}

type BidMsg struct{}

type CloseMsg struct{}

// RetractMsg optionally redirects the refund to FriendRec.
type RetractMsg struct {
	FriendRec *string `json:"friend_rec,omitempty"`
}

// ExecuteMsg is an externally tagged union: exactly one field is set, e.g. {"bid":{}}.
type ExecuteMsg struct {
	Bid     *BidMsg     `json:"bid,omitempty"`
	Close   *CloseMsg   `json:"close,omitempty"`
	Retract *RetractMsg `json:"retract,omitempty"`
}

// Action names the variant carried by the message.
func (m *ExecuteMsg) Action() (string, error) {
	var actions []string
	if m.Bid != nil {
		actions = append(actions, "bid")
	}
	if m.Close != nil {
		actions = append(actions, "close")
	}
	if m.Retract != nil {
		actions = append(actions, "retract")
	}
	return single(actions)
}

type BidderTotalBidQuery struct {
	Address string `json:"address"`
}

type HighestBidInfoQuery struct{}

type TotalNumberOfParticipantsQuery struct{}

// QueryMsg is an externally tagged union like ExecuteMsg.
type QueryMsg struct {
	BidderTotalBid            *BidderTotalBidQuery            `json:"bidder_total_bid,omitempty"`
	HighestBidInfo            *HighestBidInfoQuery            `json:"highest_bid_info,omitempty"`
	TotalNumberOfParticipants *TotalNumberOfParticipantsQuery `json:"total_number_of_participants,omitempty"`
}

// Kind names the variant carried by the query.
func (m *QueryMsg) Kind() (string, error) {
	var kinds []string
	if m.BidderTotalBid != nil {
		kinds = append(kinds, "bidder_total_bid")
	}
	if m.HighestBidInfo != nil {
		kinds = append(kinds, "highest_bid_info")
	}
	if m.TotalNumberOfParticipants != nil {
		kinds = append(kinds, "total_number_of_participants")
	}
	return single(kinds)
}

func single(variants []string) (string, error) {
	switch len(variants) {
	case 1:
		return variants[0], nil
	case 0:
		return "", fmt.Errorf("%w: no variant set", ErrInvalidMessage)
	default:
		return "", fmt.Errorf("%w: multiple variants set %v", ErrInvalidMessage, variants)
	}
}

// BankSend moves Amount from the auction's custody to ToAddress.
type BankSend struct {
	ToAddress string `json:"to_address" cbor:"to_address"`
	Amount    []Coin `json:"amount" cbor:"amount"`
}

// Message is an outgoing instruction the host executes after commit.
type Message struct {
	BankSend *BankSend `json:"bank_send,omitempty" cbor:"bank_send,omitempty"`
}

type Attribute struct {
	Key   string `json:"key" cbor:"key"`
	Value string `json:"value" cbor:"value"`
}

// Response is the wire form of a successful instantiate or execute.
type Response struct {
	Messages   []Message   `json:"messages"`
	Attributes []Attribute `json:"attributes"`
}

// BidEventInfoResponse answers highest_bid_info. Addr and BidAmount are null before the first bid.
type BidEventInfoResponse struct {
	Addr        *string `json:"addr"`
	BidAmount   *string `json:"bid_amount"`
	EventClosed bool    `json:"event_closed"`
}

// Request is the envelope read from one server connection.
type Request struct {
	Type        string          `json:"type"`
	Sender      string          `json:"sender,omitempty"`
	Funds       []Coin          `json:"funds,omitempty"`
	Instantiate *InstantiateMsg `json:"instantiate,omitempty"`
	Execute     *ExecuteMsg     `json:"execute,omitempty"`
	Query       *QueryMsg       `json:"query,omitempty"`
}

// HostResponse is the envelope written back for instantiate, execute and query requests.
type HostResponse struct {
	Type              string          `json:"type"`
	Success           bool            `json:"success"`
	Message           string          `json:"message,omitempty"`
	ErrorCode         string          `json:"error_code,omitempty"`
	Response          *Response       `json:"response,omitempty"`
	Result            json.RawMessage `json:"result,omitempty"`
	ReceiptID         string          `json:"receipt_id,omitempty"`
	ReceiptCOSEBase64 COSEBase64      `json:"receipt_cose_base64,omitempty"`
	ProcessingTime    int64           `json:"processing_time_ms"`
}

// KeyResponse carries the receipt verification key, attested when running inside an enclave.
type KeyResponse struct {
	Type                  string     `json:"type"`
	PublicKey             string     `json:"public_key"` // PEM format
	KeyAlgorithm          string     `json:"key_algorithm"`
	AttestationCOSEBase64 COSEBase64 `json:"attestation_cose_base64,omitempty"`
}

// KeyAttestationUserData is embedded in the key attestation document.
type KeyAttestationUserData struct {
	KeyAlgorithm string `json:"key_algorithm"`
	PublicKey    string `json:"public_key"` // PEM-encoded public key
	KeyID        string `json:"key_id"`
}

// Receipt is the signed record of one committed execute call. It is CBOR encoded and
// carried as the payload of a COSE_Sign1 message.
type Receipt struct {
	ID         string      `json:"id" cbor:"id"`
	Action     string      `json:"action" cbor:"action"`
	Sender     string      `json:"sender" cbor:"sender"`
	Funds      []Coin      `json:"funds,omitempty" cbor:"funds,omitempty"`
	Messages   []Message   `json:"messages" cbor:"messages"`
	Attributes []Attribute `json:"attributes" cbor:"attributes"`
	LedgerHash string      `json:"ledger_hash" cbor:"ledger_hash"` // auction state after the call
	Timestamp  int64       `json:"timestamp" cbor:"timestamp"`     // unix seconds
}
