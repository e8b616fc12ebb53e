package protocol

import "encoding/json"

const Version = "1.0"

// Client -> server message types.
const (
	TypeHello         = "HELLO"
	TypeInput         = "INPUT"
	TypeChat          = "CHAT"
	TypeTyping        = "TYPING"
	TypeSetName       = "SET_NAME"
	TypeUseItem       = "USE_ITEM"
	TypeBuild         = "BUILD"
	TypeDemolish      = "DEMOLISH"
	TypeStoreDeposit  = "STORE_DEPOSIT"
	TypeStoreWithdraw = "STORE_WITHDRAW"
	TypeApprovalVote  = "APPROVAL_VOTE"
	TypeCommunity     = "COMMUNITY"
	TypeChunkRequest  = "CHUNK_REQUEST"
	TypeSetLocale     = "SET_LOCALE"
	TypePing          = "PING"
)

// Server -> client message types. CHAT and TYPING flow both ways.
const (
	TypeWelcome   = "WELCOME"
	TypeChunk     = "CHUNK"
	TypeState     = "STATE"
	TypeResource  = "RESOURCE"
	TypeStructure = "STRUCTURE"
	TypeInventory = "INVENTORY"
	TypeStorage   = "STORAGE"
	TypeDialog    = "DIALOG"
	TypeSystem    = "SYSTEM"
	TypeApproval  = "APPROVAL"
	TypePong      = "PONG"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
