/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// Message types exchanged over the websocket. Every frame is a flat JSON
// object carrying one of these in its "type" field.
const (
	TypeFindGame             = "findGame"
	TypeWaitingForPlayer     = "waitingForPlayer"
	TypeGameFound            = "gameFound"
	TypePlayerReady          = "playerReady"
	TypePlayerReadyUpdate    = "playerReadyUpdate"
	TypeGameStart            = "gameStart"
	TypePlayerMove           = "playerMove"
	TypeOpponentMove         = "opponentMove"
	TypeFoodCollected        = "foodCollected"
	TypeGameStateUpdate      = "gameStateUpdate"
	TypeGameOver             = "gameOver"
	TypeGameEnded            = "gameEnded"
	TypeOpponentDisconnected = "opponentDisconnected"
	TypeMatchExpired         = "matchExpired"
)

// Slot labels used in gameEnded.
const (
	Player1 = "player1"
	Player2 = "player2"
)

// SlotLabel returns "player1" for slot 0 and "player2" for slot 1.
func SlotLabel(slot int) string {
	if slot == 0 {
		return Player1
	}
	return Player2
}

// ClientMessage is every frame a client may send.
type ClientMessage struct {
	Type string `json:"type"`           // one of the client→server types
	DX   int    `json:"dx,omitempty"`   // playerMove
	DY   int    `json:"dy,omitempty"`   // playerMove
	Food *Cell  `json:"food,omitempty"` // foodCollected: the cell being claimed
	Body []Cell `json:"body,omitempty"` // playerMove / foodCollected / gameOver: sender's snake
}

// Messages sent to clients

// SimpleMessage carries no payload ("waitingForPlayer", "opponentDisconnected", "matchExpired").
type SimpleMessage struct {
	Type string `json:"type"`
}

// GameFoundMessage is sent to both players when a second player joins a
// room. Each copy names its recipient.
type GameFoundMessage struct {
	Type        string   `json:"type"` // "gameFound"
	RoomID      string   `json:"roomId"`
	Players     []string `json:"players"` // connection ids in slot order
	InitialFood Cell     `json:"initialFood"`
	PlayerID    string   `json:"playerId"` // the recipient's own connection id
}

// ReadyUpdateMessage reports how many players have signalled readiness.
type ReadyUpdateMessage struct {
	Type         string `json:"type"` // "playerReadyUpdate"
	ReadyPlayers int    `json:"readyPlayers"`
}

// GameStartMessage is broadcast once, when both players are ready.
type GameStartMessage struct {
	Type        string   `json:"type"` // "gameStart"
	RoomID      string   `json:"roomId"`
	Players     []string `json:"players"`
	InitialFood Cell     `json:"initialFood"`
	TickRate    int      `json:"tickRate"`
}

// OpponentMoveMessage relays a direction change to the peer.
type OpponentMoveMessage struct {
	Type string `json:"type"` // "opponentMove"
	DX   int    `json:"dx"`
	DY   int    `json:"dy"`
	Body []Cell `json:"body,omitempty"`
}

// GameStateMessage is the authoritative food/score push.
type GameStateMessage struct {
	Type    string `json:"type"` // "gameStateUpdate"
	Food    Cell   `json:"food"`
	Score1  int    `json:"score1"`
	Score2  int    `json:"score2"`
	Length1 int    `json:"length1"`
	Length2 int    `json:"length2"`
}

// FinalScore is part of gameEnded.
type FinalScore struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// GameEndedMessage is the terminal notice for a room.
type GameEndedMessage struct {
	Type       string     `json:"type"`   // "gameEnded"
	Winner     string     `json:"winner"` // "player1" or "player2"
	WinnerID   string     `json:"winnerId"`
	FinalScore FinalScore `json:"finalScore"`
}

// ServerMessage is the decoding side of every server→client frame. Only the
// fields relevant to Type are populated.
type ServerMessage struct {
	Type         string      `json:"type"`
	RoomID       string      `json:"roomId,omitempty"`
	Players      []string    `json:"players,omitempty"`
	PlayerID     string      `json:"playerId,omitempty"`
	InitialFood  *Cell       `json:"initialFood,omitempty"`
	TickRate     int         `json:"tickRate,omitempty"`
	ReadyPlayers int         `json:"readyPlayers,omitempty"`
	DX           int         `json:"dx,omitempty"`
	DY           int         `json:"dy,omitempty"`
	Body         []Cell      `json:"body,omitempty"`
	Food         *Cell       `json:"food,omitempty"`
	Score1       int         `json:"score1,omitempty"`
	Score2       int         `json:"score2,omitempty"`
	Length1      int         `json:"length1,omitempty"`
	Length2      int         `json:"length2,omitempty"`
	Winner       string      `json:"winner,omitempty"`
	WinnerID     string      `json:"winnerId,omitempty"`
	FinalScore   *FinalScore `json:"finalScore,omitempty"`
}
