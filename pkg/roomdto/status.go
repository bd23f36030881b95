package roomdto

// RoomStatus is the occupancy state of a room.
type RoomStatus string

const (
	RoomAvailable RoomStatus = "available"
	RoomOccupied  RoomStatus = "occupied"
)

// GameStatus is the lifecycle state of the game played in a room.
type GameStatus string

const (
	GameWaiting    GameStatus = "waiting"
	GameInProgress GameStatus = "in_progress"
	GamePaused     GameStatus = "paused"
	GameDraw       GameStatus = "draw"
	GameCancelled  GameStatus = "cancelled"
	GameWhiteWon   GameStatus = "white_won"
	GameBlackWon   GameStatus = "black_won"
)

// Terminal reports whether the game can no longer continue.
func (s GameStatus) Terminal() bool {
	switch s {
	case GameDraw, GameCancelled, GameWhiteWon, GameBlackWon:
		return true
	}
	return false
}
