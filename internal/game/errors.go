package game

import "errors"

// Engine errors. Messages are surfaced verbatim to clients in error frames,
// so they stay human-readable.
var (
	ErrGameNotInProgress = errors.New("Game is not in progress")
	ErrNotYourTurn       = errors.New("Not your turn")
	ErrPlayerNotFound    = errors.New("Player not found")
	ErrTileNotInHand     = errors.New("You don't have that domino")
	ErrTileDoesNotMatch  = errors.New("Domino doesn't match that end of the board")
	ErrInvalidSide       = errors.New("Invalid side")
	ErrHaveValidMoves    = errors.New("You have valid moves and cannot pass")

	ErrNotPicking       = errors.New("Game is not in picking phase")
	ErrHandFull         = errors.New("Your hand is already full")
	ErrTileNotAvailable = errors.New("That domino has already been taken")
	ErrNotCPUPlayer     = errors.New("Not a CPU player")
	ErrNoTilesLeft      = errors.New("No dominoes left to pick")

	ErrGameNotFound     = errors.New("Game not found")
	ErrGameStarted      = errors.New("Game has already started")
	ErrGameFull         = errors.New("Game is full")
	ErrNameTaken        = errors.New("That name is already taken")
	ErrNotCreator       = errors.New("Only the game creator can do that")
	ErrNeedMorePlayers  = errors.New("Need at least 2 players to start")
	ErrNoMatch          = errors.New("Game has no match")
	ErrRoundNotFinished = errors.New("Round is not finished")
	ErrMatchOver        = errors.New("Match is already over")
)
