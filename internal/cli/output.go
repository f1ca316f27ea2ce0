package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Buildings:
		o.printBuildings(v)
	case Account:
		o.printAccount(v)
	case Membership:
		o.printMembership(v)
	case Encrypted:
		o.printEncrypted(v)
	case EncryptedBoard:
		o.printEncryptedBoard(v)
	case BalanceView:
		fmt.Printf("Balance (%s): %d gold\n", v.PlayerID, v.Balance)
	case StatusView:
		fmt.Printf("Last placement (%s): %s\n", v.PlayerID, v.Status)
	case TileView:
		fmt.Printf("Tile %d (%s): %s\n", v.Position, v.PlayerID, v.Building)
	case BoardView:
		o.printBoardView(v)
	case Decrypted:
		fmt.Printf("%d (%s)\n", v.Value, v.Kind)
	case EventList:
		for _, e := range v.Events {
			printEventLine(e)
		}
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	// Joined is filled in by the CLI from the city membership read
	Joined *bool `json:"joined,omitempty"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// Building is a catalog entry
type Building struct {
	Type uint8  `json:"type"`
	Name string `json:"name"`
	Cost uint64 `json:"cost"`
}

// Buildings is the catalog response
type Buildings struct {
	Buildings []Building `json:"buildings"`
	GridSize  int        `json:"grid_size"`
}

// Account is the encrypted account returned by join and place
type Account struct {
	PlayerID   string           `json:"player_id"`
	Balance    fhe.Ciphertext   `json:"balance"`
	Board      []fhe.Ciphertext `json:"board"`
	LastStatus fhe.Ciphertext   `json:"last_status"`
}

// Membership reports whether a player has joined
type Membership struct {
	PlayerID string `json:"player_id"`
	Joined   bool   `json:"joined"`
}

// Encrypted is a single ciphertext read
type Encrypted struct {
	PlayerID   string         `json:"player_id"`
	Position   *int           `json:"position,omitempty"`
	Ciphertext fhe.Ciphertext `json:"ciphertext"`
}

// EncryptedBoard is a full grid read
type EncryptedBoard struct {
	PlayerID string           `json:"player_id"`
	Tiles    []fhe.Ciphertext `json:"tiles"`
}

// Decrypted is a gateway decryption result
type Decrypted struct {
	Kind  string `json:"kind"`
	Value uint64 `json:"value"`
}

// BalanceView is a decrypted balance
type BalanceView struct {
	PlayerID string `json:"player_id"`
	Balance  uint64 `json:"balance"`
}

// StatusView is a decrypted placement status
type StatusView struct {
	PlayerID string `json:"player_id"`
	Code     uint8  `json:"code"`
	Status   string `json:"status"`
}

// TileView is a decrypted tile
type TileView struct {
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
	Code     uint8  `json:"code"`
	Building string `json:"building"`
}

// BoardView is a decrypted grid
type BoardView struct {
	PlayerID string   `json:"player_id"`
	Tiles    []string `json:"tiles"`
}

// EventList is the recent events response
type EventList struct {
	Events []model.Event `json:"events"`
}

// HealthResult response type
type HealthResult struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	LatencyMS int64  `json:"latency_ms"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
	if p.Joined != nil {
		city := "not joined"
		if *p.Joined {
			city = "joined"
		}
		fmt.Printf("City: %s\n", city)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printBuildings(b Buildings) {
	fmt.Printf("Grid: %d tiles\n", b.GridSize)
	for _, building := range b.Buildings {
		fmt.Printf("  %d  %-10s %5d gold\n", building.Type, building.Name, building.Cost)
	}
}

func (o *Output) printAccount(a Account) {
	fmt.Printf("Account: %s\n", a.PlayerID)
	fmt.Printf("Balance: %s\n", summarize(a.Balance))
	fmt.Printf("Status:  %s\n", summarize(a.LastStatus))
	fmt.Printf("Board:   %d encrypted tiles\n", len(a.Board))
}

func (o *Output) printMembership(m Membership) {
	if m.Joined {
		fmt.Printf("%s has joined the city\n", m.PlayerID)
	} else {
		fmt.Printf("%s has not joined the city\n", m.PlayerID)
	}
}

func (o *Output) printEncrypted(e Encrypted) {
	if e.Position != nil {
		fmt.Printf("Tile %d (%s): %s\n", *e.Position, e.PlayerID, summarize(e.Ciphertext))
		return
	}
	fmt.Printf("%s: %s\n", e.PlayerID, summarize(e.Ciphertext))
}

func (o *Output) printEncryptedBoard(b EncryptedBoard) {
	fmt.Printf("Board (%s):\n", b.PlayerID)
	for i, tile := range b.Tiles {
		fmt.Printf("  %d: %s\n", i, summarize(tile))
	}
}

func (o *Output) printBoardView(b BoardView) {
	fmt.Printf("Board (%s):\n", b.PlayerID)
	width := 0
	for _, name := range b.Tiles {
		width = max(width, len(name))
	}
	for row := 0; row*3 < len(b.Tiles); row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3 && row*3+col < len(b.Tiles); col++ {
			cells = append(cells, fmt.Sprintf("%-*s", width, b.Tiles[row*3+col]))
		}
		fmt.Printf("  | %s |\n", strings.Join(cells, " | "))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Storage: %s\n", h.Storage)
	fmt.Printf("Latency: %dms\n", h.LatencyMS)
}

func printEventLine(e model.Event) {
	line := fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.PlayerID)
	if e.Position != nil {
		line += fmt.Sprintf(" at %d", *e.Position)
	}
	fmt.Println(line)
}

// summarize renders a ciphertext without its payload
func summarize(ct fhe.Ciphertext) string {
	prefix := ct.Payload
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("<%s %s... readers=%s>", ct.Kind, hex.EncodeToString(prefix), strings.Join(ct.Readers, ","))
}

// tileName renders a decrypted tile code
func tileName(code uint8) string {
	if code == model.EmptyTile {
		return "empty"
	}
	if b, ok := model.LookupBuilding(model.BuildingType(code)); ok {
		return b.Name
	}
	return fmt.Sprintf("unknown(%d)", code)
}
