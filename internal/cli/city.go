package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
)

func newCityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "city",
		Short: "City commands",
		Long: `Join the city, place buildings and read encrypted city state.

Reads return ciphertexts. Pass --decrypt to have the gateway decrypt values
you are allowed to read.`,
	}

	cmd.AddCommand(newCityBuildingsCmd())
	cmd.AddCommand(newCityJoinCmd())
	cmd.AddCommand(newCityPlaceCmd())
	cmd.AddCommand(newCityBalanceCmd())
	cmd.AddCommand(newCityBoardCmd())
	cmd.AddCommand(newCityTileCmd())
	cmd.AddCommand(newCityStatusCmd())
	cmd.AddCommand(newCityJoinedCmd())

	return cmd
}

func newCityBuildingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buildings",
		Short: "List the building catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Buildings

			if err := client.Get("/api/v1/city/buildings", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCityJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Join the city with the starting balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Account

			if err := client.Post("/api/v1/city/join", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCityPlaceCmd() *cobra.Command {
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "place <position> <building>",
		Short: "Place a building on a tile",
		Long: `Place a building on a tile (0-8, row-major).

The building may be given by name (house, farm, workshop, castle) or by type
code. It is encrypted by the gateway before being submitted, so the server
never sees which building was chosen. The request succeeds even when the
placement is rejected; use --decrypt to see the outcome.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			buildingType, err := parseBuildingType(args[1])
			if err != nil {
				return err
			}

			building, err := encrypt(fhe.KindU8, uint64(buildingType))
			if err != nil {
				return err
			}

			req := map[string]any{
				"position": position,
				"building": building,
			}
			var result Account
			if err := client.Post("/api/v1/city/place", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if !decrypt {
				out.Print(result)
				return nil
			}
			view, err := statusView(result.PlayerID, result.LastStatus)
			if err != nil {
				return err
			}
			out.Print(view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "Decrypt and show the placement outcome")

	return cmd
}

func newCityBalanceCmd() *cobra.Command {
	var player string
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a player's encrypted balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := resolvePlayerID(player)
			if err != nil {
				return err
			}

			var result Encrypted
			if err := client.Get(accountPath(playerID, "/balance"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if !decrypt {
				out.Print(result)
				return nil
			}
			value, err := decryptValue(result.Ciphertext)
			if err != nil {
				return err
			}
			out.Print(BalanceView{PlayerID: playerID, Balance: value})
			return nil
		},
	}

	addReadFlags(cmd, &player, &decrypt)

	return cmd
}

func newCityStatusCmd() *cobra.Command {
	var player string
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a player's encrypted last placement status",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := resolvePlayerID(player)
			if err != nil {
				return err
			}

			var result Encrypted
			if err := client.Get(accountPath(playerID, "/status"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if !decrypt {
				out.Print(result)
				return nil
			}
			view, err := statusView(playerID, result.Ciphertext)
			if err != nil {
				return err
			}
			out.Print(view)
			return nil
		},
	}

	addReadFlags(cmd, &player, &decrypt)

	return cmd
}

func newCityTileCmd() *cobra.Command {
	var player string
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "tile <position>",
		Short: "Show one encrypted tile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			playerID, err := resolvePlayerID(player)
			if err != nil {
				return err
			}

			var result Encrypted
			if err := client.Get(accountPath(playerID, "/tiles/"+strconv.Itoa(position)), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if !decrypt {
				out.Print(result)
				return nil
			}
			value, err := decryptValue(result.Ciphertext)
			if err != nil {
				return err
			}
			out.Print(TileView{PlayerID: playerID, Position: position, Code: uint8(value), Building: tileName(uint8(value))})
			return nil
		},
	}

	addReadFlags(cmd, &player, &decrypt)

	return cmd
}

func newCityBoardCmd() *cobra.Command {
	var player string
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show a player's encrypted board",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := resolvePlayerID(player)
			if err != nil {
				return err
			}

			var result EncryptedBoard
			if err := client.Get(accountPath(playerID, "/board"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if !decrypt {
				out.Print(result)
				return nil
			}
			view := BoardView{PlayerID: playerID, Tiles: make([]string, len(result.Tiles))}
			for i, tile := range result.Tiles {
				value, err := decryptValue(tile)
				if err != nil {
					return fmt.Errorf("tile %d: %w", i, err)
				}
				view.Tiles[i] = tileName(uint8(value))
			}
			out.Print(view)
			return nil
		},
	}

	addReadFlags(cmd, &player, &decrypt)

	return cmd
}

func newCityJoinedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "joined [player-id]",
		Short: "Check whether a player has joined (defaults to you)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flag string
			if len(args) == 1 {
				flag = args[0]
			}
			playerID, err := resolvePlayerID(flag)
			if err != nil {
				return err
			}

			var result Membership
			if err := client.Get(accountPath(playerID, ""), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func addReadFlags(cmd *cobra.Command, player *string, decrypt *bool) {
	cmd.Flags().StringVar(player, "player", "", "Player ID to read (defaults to you)")
	cmd.Flags().BoolVar(decrypt, "decrypt", false, "Decrypt the value through the gateway")
}

func accountPath(playerID, suffix string) string {
	return "/api/v1/city/accounts/" + url.PathEscape(playerID) + suffix
}

// resolvePlayerID returns the given ID, or the current player's if empty
func resolvePlayerID(playerID string) (string, error) {
	if playerID != "" {
		return playerID, nil
	}
	if cfg.PlayerID != "" {
		return cfg.PlayerID, nil
	}
	var me Player
	if err := client.Get("/api/v1/players/me", &me); err != nil {
		return "", fmt.Errorf("resolve current player: %w", err)
	}
	return me.ID, nil
}

func encrypt(kind fhe.Kind, value uint64) (fhe.Ciphertext, error) {
	req := map[string]any{"kind": kind.String(), "value": value}
	var result Encrypted
	if err := client.Post("/api/v1/gateway/encrypt", req, &result); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("encrypt: %w", err)
	}
	return result.Ciphertext, nil
}

func decryptValue(ct fhe.Ciphertext) (uint64, error) {
	var result Decrypted
	if err := client.Post("/api/v1/gateway/decrypt", map[string]any{"ciphertext": ct}, &result); err != nil {
		return 0, fmt.Errorf("decrypt: %w", err)
	}
	return result.Value, nil
}

func statusView(playerID string, ct fhe.Ciphertext) (StatusView, error) {
	value, err := decryptValue(ct)
	if err != nil {
		return StatusView{}, err
	}
	status := model.Status(value)
	return StatusView{PlayerID: playerID, Code: uint8(status), Status: status.String()}, nil
}

// parsePosition accepts any integer; the server owns range checking
func parsePosition(s string) (int, error) {
	position, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("position must be an integer, got %q", s)
	}
	return position, nil
}

// parseBuildingType accepts a catalog name or a raw type code. Codes outside
// the catalog are allowed and will be rejected by the city.
func parseBuildingType(s string) (uint8, error) {
	for _, b := range model.Catalog {
		if strings.EqualFold(b.Name, s) {
			return uint8(b.Type), nil
		}
	}
	code, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown building %q: use a name from 'city buildings' or a code 0-255", s)
	}
	return uint8(code), nil
}
