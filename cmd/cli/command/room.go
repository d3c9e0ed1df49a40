package command

import (
	"fmt"

	"chatdesk/cmd/cli/command/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// room.go: list/create/update chat rooms.

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Room commands",
	Long:  `List your rooms, create new ones, rename them and add participants.`,
}

var roomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your rooms with their latest message",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		rooms, err := httpClient.GetRooms()
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}
		if len(rooms) == 0 {
			fmt.Println("No rooms yet. Create one with 'chatdesk room create'.")
			return nil
		}

		for _, r := range rooms {
			color.Green("%s  (%s)", r.Room.Name, r.Room.ID)
			if r.LastMessage != nil {
				color.HiBlack("  last: %s: %s", r.LastMessage.SenderName, r.LastMessage.Content)
			} else {
				color.HiBlack("  no messages yet")
			}
		}
		return nil
	},
}

var roomCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room (replaying an existing name returns that room)",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		var req client.CreateRoomRequest
		req.Name, _ = cmd.Flags().GetString("name")
		req.Color, _ = cmd.Flags().GetString("color")
		req.Participants, _ = cmd.Flags().GetStringSlice("participants")

		room, err := httpClient.CreateRoom(&req)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}

		if room.Created {
			fmt.Printf("✓ Room created: %s (%s)\n", room.Name, room.ID)
		} else {
			fmt.Printf("Room already exists: %s (%s)\n", room.Name, room.ID)
		}
		return nil
	},
}

var roomUpdateCmd = &cobra.Command{
	Use:   "update <room-id>",
	Short: "Rename a room, change its color or add participants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		var req client.UpdateRoomRequest
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			req.Name = &name
		}
		if cmd.Flags().Changed("color") {
			c, _ := cmd.Flags().GetString("color")
			req.Color = &c
		}
		req.AddParticipants, _ = cmd.Flags().GetStringSlice("add")

		room, err := httpClient.UpdateRoom(args[0], &req)
		if err != nil {
			return fmt.Errorf("failed to update room: %w", err)
		}
		fmt.Printf("✓ Room updated: %s (%s)\n", room.Name, room.ID)
		return nil
	},
}

// authedClient builds an HTTP client carrying the stored (or --token) access
// token, failing early when the user is not logged in.
func authedClient() (*client.HTTPClient, error) {
	if token == "" {
		return nil, fmt.Errorf("not logged in, run 'chatdesk auth login' first or pass --token")
	}
	httpClient := client.NewHTTPClient(apiURL)
	httpClient.SetToken(token)
	return httpClient, nil
}

func init() {
	roomCmd.AddCommand(roomListCmd)
	roomCmd.AddCommand(roomCreateCmd)
	roomCmd.AddCommand(roomUpdateCmd)
	rootCmd.AddCommand(roomCmd)

	roomCreateCmd.Flags().StringP("name", "n", "", "Room name (required)")
	roomCreateCmd.Flags().StringP("color", "c", "", "Room accent color")
	roomCreateCmd.Flags().StringSliceP("participants", "m", nil, "Participant user IDs")
	roomCreateCmd.MarkFlagRequired("name")

	roomUpdateCmd.Flags().StringP("name", "n", "", "New room name")
	roomUpdateCmd.Flags().StringP("color", "c", "", "New accent color")
	roomUpdateCmd.Flags().StringSlice("add", nil, "Participant user IDs to add")
}
