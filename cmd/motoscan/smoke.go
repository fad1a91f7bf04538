package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/backend"
)

const smokeTagID = 9999

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Check the backend: login, create a test tag, list tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := backend.NewClient(backendConfig(cfg))

		fmt.Printf("Backend: %s\n", client.BaseURL())

		tok, err := client.Login(ctx)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Println("Login: ok")

		tag := backend.Tag{
			Code:      aruco.Code(smokeTagID),
			Status:    cfg.Backend.TagStatus,
			VehicleID: cfg.Backend.VehicleID,
		}
		if err := client.CreateTag(ctx, tok, tag); err != nil {
			return fmt.Errorf("create %s: %w", tag.Code, err)
		}
		fmt.Printf("Create %s: ok\n", tag.Code)

		tags, err := client.ListTags(ctx, tok)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		fmt.Printf("List: %d tags\n", len(tags))
		if len(tags) > 0 {
			first, _ := json.Marshal(tags[0])
			fmt.Printf("First: %s\n", first)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(smokeCmd)
}
