package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/frahmantamala/oneaccess/internal/keys"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Signing key commands",
	Long:  `Inspect or create the deployment's persisted signing key pair`,
}

var showKeysCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the key id, fingerprint and discovery document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeys(cmd, false)
	},
}

var initKeysCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the key pair if none is persisted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeys(cmd, true)
	},
}

func runKeys(cmd *cobra.Command, create bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	store := keys.NewFileStore(cfg.Security.KeysDir)
	var manager *keys.Manager
	if create {
		manager, err = keys.LoadOrCreate(store, logger.LoggerWrapper())
	} else {
		var pair *keys.KeyPair
		pair, err = store.Load()
		if err == nil {
			manager = keys.NewManager(pair)
		}
	}
	if err != nil {
		return fmt.Errorf("keys in %s: %w", store.Dir(), err)
	}

	doc, err := json.MarshalIndent(manager.JWKS(), "", "  ")
	if err != nil {
		return err
	}
	cmd.Printf("kid:         %s\n", manager.KeyID())
	cmd.Printf("fingerprint: %s\n", manager.Fingerprint())
	if manager.Generated() {
		cmd.Println("generated:   true")
	}
	cmd.Println(string(doc))
	return nil
}

func init() {
	keysCmd.AddCommand(showKeysCmd)
	keysCmd.AddCommand(initKeysCmd)
	rootCmd.AddCommand(keysCmd)
}
