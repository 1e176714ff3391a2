package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Wiredcraft/ansible-addons/pkg/callback"
	"github.com/Wiredcraft/ansible-addons/pkg/inventory"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inventoryCmd = newInventoryCmd()

const (
	flagList     = "list"
	flagHost     = "host"
	flagAPIURL   = "api-url"
	flagUsername = "username"
	flagPassword = "password"
)

// envPrefix is prepended to the upper-cased config keys,
// e.g. ANSIBLE_DEVOPS_URL.
const envPrefix = "ANSIBLE_DEVOPS"

func newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory --list | --host <hostname>",
		Short: "fetch hosts and groups from the devops API",
		Args:  cobra.NoArgs,
		RunE:  runInventory,
		// usage and failures are reported by runInventory
		SilenceErrors: true,
	}
	cmd.Flags().Bool(flagList, false, "list all groups and hosts")
	cmd.Flags().String(flagHost, "", "print the variables of a host")
	cmd.Flags().String(flagAPIURL, inventory.DefaultURL, "address of the devops API")
	cmd.Flags().String(flagUsername, inventory.DefaultUsername, "username for the devops API")
	cmd.Flags().String(flagPassword, inventory.DefaultPassword, "password for the devops API")

	cmd.MarkFlagsMutuallyExclusive(flagList, flagHost)
	return cmd
}

// inventoryConfig merges flags, environment and defaults.
func inventoryConfig(cmd *cobra.Command) (inventory.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", inventory.DefaultURL)
	v.SetDefault("username", inventory.DefaultUsername)
	v.SetDefault("password", inventory.DefaultPassword)
	for key, flag := range map[string]string{"url": flagAPIURL, "username": flagUsername, "password": flagPassword} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return inventory.Config{}, err
		}
	}

	var cfg inventory.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return inventory.Config{}, fmt.Errorf("reading inventory configuration: %w", err)
	}
	return cfg, nil
}

func runInventory(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	list, _ := cmd.Flags().GetBool(flagList)
	host, _ := cmd.Flags().GetString(flagHost)
	space, ok := os.LookupEnv(callback.SpaceEnv)
	if !ok || (!list && host == "") {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Need to define Environment Variable %s\nusage: --list  ..OR.. --host <hostname>\n", callback.SpaceEnv)
		return errFailed
	}

	data, err := fetchInventory(cmd, list, host, space)
	if err != nil {
		log.Error(err, "failed to fetch inventory")
		return errFailed
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func fetchInventory(cmd *cobra.Command, list bool, host, space string) ([]byte, error) {
	log := logr.FromContextOrDiscard(cmd.Context())

	cfg, err := inventoryConfig(cmd)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("using devops API", "url", cfg.URL, "username", cfg.Username, "space", space)

	client, err := inventory.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Login(cmd.Context()); err != nil {
		return nil, err
	}
	if list {
		return client.List(cmd.Context(), space)
	}
	return client.Host(cmd.Context(), host, space)
}
