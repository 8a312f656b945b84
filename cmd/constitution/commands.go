package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/amount"
	"github.com/bitfsorg/constitution-go/config"
	"github.com/bitfsorg/constitution-go/host"
	"github.com/bitfsorg/constitution-go/keystore"
	"github.com/bitfsorg/constitution-go/payout"
)

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "constitution",
		Short:         "Operate a constitution revenue ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dataDir, "datadir", "", "data directory (default ~/.constitution)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default <datadir>/config)")
	root.PersistentFlags().StringVar(&g.caller, "caller", "", "address of the calling account")

	root.AddCommand(
		newInitCmd(g),
		newDistributeCmd(g),
		newCanSpendCmd(g),
		newStatusCmd(g),
		newPauseCmd(g),
		newResumeCmd(g),
		newSetLimitCmd(g),
		newKeygenCmd(g),
		newPayoutsCmd(g),
		newPayoutStatusCmd(g),
		newConfigCmd(g),
	)
	return root
}

// withRuntime opens the app for one command and closes it afterwards.
func withRuntime(cmd *cobra.Command, g *globalFlags, fn func(rt *host.Runtime) error) (err error) {
	a, err := openApp(cmd.Context(), g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a.rt)
}

// callerID parses --caller. An empty flag yields the empty account, which
// every creator check rejects.
func callerID(g *globalFlags) (account.ID, error) {
	if g.caller == "" {
		return "", nil
	}
	return account.Parse(g.caller)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init <creator-address>",
		Short: "Initialize the ledger with its creator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creator, err := account.Parse(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				if err := rt.Initialize(cmd.Context(), creator); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "initialized, creator %s\n", creator)
				return nil
			})
		},
	}
}

func newDistributeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <amount>",
		Short: "Book revenue and request the creator royalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := amount.Parse(args[0])
			if err != nil {
				return err
			}
			caller, err := callerID(g)
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				req, err := rt.DistributeRevenue(cmd.Context(), caller, amt)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), req)
			})
		},
	}
}

func newCanSpendCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "can-spend <amount>",
		Short: "Report whether an amount is within the autonomous limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := amount.Parse(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				ok, err := rt.CanSpend(cmd.Context(), amt)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the ledger status as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				st, err := rt.Status(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newPauseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause distributions and autonomous spending (creator only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := callerID(g)
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				if err := rt.Pause(cmd.Context(), caller); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "paused")
				return nil
			})
		},
	}
}

func newResumeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume after a pause (creator only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := callerID(g)
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				if err := rt.Resume(cmd.Context(), caller); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "resumed")
				return nil
			})
		},
	}
}

func newSetLimitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit <amount>",
		Short: "Replace the autonomous spending limit (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := amount.Parse(args[0])
			if err != nil {
				return err
			}
			caller, err := callerID(g)
			if err != nil {
				return err
			}
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				if err := rt.SetAutonomousLimit(cmd.Context(), caller, limit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "autonomous limit set to %s\n", limit)
				return nil
			})
		},
	}
}

func newKeygenCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the encrypted treasury key used for on-chain payouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			path := keyPath(cfg)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("treasury key already exists at %s (use --force to replace)", path)
			}
			password := os.Getenv(EnvKeyPassword)
			if password == "" {
				return fmt.Errorf("set %s to encrypt the treasury key", EnvKeyPassword)
			}

			key, err := ec.NewPrivateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := keystore.Save(path, key, password); err != nil {
				return err
			}
			addr, err := account.FromPublicKey(key.PubKey(), cfg.Network == "mainnet")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "treasury address %s\nkey file %s\n", addr, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

func newPayoutsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "payouts",
		Short: "List royalty payouts not yet settled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, g, func(rt *host.Runtime) error {
				pending, err := rt.PendingPayouts(cmd.Context())
				if err != nil {
					return err
				}
				if pending == nil {
					pending = []payout.Request{}
				}
				return printJSON(cmd.OutOrStdout(), pending)
			})
		},
	}
}

func newPayoutStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "payout-status <txid>",
		Short: "Show the confirmation status of a payout transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			client, err := newRPCClient(cfg)
			if err != nil {
				return err
			}
			status, err := client.GetTxStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			path := g.configPath
			if path == "" {
				path = config.ConfigPath(cfg.DataDir)
			}
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
