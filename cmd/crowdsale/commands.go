package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/crowdsale-vesting-go/authority"
	"github.com/bitfsorg/crowdsale-vesting-go/config"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

// ownerKeyEnv names the environment variable holding the owner's hex key.
const ownerKeyEnv = "CROWDSALE_OWNER_KEY"

func addAtFlag(cmd *cobra.Command, opts *options) {
	cmd.Flags().Int64Var(&opts.at, "at", 0, "evaluate at this unix time instead of now")
}

func newInitCmd(opts *options) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "write a config file into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if opts.dataDir != "" {
				cfg.DataDir = opts.dataDir
			}
			cfg.SchedulePath = opts.schedule
			cfg.Owner = owner
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			path := opts.configPath
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
	cmd.Flags().StringVar(&owner, "owner", "", "checksummed owner address for lock/unlock")
	return cmd
}

func newUnlockedCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlocked <wallet> <round>",
		Short: "print the amount unlocked for a wallet in a round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			round, err := parseRound(args[1])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			amount, err := a.ledger.UnlockedAmount(wallet, round)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, amount.String())
			return nil
		},
	}
	addAtFlag(cmd, opts)
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <wallet> [round]",
		Short: "print a wallet's vesting status per round",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var rounds []vesting.RoundIndex
			if len(args) == 2 {
				round, err := parseRound(args[1])
				if err != nil {
					return err
				}
				rounds = append(rounds, round)
			} else {
				for _, r := range a.schedule.Rounds() {
					rounds = append(rounds, r.Index)
				}
			}

			for _, idx := range rounds {
				st, err := a.ledger.Status(wallet, idx)
				if err != nil {
					return err
				}
				if len(args) == 1 && st.Phase == vesting.NotParticipating {
					continue
				}
				r, _ := a.schedule.Round(idx)
				fmt.Fprintf(a.out, "%s\t%s\ttotal=%s unlocked=%s claimed=%s claimable=%s\n",
					r, st.Phase, st.Total, st.Unlocked, st.Claimed, st.Claimable)
			}
			return nil
		},
	}
	addAtFlag(cmd, opts)
	return cmd
}

func newBalanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <wallet>",
		Short: "print allocation not yet claimed, across all rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			bal, err := a.ledger.BalanceOf(wallet)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, bal.String())
			return nil
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	var points int
	cmd := &cobra.Command{
		Use:   "schedule [round]",
		Short: "print rounds and their unlock checkpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rounds := a.schedule.Rounds()
			if len(args) == 1 {
				idx, err := parseRound(args[0])
				if err != nil {
					return err
				}
				r, err := a.schedule.Round(idx)
				if err != nil {
					return err
				}
				rounds = []vesting.Round{r}
			}

			calc, err := vesting.NewCalculator(a.schedule)
			if err != nil {
				return err
			}
			for _, r := range rounds {
				fmt.Fprintf(a.out, "%s\tstart=%s cliff=%s end=%s wallets=%d allocated=%s\n",
					r, r.Start.UTC().Format(time.RFC3339), r.Cliff, r.End().UTC().Format(time.RFC3339),
					len(a.schedule.Wallets(r.Index)), a.schedule.TotalAllocated(r.Index))
				checkpoints, err := calc.Checkpoints(r.Index, points)
				if err != nil {
					return err
				}
				for _, at := range checkpoints {
					bps, err := calc.VestedFraction(r.Index, at)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "  %s\t%d.%02d%%\n", at.UTC().Format(time.RFC3339), bps/100, bps%100)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", 4, fmt.Sprintf("number of checkpoints to print per round (max %d)", vesting.MaxCheckpoints))
	return cmd
}

func newClaimCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <wallet> <round>",
		Short: "claim everything unlocked for a wallet in a round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			round, err := parseRound(args[1])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			amount, err := a.ledger.Claim(cmd.Context(), wallet, round)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, amount.String())
			return nil
		},
	}
}

func newClaimAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "claim-all <wallet>",
		Short: "claim every round with a claimable amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			paid, err := a.ledger.ClaimAll(cmd.Context(), wallet)
			for _, r := range a.schedule.Rounds() {
				if amount, ok := paid[r.Index]; ok {
					fmt.Fprintf(a.out, "%s\t%s\n", r, amount)
				}
			}
			return err
		},
	}
}

func newReceiptsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "receipts <wallet>",
		Short: "list a wallet's claim receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			receipts, err := a.ledger.Receipts(wallet)
			if err != nil {
				return err
			}
			for _, r := range receipts {
				fmt.Fprintf(a.out, "%d\t%d\t%s\t%s\n", r.ID, r.Round, r.Amount, r.At.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newAdminCmd(opts *options, name string) *cobra.Command {
	var keyHex string
	var nonce uint64
	cmd := &cobra.Command{
		Use:   name + " <wallet>",
		Short: name + " a wallet's claims (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := authority.ParseAction(name)
			if err != nil {
				return err
			}
			wallet, err := parseWallet(args[0])
			if err != nil {
				return err
			}
			if keyHex == "" {
				keyHex = os.Getenv(ownerKeyEnv)
			}
			keyBytes, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
			if err != nil || len(keyBytes) != 32 {
				return fmt.Errorf("owner key must be 32 hex-encoded bytes (--key or %s)", ownerKeyEnv)
			}
			priv, _ := ec.PrivateKeyFromBytes(keyBytes)

			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ownerAddr, ok, err := a.cfg.OwnerAddress()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no owner configured; set owner in %s", config.ConfigPath(a.cfg.DataDir))
			}
			owner, err := authority.NewOwner(ownerAddr, a.store)
			if err != nil {
				return err
			}
			guard, err := authority.NewGuard(owner, a.ledger, a.log.Named("authority"))
			if err != nil {
				return err
			}

			if nonce == 0 {
				if nonce, err = owner.NextNonce(); err != nil {
					return err
				}
			}
			sc, err := authority.Sign(priv, authority.Command{Action: action, Wallet: wallet, Nonce: nonce})
			if err != nil {
				return err
			}
			if err := guard.Execute(sc); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s (nonce %d)\n", action, wallet, nonce)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "owner private key in hex (default $"+ownerKeyEnv+")")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "command nonce (default: next unused)")
	return cmd
}

func newPendingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "list transfers waiting in the outbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.store.Outbox().Pending()
			if err != nil {
				return err
			}
			for _, r := range pending {
				fmt.Fprintf(a.out, "%d\t%s\t%d\t%s\n", r.ID, r.Wallet, r.Round, r.Amount)
			}
			return nil
		},
	}
}

func newAckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>...",
		Short: "mark outbox transfers as delivered",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			outbox := a.store.Outbox()
			for _, arg := range args {
				id, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("receipt id %q: %w", arg, err)
				}
				if err := outbox.Ack(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
