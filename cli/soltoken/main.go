package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"soltoken"
	"soltoken/builder"
	"soltoken/ledger"
	"soltoken/rpc"
)

var log = soltoken.Log()

var (
	configPath string
	passphrase string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "soltoken",
		Short:         "Token ledger client: derive addresses, sign and broadcast builder transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the config file")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "keystore passphrase (encrypted keystores only)")

	root.AddCommand(
		createUserCmd(),
		mintCmd(),
		transferCmd(),
		depositCmd(),
		balanceCmd(),
		supplyCmd(),
		treasuryBalanceCmd(),
		confirmCmd(),
		keygenCmd(),
		demoCmd(),
	)

	return root
}

func newLedger() (l *ledger.Ledger, cfg *soltoken.Config, err error) {
	cfg, err = soltoken.LoadConfig(configPath)
	if err != nil {
		return
	}

	keypair, err := soltoken.LoadKeypairFile(cfg.KeystorePath, passphrase)
	if err != nil {
		return
	}

	var store soltoken.Database = soltoken.NewInMemoryDatabase()
	if cfg.DatabasePath != "" {
		if store, err = soltoken.NewSqlLiteDatabase(cfg.DatabasePath); err != nil {
			return
		}
	}

	l, err = ledger.New(ledger.Options{
		Config:  cfg,
		Keypair: keypair,
		Builder: builder.NewClient(cfg.BuilderURL, cfg.Timeout),
		Node:    rpc.NewClient(cfg.RpcURL, cfg.Timeout),
		Store:   store,
	})

	return
}

func createUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-user <id>",
		Short: "Register a user account on the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			id, err := soltoken.NewUserID(args[0])
			if err != nil {
				return
			}

			sig, err := l.CreateUser(id)
			if err != nil {
				return
			}

			fmt.Println(sig)
			return
		},
	}
}

func mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <amount>",
		Short: "Mint tokens to the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			amount, err := parseAmount(args[0])
			if err != nil {
				return
			}

			sig, err := l.MintToTreasury(amount)
			if err != nil {
				return
			}

			fmt.Println(sig)
			return
		},
	}
}

func transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <user-id> <amount>",
		Short: "Transfer tokens from the treasury to a user's token account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			id, err := soltoken.NewUserID(args[0])
			if err != nil {
				return
			}

			amount, err := parseAmount(args[1])
			if err != nil {
				return
			}

			treasury, _, err := l.TreasuryAddress()
			if err != nil {
				return
			}

			userToken, err := l.EnsureTokenAccount()
			if err != nil {
				return
			}

			sig, err := l.TransferFromTreasury(id, amount, treasury, userToken)
			if err != nil {
				return
			}

			fmt.Println(sig)
			return
		},
	}
}

func depositCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <user-id> <amount>",
		Short: "Credit tokens to a user's free balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			id, err := soltoken.NewUserID(args[0])
			if err != nil {
				return
			}

			amount, err := parseAmount(args[1])
			if err != nil {
				return
			}

			treasury, _, err := l.TreasuryAddress()
			if err != nil {
				return
			}

			userToken, err := l.EnsureTokenAccount()
			if err != nil {
				return
			}

			sig, err := l.DepositToUser(id, amount, treasury, userToken)
			if err != nil {
				return
			}

			fmt.Println(sig)
			return
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Show a user's free and frozen balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			id, err := soltoken.NewUserID(args[0])
			if err != nil {
				return
			}

			balance, err := l.BalanceOfUser(id)
			if err != nil {
				return
			}

			fmt.Printf("free=%d frozen=%d\n", balance.Free, balance.Frozen)
			return
		},
	}
}

func supplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show the total token supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			supply, err := l.TotalSupply()
			if err != nil {
				return
			}

			fmt.Printf("%d (decimals=%d)\n", supply.Amount, supply.Decimals)
			return
		},
	}
}

func treasuryBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "treasury-balance",
		Short: "Show the treasury balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			balance, err := l.BalanceOfTreasury()
			if err != nil {
				return
			}

			fmt.Printf("%d (decimals=%d)\n", balance.Amount, balance.Decimals)
			return
		},
	}
}

func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <signature>",
		Short: "Check whether a broadcast transaction was included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l, _, err := newLedger()
			if err != nil {
				return
			}

			confirmed, err := l.Confirmed(args[0])
			if err != nil {
				return
			}

			fmt.Println(confirmed)
			return
		},
	}
}

func keygenCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a keypair and write an encrypted keystore file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if passphrase == "" {
				return errors.New("keygen requires --passphrase")
			}

			keypair, err := soltoken.NewKeypair()
			if err != nil {
				return
			}

			// Round-trip through load to prove the file is usable before
			// printing the address.
			secret, err := keypair.SecretBytes()
			if err != nil {
				return
			}
			if err = soltoken.WriteEncryptedKeyFile(outPath, secret, passphrase); err != nil {
				return
			}
			if _, err = soltoken.LoadKeypairFile(outPath, passphrase); err != nil {
				return
			}

			fmt.Println(keypair.PublicKey())
			return
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "keystore.json", "output path for the encrypted key file")

	return cmd
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the full create/mint/deposit/query flow with a fresh user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			const (
				mintAmount    = 1_000_000
				depositAmount = 100_000
			)

			l, _, err := newLedger()
			if err != nil {
				return
			}

			id, err := soltoken.NewUserID(strings.ReplaceAll(uuid.New().String(), "-", ""))
			if err != nil {
				return
			}

			log.Info().Msgf("creating user %s", id)
			sig, err := l.CreateUser(id)
			if err != nil {
				return
			}
			log.Info().Msgf("create-user sig: %s", sig)

			log.Info().Msgf("minting %d to treasury", mintAmount)
			if sig, err = l.MintToTreasury(mintAmount); err != nil {
				return
			}
			log.Info().Msgf("mint sig: %s", sig)

			treasury, _, err := l.TreasuryAddress()
			if err != nil {
				return
			}

			userToken, err := l.EnsureTokenAccount()
			if err != nil {
				return
			}

			log.Info().Msgf("depositing %d to user", depositAmount)
			if sig, err = l.DepositToUser(id, depositAmount, treasury, userToken); err != nil {
				return
			}
			log.Info().Msgf("deposit sig: %s", sig)

			balance, err := l.BalanceOfUser(id)
			if err != nil {
				return
			}
			log.Info().Msgf("user balance: free=%d frozen=%d", balance.Free, balance.Frozen)

			supply, err := l.TotalSupply()
			if err != nil {
				return
			}
			log.Info().Msgf("total supply: %d (decimals=%d)", supply.Amount, supply.Decimals)

			treasuryBalance, err := l.BalanceOfTreasury()
			if err != nil {
				return
			}
			log.Info().Msgf("treasury balance: %d (decimals=%d)", treasuryBalance.Amount, treasuryBalance.Decimals)

			return
		},
	}
}

func parseAmount(s string) (amount uint64, err error) {
	amount, err = strconv.ParseUint(s, 10, 64)
	err = errors.Wrapf(err, "invalid amount '%s'", s)
	return
}
