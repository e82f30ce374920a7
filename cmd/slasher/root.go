package main

import (
	"fmt"
	"os"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/textileio/slasher/buildinfo"
	"github.com/textileio/slasher/slash"
)

var (
	config = viper.New()

	rootCmd = &cobra.Command{
		Use:               "slasher",
		Short:             "Moves the excess balance of accounts above a threshold to the sudo account",
		Long:              `Scans the balances index for accounts whose free balance is above a threshold and force transfers their excess to the sudo account, leaving them with the target balance or their whitelisted max balance.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(config.GetString("envfile")); err != nil {
				return err
			}
			if err := setupLogging(config.GetString("loglevel"), config.GetBool("debug")); err != nil {
				return fmt.Errorf("configuring logging: %s", err)
			}
			log.Debugf("starting slasher:\n%s", buildinfo.Summary())
			return nil
		},
	}

	loggers = []string{
		"slasher",
		"slash",
		"whitelist",
		"index-balance",
		"index-gqlidx",
		"plan",
		"ledger-substrate",
		"ledger-transferstore",
	}

	// Unprefixed environment variable names, still honored
	// after the SLASHER_ prefixed ones.
	legacyEnvs = map[string]string{
		"decimals":      "CHAIN_DECIMALS",
		"threshold":     "BALANCE_THRESHOLD",
		"target":        "BALANCE_TARGET",
		"nodeurl":       "NODE_URL",
		"statsapiurl":   "STATS_API_URL",
		"mnemonic":      "ROOT_MNEMONIC",
		"forcedaddress": "FORCED_ADDRESS_TO_SLASH",
		"loglevel":      "LOG_LEVEL",
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	registerFlags(flags)
	if err := wireConfig(config, flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd, planCmd, scanCmd, versionCmd)
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("envfile", ".env", "Path of a dotenv file loaded before reading the configuration. Ignored if missing.")
	flags.Bool("debug", false, "Enable debug log level in all loggers.")
	flags.String("loglevel", "info", "Log level of all loggers (debug, info, warn, error).")
	flags.Uint32("decimals", 0, "Number of decimals of the chain token.")
	flags.String("threshold", "", "Accounts with a free balance strictly above this amount are slashed.")
	flags.String("target", "", "Balance slashed accounts are left with.")
	flags.String("nodeurl", "", "Websocket endpoint of the chain node.")
	flags.String("statsapiurl", "", "GraphQL endpoint of the balances index.")
	flags.String("mnemonic", "", "Mnemonic or secret URI of the sudo account.")
	flags.Bool("dryrun", false, "Simulate the transfers without submitting them.")
	flags.String("forcedaddress", "", "Only slash this address, if it's in the plan.")
	flags.String("whitelist", slash.DefaultWhitelistPath, "Path of the whitelist file.")
	flags.Uint16("ss58prefix", slash.DefaultSS58Prefix, "SS58 address prefix of the chain.")
	flags.Int("pagesize", slash.DefaultPageSize, "Accounts requested per index page.")
	flags.Int("retries", 0, "Retries per failed index page fetch.")
	flags.Duration("submitinterval", 0, "Minimum time between transfer submissions.")
}

// wireConfig binds flags and environment variables to v. Precedence is
// explicit flag, SLASHER_ env, legacy env, flag default.
func wireConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("SLASHER")
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %s", err)
	}
	for key, env := range legacyEnvs {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding env %s: %s", env, err)
		}
	}
	return nil
}

// loadEnvFile loads path into the process environment without overriding
// variables already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %s", path, err)
	}
	return nil
}

func setupLogging(level string, debug bool) error {
	logging.SetAllLoggers(logging.LevelError)
	level = normalizeLevel(level)
	if debug {
		level = "debug"
	}
	for _, l := range loggers {
		if err := logging.SetLogLevel(l, level); err != nil {
			return fmt.Errorf("setting up logger %s: %s", l, err)
		}
	}
	return nil
}

// normalizeLevel maps legacy LOG_LEVEL names to go-log ones.
func normalizeLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "":
		return "info"
	case "trace":
		return "debug"
	case "warning":
		return "warn"
	case "silent":
		return "fatal"
	default:
		return l
	}
}
