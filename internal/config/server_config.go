package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github/chapool/relayer/internal/util"
)

const (
	ChainIDEthereum int64 = 1
	ChainIDArbitrum int64 = 42161

	NonceLockLocal = "local"
	NonceLockRedis = "redis"
)

type ManagementServer struct {
	ListenAddress string
	// ProbeTimeout bounds every readiness probe of the configured chains.
	ProbeTimeout time.Duration
}

type LoggerServer struct {
	Level              zerolog.Level
	PrettyPrintConsole bool
}

// Chain is the raw configuration of one EVM chain. Addresses are kept as strings and
// validated when the chain registry is built.
type Chain struct {
	ChainID      int64
	Name         string
	RPCURLs      []string
	POA          bool
	TokenAddress string
}

type Wallet struct {
	// ChainID is the home chain used when a caller passes chain id 0.
	ChainID int64

	PrivateKey         string `json:"-"`
	Mnemonic           string `json:"-"`
	MnemonicPassphrase string `json:"-"`
	DerivationPath     string
	KeystoreFile       string
	KeystorePassword   string `json:"-"`
}

type Contracts struct {
	FactoryAddress  string
	OperatorAddress string
}

type Relayer struct {
	ReceiptTimeout         time.Duration
	ReceiptPollInterval    time.Duration
	SettlementTimeout      time.Duration
	SettlementPollInterval time.Duration
	RPCRateLimit           float64
	RPCRateBurst           int
}

type NonceLock struct {
	Backend       string
	RedisAddr     string
	RedisPassword string `json:"-"`
	RedisDB       int
	TTL           time.Duration
}

type Server struct {
	Management ManagementServer
	Logger     LoggerServer
	Chains     []Chain
	Wallet     Wallet
	Contracts  Contracts
	Relayer    Relayer
	NonceLock  NonceLock
}

var defaultChains = map[int64]struct {
	name      string
	alchemy   string
	publicURL string
	alchemyFn func(key string) string
	token     string
}{
	ChainIDEthereum: {
		name:      "ethereum",
		alchemy:   "ALCHEMY_API_KEY_ETHEREUM",
		publicURL: "https://eth.llamarpc.com",
		alchemyFn: func(key string) string { return "https://eth-mainnet.g.alchemy.com/v2/" + key },
		token:     "0x6c3ea9036406852006290770BEdFcAbA0e23A0e8",
	},
	ChainIDArbitrum: {
		name:      "arbitrum",
		alchemy:   "ALCHEMY_API_KEY_ARBITRUM",
		publicURL: "https://arb1.arbitrum.io/rpc",
		alchemyFn: func(key string) string { return "https://arb-mainnet.g.alchemy.com/v2/" + key },
		token:     "0x46850aD61C2B7d64d08c9C754F45254596696984",
	},
}

// LoadEnvFile loads a dotenv file into the process environment without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to stat env file %q", path)
	}

	if err := gotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load env file %q", path)
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_MANAGEMENT_LISTEN_ADDRESS", ":5002")
	v.SetDefault("SERVER_MANAGEMENT_PROBE_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_LOGGER_LEVEL", zerolog.InfoLevel.String())
	v.SetDefault("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false)

	v.SetDefault("CHAIN_IDS", "1,42161")

	v.SetDefault("WALLET_CHAIN_ID", ChainIDEthereum)
	v.SetDefault("WALLET_DERIVATION_PATH", "m/44'/60'/0'/0/0")

	v.SetDefault("FACTORY_ADDRESS", "0x6D8913325322690F40e45b38BC039c9F76672fc0")
	v.SetDefault("OPERATOR_ADDRESS", "0x3d94E55a2C3Cf83226b3D056eBeBb43b4731417f")

	v.SetDefault("RECEIPT_TIMEOUT", 120*time.Second)
	v.SetDefault("RECEIPT_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("SETTLEMENT_TIMEOUT", 60*time.Second)
	v.SetDefault("SETTLEMENT_POLL_INTERVAL", time.Duration(0))
	v.SetDefault("RPC_RATE_LIMIT", 0)
	v.SetDefault("RPC_RATE_BURST", 1)

	v.SetDefault("NONCE_LOCK_BACKEND", NonceLockLocal)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NONCE_LOCK_TTL", 30*time.Second)

	return v
}

func chainsFromViper(v *viper.Viper) []Chain {
	ids := util.SplitList(v.GetString("CHAIN_IDS"))
	chains := make([]Chain, 0, len(ids))

	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			log.Panic().Str("value", raw).Msg("Invalid chain id in CHAIN_IDS")
		}

		prefix := fmt.Sprintf("CHAIN_%d_", id)
		c := Chain{
			ChainID: id,
			Name:    v.GetString(prefix + "NAME"),
			// PoA compatible decoding is on unless CHAIN_<ID>_POA disables it.
			POA:          true,
			TokenAddress: v.GetString(prefix + "TOKEN_ADDRESS"),
			RPCURLs:      util.SplitList(v.GetString(prefix + "RPC_URLS")),
		}
		if v.IsSet(prefix + "POA") {
			c.POA = v.GetBool(prefix + "POA")
		}

		if def, ok := defaultChains[id]; ok {
			if c.Name == "" {
				c.Name = def.name
			}
			if c.TokenAddress == "" {
				c.TokenAddress = def.token
			}
			if len(c.RPCURLs) == 0 {
				if key := v.GetString(def.alchemy); key != "" {
					c.RPCURLs = []string{def.alchemyFn(key)}
				} else {
					c.RPCURLs = []string{def.publicURL}
				}
			}
		}
		if c.Name == "" {
			c.Name = strconv.FormatInt(id, 10)
		}

		chains = append(chains, c)
	}

	return chains
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
func DefaultServiceConfigFromEnv() Server {
	// An `.env` file in the working directory (or the one ENV_FILE points at) is loaded first.
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		log.Panic().Err(err).Msg("Failed to load env file")
	}

	return ServiceConfigFromViper(newViper())
}

// ServiceConfigFromViper builds the server config from an already populated viper instance.
func ServiceConfigFromViper(v *viper.Viper) Server {
	level, err := zerolog.ParseLevel(v.GetString("SERVER_LOGGER_LEVEL"))
	if err != nil {
		log.Panic().Err(err).Msg("Invalid SERVER_LOGGER_LEVEL")
	}

	return Server{
		Management: ManagementServer{
			ListenAddress: v.GetString("SERVER_MANAGEMENT_LISTEN_ADDRESS"),
			ProbeTimeout:  v.GetDuration("SERVER_MANAGEMENT_PROBE_TIMEOUT"),
		},
		Logger: LoggerServer{
			Level:              level,
			PrettyPrintConsole: v.GetBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE"),
		},
		Chains: chainsFromViper(v),
		Wallet: Wallet{
			ChainID:            v.GetInt64("WALLET_CHAIN_ID"),
			PrivateKey:         v.GetString("PRIVATE_KEY"),
			Mnemonic:           v.GetString("WALLET_MNEMONIC"),
			MnemonicPassphrase: v.GetString("WALLET_MNEMONIC_PASSPHRASE"),
			DerivationPath:     v.GetString("WALLET_DERIVATION_PATH"),
			KeystoreFile:       v.GetString("WALLET_KEYSTORE_FILE"),
			KeystorePassword:   v.GetString("WALLET_KEYSTORE_PASSWORD"),
		},
		Contracts: Contracts{
			FactoryAddress:  v.GetString("FACTORY_ADDRESS"),
			OperatorAddress: v.GetString("OPERATOR_ADDRESS"),
		},
		Relayer: Relayer{
			ReceiptTimeout:         v.GetDuration("RECEIPT_TIMEOUT"),
			ReceiptPollInterval:    v.GetDuration("RECEIPT_POLL_INTERVAL"),
			SettlementTimeout:      v.GetDuration("SETTLEMENT_TIMEOUT"),
			SettlementPollInterval: v.GetDuration("SETTLEMENT_POLL_INTERVAL"),
			RPCRateLimit:           v.GetFloat64("RPC_RATE_LIMIT"),
			RPCRateBurst:           v.GetInt("RPC_RATE_BURST"),
		},
		NonceLock: NonceLock{
			Backend:       v.GetString("NONCE_LOCK_BACKEND"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTL:           v.GetDuration("NONCE_LOCK_TTL"),
		},
	}
}

// Chain returns the configured chain with the given id.
func (s Server) Chain(chainID int64) (Chain, bool) {
	for _, c := range s.Chains {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return Chain{}, false
}
