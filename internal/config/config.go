package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/env"
	"github.com/openbuilders/sol-batch-sender/internal/errors"
	"github.com/openbuilders/sol-batch-sender/internal/queue"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gagliardetto/solana-go/rpc"
	"sigs.k8s.io/yaml"
)

var commitments = []interface{}{
	rpc.CommitmentProcessed,
	rpc.CommitmentConfirmed,
	rpc.CommitmentFinalized,
}

// Pipeline configures one dispatch or confirmation run. Every sink is
// optional and disabled while its URL is empty.
type Pipeline struct {
	PodName    string
	Input      string
	Output     string
	RPCTimeout time.Duration
	Commitment rpc.CommitmentType

	RedisURL   string
	LockPrefix string
	LockTTL    time.Duration

	PostgresURL string
	DBTimeout   time.Duration

	RabbitURL   string
	NotifyQueue queue.QueueName

	PushgatewayURL string
}

func LoadPipeline() (*Pipeline, error) {
	c := &Pipeline{
		PodName:        env.GetString("POD_NAME", ""),
		Input:          env.GetString("INPUT", ""),
		Output:         env.GetString("OUTPUT", ""),
		RPCTimeout:     env.GetDuration("RPC_TIMEOUT", 30*time.Second),
		Commitment:     rpc.CommitmentType(env.GetString("COMMITMENT", string(rpc.CommitmentFinalized))),
		RedisURL:       env.GetString("REDIS_URL", ""),
		LockPrefix:     env.GetString("LOCK_PREFIX", "sol-batch-sender:lock:"),
		LockTTL:        env.GetDuration("LOCK_TTL", 10*time.Minute),
		PostgresURL:    env.GetString("POSTGRES_URL", ""),
		DBTimeout:      env.GetDuration("DB_TIMEOUT", 5*time.Second),
		RabbitURL:      env.GetString("RABBIT_URL", ""),
		NotifyQueue:    queue.QueueName(env.GetString("NOTIFY_QUEUE", string(queue.QueueTransferStatus))),
		PushgatewayURL: env.GetString("PUSHGATEWAY_URL", ""),
	}

	if err := c.Validate(); err != nil {
		return nil, errors.New(errors.CodeConfig, "invalid pipeline config", err)
	}

	return c, nil
}

func (c Pipeline) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Input, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.RPCTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Commitment, validation.Required, validation.In(commitments...)),
		validation.Field(&c.RedisURL, validation.By(urlRule)),
		validation.Field(&c.LockTTL, validation.When(c.RedisURL != "",
			validation.Required, validation.Min(time.Second))),
		validation.Field(&c.PostgresURL, validation.By(urlRule)),
		validation.Field(&c.RabbitURL, validation.By(urlRule)),
		validation.Field(&c.NotifyQueue, validation.When(c.RabbitURL != "", validation.Required)),
		validation.Field(&c.PushgatewayURL, validation.By(urlRule)),
	)
}

// Watcher configures the slot triggered transfer service.
type Watcher struct {
	PodName           string
	RPCURL            string
	WSURL             string
	RPCTimeout        time.Duration
	Commitment        rpc.CommitmentType
	SourceCredential  string
	Destination       string
	Amount            uint64
	ReconnectInterval time.Duration
	SlotMaxAge        time.Duration
	HealthInterval    time.Duration
	ProbesPort        int
	MetricsPort       int
	RabbitURL         string
	NotifyQueue       queue.QueueName
}

func LoadWatcher() (*Watcher, error) {
	c := &Watcher{
		PodName:           env.GetString("POD_NAME", ""),
		RPCURL:            env.GetString("RPC_URL", ""),
		WSURL:             env.GetString("WS_URL", ""),
		RPCTimeout:        env.GetDuration("RPC_TIMEOUT", 10*time.Second),
		Commitment:        rpc.CommitmentType(env.GetString("COMMITMENT", string(rpc.CommitmentConfirmed))),
		SourceCredential:  env.GetString("SOURCE_CREDENTIAL", ""),
		Destination:       env.GetString("DESTINATION", ""),
		Amount:            env.GetUint64("AMOUNT", 0),
		ReconnectInterval: env.GetDuration("RECONNECT_INTERVAL", 5*time.Second),
		SlotMaxAge:        env.GetDuration("SLOT_MAX_AGE", time.Minute),
		HealthInterval:    env.GetDuration("HEALTH_INTERVAL", 15*time.Second),
		ProbesPort:        env.GetInt("PROBES_PORT", 8081),
		MetricsPort:       env.GetInt("METRICS_PORT", 9091),
		RabbitURL:         env.GetString("RABBIT_URL", ""),
		NotifyQueue:       queue.QueueName(env.GetString("NOTIFY_QUEUE", string(queue.QueueTransferStatus))),
	}

	if err := c.Validate(); err != nil {
		return nil, errors.New(errors.CodeConfig, "invalid watcher config", err)
	}

	return c, nil
}

func (c Watcher) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RPCURL, validation.Required, validation.By(urlRule)),
		validation.Field(&c.WSURL, validation.Required, validation.By(urlRule)),
		validation.Field(&c.Commitment, validation.Required, validation.In(commitments...)),
		validation.Field(&c.SourceCredential, validation.Required),
		validation.Field(&c.Destination, validation.Required),
		validation.Field(&c.Amount, validation.Required),
		validation.Field(&c.ReconnectInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SlotMaxAge, validation.Required),
		validation.Field(&c.HealthInterval, validation.Required),
		validation.Field(&c.ProbesPort, validation.Required, validation.Max(65535)),
		validation.Field(&c.MetricsPort, validation.Required, validation.Max(65535)),
		validation.Field(&c.RabbitURL, validation.By(urlRule)),
	)
}

// Balances is the YAML config file of the balance reader.
type Balances struct {
	RPCURL    string   `json:"rpc_url"`
	BatchSize int      `json:"batch_size"`
	Wallets   []string `json:"wallets"`
}

// LoadBalances reads the file at path. Addresses listed in WALLETS are
// appended to the ones from the file.
func LoadBalances(path string) (*Balances, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "read balances config", err)
	}

	var c Balances
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.New(errors.CodeConfig, "parse balances config", err)
	}

	c.Wallets = append(c.Wallets, env.GetList("WALLETS", nil)...)

	if err := c.Validate(); err != nil {
		return nil, errors.New(errors.CodeConfig, "invalid balances config", err)
	}

	return &c, nil
}

func (c Balances) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RPCURL, validation.Required, validation.By(urlRule)),
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Wallets, validation.Required),
	)
}

func urlRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be a valid URL")
	}

	return nil
}
