/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"

	// Default reward amounts in minor currency units ($10.00).
	DefaultFriendRewardAmount   = 1000
	DefaultReferrerRewardAmount = 1000
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CHAIRSIDE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CHAIRSIDE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CHAIRSIDE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CHAIRSIDE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CHAIRSIDE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CHAIRSIDE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CHAIRSIDE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"CHAIRSIDE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"CHAIRSIDE_REDIS_SKIP_TLS_VERIFY"`
}

// SquareConfig holds the Square API credentials and webhook settings.
// WebhookSignatureKey signs inbound webhooks; NotificationURL is the
// operator-configured callback URL Square signed against (optional; when
// empty it is derived from the incoming request).
type SquareConfig struct {
	BaseURL             string `json:"base_url" envconfig:"CHAIRSIDE_SQUARE_BASE_URL"`
	AccessToken         string `json:"access_token" envconfig:"CHAIRSIDE_SQUARE_ACCESS_TOKEN"`
	WebhookSignatureKey string `json:"webhook_signature_key" envconfig:"CHAIRSIDE_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	NotificationURL     string `json:"notification_url" envconfig:"CHAIRSIDE_SQUARE_NOTIFICATION_URL"`
	LocationID          string `json:"location_id" envconfig:"CHAIRSIDE_SQUARE_LOCATION_ID"`
	OwnerPaymentSource  string `json:"owner_payment_source" envconfig:"CHAIRSIDE_SQUARE_OWNER_PAYMENT_SOURCE"`
	DebugSignature      bool   `json:"debug_signature" envconfig:"CHAIRSIDE_SQUARE_DEBUG_SIGNATURE"`
}

// RewardConfig controls reward amounts in minor currency units.
type RewardConfig struct {
	FriendAmount   int64 `json:"friend_amount" envconfig:"CHAIRSIDE_REWARD_FRIEND_AMOUNT"`
	ReferrerAmount int64 `json:"referrer_amount" envconfig:"CHAIRSIDE_REWARD_REFERRER_AMOUNT"`
}

type QueueConfig struct {
	StageQueue     string `json:"stage_queue" envconfig:"CHAIRSIDE_QUEUE_STAGE_QUEUE"`
	EmailQueue     string `json:"email_queue" envconfig:"CHAIRSIDE_QUEUE_EMAIL_QUEUE"`
	SmsQueue       string `json:"sms_queue" envconfig:"CHAIRSIDE_QUEUE_SMS_QUEUE"`
	PassQueue      string `json:"pass_queue" envconfig:"CHAIRSIDE_QUEUE_PASS_QUEUE"`
	MonitoringPort string `json:"monitoring_port" envconfig:"CHAIRSIDE_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CHAIRSIDE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CHAIRSIDE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CHAIRSIDE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

// Notification groups the outbound customer-notification providers. Email
// and SMS are posted to operator-configured provider webhook URLs; Slack
// receives internal error alerts.
type Notification struct {
	Slack SlackWebhook `json:"slack"`
	Email struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"email"`
	Sms struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"sms"`
	Push struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"push"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"CHAIRSIDE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Square       SquareConfig     `json:"square"`
	Reward       RewardConfig     `json:"reward"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("chairside", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called chairside.json with your config ❌")
	}
	return c, nil
}

// HasSquareCredentials reports whether the minimum Square configuration for
// webhook processing is present. Missing credentials are a startup-class
// failure; the webhook handler answers 500 until they are set.
func (cnf *Configuration) HasSquareCredentials() bool {
	return cnf.Square.WebhookSignatureKey != "" &&
		cnf.Square.AccessToken != "" &&
		cnf.Square.LocationID != ""
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Chairside Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Square.BaseURL == "" {
		cnf.Square.BaseURL = "https://connect.squareup.com"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Square.BaseURL = strings.TrimRight(strings.TrimSpace(cnf.Square.BaseURL), "/")

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Reward.FriendAmount == 0 {
		cnf.Reward.FriendAmount = DefaultFriendRewardAmount
	}
	if cnf.Reward.ReferrerAmount == 0 {
		cnf.Reward.ReferrerAmount = DefaultReferrerRewardAmount
	}

	if cnf.Queue.StageQueue == "" {
		cnf.Queue.StageQueue = "new:stage"
	}
	if cnf.Queue.EmailQueue == "" {
		cnf.Queue.EmailQueue = "new:email"
	}
	if cnf.Queue.SmsQueue == "" {
		cnf.Queue.SmsQueue = "new:sms"
	}
	if cnf.Queue.PassQueue == "" {
		cnf.Queue.PassQueue = "new:walletpass"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
