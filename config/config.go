package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11700"`
	APIKey      string `env:"API_KEY"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type ImapConfig struct {
	Server   string `env:"IMAP_SERVER,required"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USERNAME,required"`
	Password string `env:"IMAP_PASSWORD,required"`

	TLS bool `env:"IMAP_TLS" envDefault:"true"`
	// AllowInsecureTLS skips certificate verification. Only for servers with
	// self-signed certificates; off by default.
	AllowInsecureTLS bool `env:"IMAP_ALLOW_INSECURE_TLS" envDefault:"false"`

	ExpungeOnClose bool   `env:"IMAP_EXPUNGE_ON_CLOSE" envDefault:"true"`
	SentFolder     string `env:"IMAP_SENT_FOLDER" envDefault:"INBOX.Sent"`

	// MyEmail is the mailbox's own address, used to decide message direction.
	MyEmail string `env:"IMAP_MY_EMAIL,required"`

	MaxRetries     int `env:"IMAP_MAX_RETRIES" envDefault:"3"`
	RetryBackoffMs int `env:"IMAP_RETRY_BACKOFF_MS" envDefault:"2000"`
	TimeoutSeconds int `env:"IMAP_TIMEOUT_SECONDS" envDefault:"30"`
}

type SyncConfig struct {
	// Schedule is a cron expression for periodic runs; empty disables the
	// scheduler so only explicit runs happen.
	Schedule string `env:"SYNC_SCHEDULE" envDefault:"*/5 * * * *"`
	// RecheckIntervalMin is how old a folder's watermark may get before the
	// folder is walked again even without new mail.
	RecheckIntervalMin int `env:"SYNC_RECHECK_INTERVAL_MIN" envDefault:"60"`
}

type ArchiveConfig struct {
	Enabled         bool   `env:"RAW_ARCHIVE_ENABLED" envDefault:"false"`
	Region          string `env:"AWS_REGION" envDefault:"eu-north-1"`
	Bucket          string `env:"RAW_ARCHIVE_BUCKET"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}
