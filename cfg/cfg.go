package cfg

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		AccessToken       string
		ApiUrl            string
		RequestsPerSecond int
		RateLimitResetMin int
	}

	Kafka struct {
		Brokers  []string
		Producer KafkaProducer
		Consumer KafkaConsumer
	}

	KafkaProducer struct {
		TopicIssue string
	}

	KafkaConsumer struct {
		GroupID string
	}

	Server struct {
		Port      int
		StaticDir string
	}

	// Analyzer groups the knobs of the derived-data layer: cache freshness,
	// word cloud sizes and chat context limits.
	Analyzer struct {
		CacheMaxAgeHours      int
		AtlasCacheMaxAgeHours int
		WordcloudMaxWords     int
		TreemapMaxWords       int
		ChatContextIssues     int
		ChatMaxRows           int
	}

	Atlas struct {
		ApiKey          string
		BaseUrl         string
		PollIntervalSec int
		PollMaxAttempts int
	}

	Anthropic struct {
		ApiKey    string
		Model     string
		MaxTokens int
	}

	// Refresh drives the scheduled re-sync of tracked repositories.
	Refresh struct {
		Cron  string
		Repos []string
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	GithubApi GithubApi
	Kafka     Kafka
	Server    Server
	Analyzer  Analyzer
	Atlas     Atlas
	Anthropic Anthropic
	Refresh   Refresh
}
