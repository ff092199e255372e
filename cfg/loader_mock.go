package cfg

// MockLoader returns a fixed configuration for tests.
type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (ml *MockLoader) Load() (*Config, error) {
	return &Config{
		App: App{
			Name:    "agileai",
			Version: "0.0.1",
		},

		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Port:                  "3306",
			Username:              "root",
			Password:              "root",
			Database:              "agileai",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		GithubApi: GithubApi{
			AccessToken:       "",
			ApiUrl:            "https://api.github.com",
			RequestsPerSecond: 5,
			RateLimitResetMin: 2,
		},

		Kafka: Kafka{
			Brokers: []string{"127.0.0.1:9092"},
			Producer: KafkaProducer{
				TopicIssue: "agileai.issues",
			},
			Consumer: KafkaConsumer{
				GroupID: "agileai-issue-consumer",
			},
		},

		Server: Server{
			Port:      8080,
			StaticDir: "internal/ui/static",
		},

		Analyzer: Analyzer{
			CacheMaxAgeHours:      24,
			AtlasCacheMaxAgeHours: 168,
			WordcloudMaxWords:     100,
			TreemapMaxWords:       30,
			ChatContextIssues:     15,
			ChatMaxRows:           50,
		},

		Atlas: Atlas{
			ApiKey:          "",
			BaseUrl:         "https://api-atlas.nomic.ai",
			PollIntervalSec: 5,
			PollMaxAttempts: 60,
		},

		Anthropic: Anthropic{
			ApiKey:    "",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},

		Refresh: Refresh{
			Cron:  "0 3 * * *",
			Repos: []string{},
		},
	}, nil
}
