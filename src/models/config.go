package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	Network  MNetworkConfig  `yaml:"network"`
	Timeline MTimelineConfig `yaml:"timeline"`
}

type MStorageConfig struct {
	WeatherDir  string `yaml:"weather_dir"`
	Mode        string `yaml:"mode"` // "auto" or "filesys"
	USCitiesCSV string `yaml:"uscities_csv"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MTimelineConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"` // Optional
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	PollTimeoutSec int    `yaml:"poll_timeout_sec"`
}
