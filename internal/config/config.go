package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env              string        `yaml:"env" env-required:"true"`
	TmpDir           string        `yaml:"tmp_dir" env-default:"./tmp"`
	Timezone         string        `yaml:"timezone" env-default:"Europe/Moscow"`
	ManifestURL      string        `yaml:"manifest_url"`
	SchedulePageSize int           `yaml:"schedule_page_size" env-default:"10"`
	AutoDJMaxHours   int           `yaml:"autodj_max_hours" env-default:"72"`
	AutoDJTimeout    time.Duration `yaml:"autodj_timeout" env-default:"10m"`
	MaxUploadSize    int64         `yaml:"max_upload_size" env-default:"20971520"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env-default:"30s"`
	Log              `yaml:"log"`
	Radio            `yaml:"radio"`
	HTTPServer       `yaml:"http_server"`
	Webhook          `yaml:"webhook"`
	Users            `yaml:"users"`
	Session          `yaml:"session"`
}

type Log struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env-default:"3"`
}

type Radio struct {
	Addr    string        `yaml:"addr" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Webhook struct {
	URL string `yaml:"url"`
	// Secret is a path element telegram posts updates to.
	// Derived from bot token if empty.
	Secret string `yaml:"secret" env:"WEBHOOK_SECRET"`
}

type Users struct {
	Storage string `yaml:"storage" env-default:"file"`
	Path    string `yaml:"path" env-default:"./.cache/users.json"`
}

type Session struct {
	Storage string        `yaml:"storage" env-default:"memory"`
	TTL     time.Duration `yaml:"ttl" env-default:"24h"`
	Redis   `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
