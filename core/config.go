package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage, cache and blob backends.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendS3        = "s3"
	BackendMinio     = "minio"
	BackendGCS       = "gcs"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 int // requests per second per IP on public endpoints
		RateBurst                 int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Backend          string
		FirestoreProject string
	}

	CacheConfig struct {
		Backend       string
		SQLitePath    string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}

	BlobConfig struct {
		Backend       string
		Bucket        string
		Region        string
		Endpoint      string
		Prefix        string
		AccessKey     string
		SecretKey     string
		PublicBaseURL string
		UseSSL        bool
	}

	DriveConfig struct {
		Endpoint string // optional API endpoint override
	}

	WorkspaceConfig struct {
		SaveDebounce   time.Duration
		SaveTimeout    time.Duration
		SessionIdleTTL time.Duration // zero keeps sessions in memory until sign-out
	}

	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server    ServerConfig
		Database  DatabaseConfig
		Storage   StorageConfig
		Cache     CacheConfig
		Blob      BlobConfig
		Drive     DriveConfig
		Workspace WorkspaceConfig
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, dbConf.Port)
}

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` if it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "StudySpace")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "n2x0+@d8wq!cz#l)r1p^9kdj3f-ul$qzv!m4x8b0s&t7e@yh5c")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "StudySpace <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("rateLimit", 10)
	v.SetDefault("rateBurst", 20)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "studyspace")
	v.SetDefault("dbUser", "studyspace")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("storageBackend", BackendMemory)
	v.SetDefault("firestoreProject", "")

	if env == "TEST" {
		v.SetDefault("cacheBackend", BackendMemory)
	} else {
		v.SetDefault("cacheBackend", BackendSQLite)
	}
	v.SetDefault("cacheSQLitePath", "studyspace-cache.db")
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("blobBackend", BackendMemory)
	v.SetDefault("blobBucket", "studyspace")
	v.SetDefault("blobRegion", "us-east-1")
	v.SetDefault("blobEndpoint", "")
	v.SetDefault("blobPrefix", "")
	v.SetDefault("blobAccessKey", "")
	v.SetDefault("blobSecretKey", "")
	v.SetDefault("blobPublicBaseURL", "")
	v.SetDefault("blobUseSSL", true)

	v.SetDefault("driveEndpoint", "")

	v.SetDefault("workspaceSaveDebounce", 1400*time.Millisecond)
	v.SetDefault("workspaceSaveTimeout", 10*time.Second)
	v.SetDefault("workspaceSessionIdleTTL", 30*time.Minute)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *fromEmail,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetInt("rateLimit"),
			RateBurst:                 v.GetInt("rateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			Backend:          v.GetString("storageBackend"),
			FirestoreProject: v.GetString("firestoreProject"),
		},
		Cache: CacheConfig{
			Backend:       v.GetString("cacheBackend"),
			SQLitePath:    v.GetString("cacheSQLitePath"),
			RedisAddr:     v.GetString("redisAddr"),
			RedisPassword: v.GetString("redisPassword"),
			RedisDB:       v.GetInt("redisDB"),
		},
		Blob: BlobConfig{
			Backend:       v.GetString("blobBackend"),
			Bucket:        v.GetString("blobBucket"),
			Region:        v.GetString("blobRegion"),
			Endpoint:      v.GetString("blobEndpoint"),
			Prefix:        v.GetString("blobPrefix"),
			AccessKey:     v.GetString("blobAccessKey"),
			SecretKey:     v.GetString("blobSecretKey"),
			PublicBaseURL: strings.TrimSuffix(v.GetString("blobPublicBaseURL"), "/"),
			UseSSL:        v.GetBool("blobUseSSL"),
		},
		Drive: DriveConfig{
			Endpoint: v.GetString("driveEndpoint"),
		},
		Workspace: WorkspaceConfig{
			SaveDebounce:   v.GetDuration("workspaceSaveDebounce"),
			SaveTimeout:    v.GetDuration("workspaceSaveTimeout"),
			SessionIdleTTL: v.GetDuration("workspaceSessionIdleTTL"),
		},
	}
}

// NewTestConfig returns a Config suited for tests: in-memory backends and no outgoing calls.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "StudySpace",
		Debug:            true,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:8080",
		DefaultFromEmail: mail.Address{Name: "StudySpace", Address: "noreply@localhost"},
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			RateLimit:                 1000,
			RateBurst:                 1000,
		},
		Storage:   StorageConfig{Backend: BackendMemory},
		Cache:     CacheConfig{Backend: BackendMemory},
		Blob:      BlobConfig{Backend: BackendMemory, Bucket: "test", PublicBaseURL: "http://blobs.local"},
		Workspace: WorkspaceConfig{SaveDebounce: 1400 * time.Millisecond, SaveTimeout: time.Second},
	}
}
