package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type OAuthApp struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	Facebook    OAuthApp
	Instagram   OAuthApp
	Threads     OAuthApp
	Tiktok      OAuthApp
	Linkedin    OAuthApp
	Twitter     OAuthApp
	Google      OAuthApp
	PostgresURI string
	RedisURI    string
	FrontendURL string
	R2          R2
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Facebook:    loadOAuthApp("FACEBOOK"),
		Instagram:   loadOAuthApp("INSTAGRAM"),
		Threads:     loadOAuthApp("THREADS"),
		Tiktok:      loadOAuthApp("TIKTOK"),
		Linkedin:    loadOAuthApp("LINKEDIN"),
		Twitter:     loadOAuthApp("TWITTER"),
		Google:      loadOAuthApp("GOOGLE"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "publika_session"),
	}
}

func loadOAuthApp(prefix string) OAuthApp {
	return OAuthApp{
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURI:  getEnv(prefix+"_REDIRECT_URI", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
