package config

// DBConfig contains PostgreSQL configuration. The memory repository talks to
// the platform's Postgres directly with the service role, so ownership checks
// happen in SQL rather than via row-level security.
type DBConfig struct {
	// URL is a full Postgres connection string (postgres://...).
	URL string `env:"URL,required"`

	// MaxConns caps the pgx pool size.
	MaxConns int32 `env:"MAX_CONNS" envDefault:"8"`
}

// RedisConfig contains Redis configuration, used when the rate limit backend
// is set to redis.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
