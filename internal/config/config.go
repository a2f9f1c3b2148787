package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors and halts execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; grouped settings live in the sub-configs below.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password and OTP hashing

    Booking BookingConfig
    OTP     OTPConfig
    Mail    MailConfig
    AMQP    AMQPConfig
    Mongo   MongoConfig
    Log     LogConfig
}

// BookingConfig carries the reservation rules and the sweep cadence.
type BookingConfig struct {
    Timezone       string        // IANA zone every calendar rule is evaluated in
    MaxDuration    time.Duration // longest allowed session
    WindowDays     int           // how far ahead a date may be booked
    WeeklyDayLimit int           // distinct reservation days per week
    DailyLimit     int           // active reservations per day
    SweepInterval  time.Duration // how often expired reservations are completed
}

// Location resolves Timezone, falling back to UTC when the zone database
// does not know it.
func (b BookingConfig) Location() *time.Location {
    loc, err := time.LoadLocation(b.Timezone)
    if err != nil {
        log.Printf("unknown BOOKING_TIMEZONE %q, using UTC", b.Timezone)
        return time.UTC
    }
    return loc
}

// OTPConfig controls signup verification codes.
type OTPConfig struct {
    TTL           time.Duration // lifetime of a pending signup
    MaxAttempts   int           // wrong codes accepted before the signup is dropped
    PurgeInterval time.Duration // cadence of the MySQL fallback purge
}

// MailConfig configures the Resend client.  An empty APIKey disables
// delivery and codes are only logged (dev).
type MailConfig struct {
    APIKey string
    From   string
}

// AMQPConfig configures RabbitMQ.  An empty URL keeps everything in-process.
type AMQPConfig struct {
    URL             string
    AuditQueue      string
    NotifyExchange  string
    AuditLogDir     string // file sink used when Mongo is not configured
}

// MongoConfig configures the audit sink.
type MongoConfig struct {
    URI        string
    Database   string
    Collection string
}

// LogConfig is handed to logging.Init.
type LogConfig struct {
    Level  string
    Format string
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is read first when present.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // optional; real env vars win

    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        Booking: BookingConfig{
            Timezone:       envStr("BOOKING_TIMEZONE", "Asia/Manila"),
            MaxDuration:    envDur("BOOKING_MAX_DURATION", 4*time.Hour),
            WindowDays:     envInt("BOOKING_WINDOW_DAYS", 7),
            WeeklyDayLimit: envInt("BOOKING_WEEKLY_DAY_LIMIT", 2),
            DailyLimit:     envInt("BOOKING_DAILY_LIMIT", 1),
            SweepInterval:  envDur("SWEEP_INTERVAL", 5*time.Minute),
        },
        OTP: OTPConfig{
            TTL:           envDur("OTP_TTL", 10*time.Minute),
            MaxAttempts:   envInt("OTP_MAX_ATTEMPTS", 5),
            PurgeInterval: envDur("OTP_PURGE_INTERVAL", time.Minute),
        },
        Mail: MailConfig{
            APIKey: os.Getenv("RESEND_API_KEY"),
            From:   envStr("MAIL_FROM", "CircuLink <no-reply@circulink.app>"),
        },
        AMQP: AMQPConfig{
            URL:            os.Getenv("AMQP_URL"),
            AuditQueue:     envStr("AMQP_AUDIT_QUEUE", "audit.events"),
            NotifyExchange: envStr("AMQP_NOTIFY_EXCHANGE", "notifications.fanout"),
            AuditLogDir:    envStr("AUDIT_LOG_DIR", "logs"),
        },
        Mongo: MongoConfig{
            URI:        os.Getenv("MONGO_URI"),
            Database:   envStr("MONGO_DB", "circulink"),
            Collection: envStr("MONGO_AUDIT_COLLECTION", "activity_logs"),
        },
        Log: LogConfig{
            Level:  envStr("LOG_LEVEL", "info"),
            Format: envStr("LOG_FORMAT", "json"),
        },
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
