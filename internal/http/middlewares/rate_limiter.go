package middlewares

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "userhub:ratelimit:"

type RateLimiter struct {
	limiter *limiter.Limiter
	log     *slog.Logger
}

// NewRateLimiter allows limit requests per window for each key. A nil
// client keeps counters in process memory; otherwise they live in redis so
// every replica shares them. name separates the counters of limiters that
// share a store.
func NewRateLimiter(name string, limit int, window time.Duration, client redis.UniversalClient, log *slog.Logger) (*RateLimiter, error) {
	if log == nil {
		log = slog.Default()
	}
	prefix := rateLimitPrefix + name + ":"

	var (
		store limiter.Store
		err   error
	)
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   prefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	rate := limiter.Rate{Period: window, Limit: int64(limit)}
	return &RateLimiter{limiter: limiter.New(store, rate), log: log}, nil
}

// Middleware enforces the limit for the key returned by keyFn, falling back
// to the client IP when it is empty.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return mgin.NewMiddleware(rl.limiter,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			if key := keyFn(c); key != "" {
				return key
			}
			return clientIP(c)
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			if reset := c.Writer.Header().Get("X-RateLimit-Reset"); reset != "" {
				if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
					retryAfter := max(int64(time.Until(time.Unix(unix, 0)).Seconds()), 0)
					c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
				}
			}
			abortWithError(c, http.StatusTooManyRequests, "Too many requests. Please try again shortly.", nil)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open: a broken limiter store must not take auth down
			rl.log.ErrorContext(c.Request.Context(), "rate limiter store error", "err", err)
			c.Next()
		}),
	)
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// for authenticated endpoints: rate limit by user id if available
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok && id != 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}
