package authService

import (
	"TryOnGolang/internal/api/auth"
	"TryOnGolang/internal/entity"
	"TryOnGolang/pkg/bcrypt"
	"TryOnGolang/pkg/redis"
	"context"
	"github.com/sirupsen/logrus"
	"time"
)

const (
	maxFailedLogins   = 5
	failedLoginWindow = 15 * time.Minute
	tokenTTL          = 8 * time.Hour
)

type AuthService interface {
	Login(c context.Context, req auth.LoginAdminRequest) (auth.LoginAdminResponse, error)
}

type authService struct {
	log         *logrus.Logger
	admin       entity.Admin
	redisServer redis.IRedis
	bcryptUtils bcrypt.IBcrypt
	sign        func(data map[string]interface{}, expiredAt time.Duration) (string, int64, error)
}

func New(log *logrus.Logger,
	admin entity.Admin,
	redisServer redis.IRedis,
	bcryptUtils bcrypt.IBcrypt,
) AuthService {
	return &authService{
		log:         log,
		admin:       admin,
		redisServer: redisServer,
		bcryptUtils: bcryptUtils,
		sign:        jwtSign,
	}
}
